package main

import (
	"github.com/jward/thicket"
)

// CLIResult is the top-level envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIFile is a file row.
type CLIFile struct {
	Path      string `json:"path" yaml:"path"`
	Language  string `json:"language" yaml:"language"`
	LineCount int    `json:"line_count" yaml:"line_count"`
}

// CLIChunk is a chunk without its database identifiers. Content is only
// filled when asked for.
type CLIChunk struct {
	File           string   `json:"file" yaml:"file"`
	NodeType       string   `json:"node_type" yaml:"node_type"`
	Name           *string  `json:"name" yaml:"name"`
	Label          string   `json:"label" yaml:"label"`
	ContextPath    []string `json:"context_path" yaml:"context_path"`
	StartLine      int      `json:"start_line" yaml:"start_line"`
	EndLine        int      `json:"end_line" yaml:"end_line"`
	LeadingComment *string  `json:"leading_comment,omitempty" yaml:"leading_comment,omitempty"`
	Content        string   `json:"content,omitempty" yaml:"content,omitempty"`
}

// CLIImport is one raw import and where it resolved.
type CLIImport struct {
	File     string  `json:"file" yaml:"file"`
	Raw      string  `json:"raw" yaml:"raw"`
	Resolved *string `json:"resolved" yaml:"resolved"`
}

// CLIDirectoryGraph is the graph command's result.
type CLIDirectoryGraph struct {
	Directories []thicket.DirectoryNode `json:"directories" yaml:"directories"`
	Edges       []thicket.DirectoryEdge `json:"edges" yaml:"edges"`
	Cycles      [][]string              `json:"cycles" yaml:"cycles"`
}

func chunkToCLI(file string, c *thicket.Chunk, withContent bool) CLIChunk {
	out := CLIChunk{
		File:           file,
		NodeType:       c.NodeType,
		Name:           c.Name,
		Label:          c.Label(),
		ContextPath:    []string(c.ContextPath),
		StartLine:      c.StartLine,
		EndLine:        c.EndLine,
		LeadingComment: c.LeadingComment,
	}
	if withContent {
		out.Content = c.Content
	}
	return out
}

func importToCLI(imp *thicket.Import) CLIImport {
	return CLIImport{
		File:     imp.SourcePath,
		Raw:      imp.RawImport,
		Resolved: imp.ResolvedPath,
	}
}
