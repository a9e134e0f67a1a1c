package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/jward/thicket"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}

// writeResult encodes result to w in the selected format.
func writeResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "text":
		return writeResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLANGUAGE\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", f.Path, f.Language, f.LineCount)
	}
	tw.Flush()
}

// formatChunksText prints one chunk per line with its span and context
// path. Content, when present, follows indented.
func formatChunksText(w io.Writer, chunks []CLIChunk) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINES\tTYPE\tCONTEXT")
	for _, c := range chunks {
		fmt.Fprintf(tw, "%d-%d\t%s\t%s\n", c.StartLine, c.EndLine, c.NodeType, strings.Join(c.ContextPath, " > "))
	}
	tw.Flush()

	for _, c := range chunks {
		if c.Content == "" {
			continue
		}
		fmt.Fprintf(w, "\n%s:%d %s\n", c.File, c.StartLine, c.Label)
		if c.LeadingComment != nil {
			fmt.Fprintf(w, "    %s\n", indent(*c.LeadingComment))
		}
		fmt.Fprintf(w, "    %s\n", indent(c.Content))
	}
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    ")
}

// formatImportsText formats CLIImport results as aligned columns.
func formatImportsText(w io.Writer, imports []CLIImport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tIMPORT\tRESOLVED")
	for _, imp := range imports {
		resolved := "-"
		if imp.Resolved != nil {
			resolved = *imp.Resolved
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", imp.File, imp.Raw, resolved)
	}
	tw.Flush()
}

// formatDirectoryGraphText formats directories, edges and cycles.
func formatDirectoryGraphText(w io.Writer, g CLIDirectoryGraph) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DIRECTORY\tFILES\tLINES")
	for _, d := range g.Directories {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", d.Name, d.FileCount, d.LineCount)
	}
	tw.Flush()

	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FROM\tTO\tIMPORTS")
		for _, e := range g.Edges {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", e.From, e.To, e.ImportCount)
		}
		tw.Flush()
	}

	if len(g.Cycles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Cycles:")
		for _, c := range g.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(c, " -> "))
		}
	}
}

// formatFileGraphText prints each reached file indented by its depth.
func formatFileGraphText(w io.Writer, g *thicket.FileGraph) {
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Depth), n.Path)
	}
}

// writeResultText dispatches to the appropriate text formatter based on
// the result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIChunk:
		formatChunksText(w, v)
	case CLIChunk:
		formatChunksText(w, []CLIChunk{v})
	case []CLIImport:
		formatImportsText(w, v)
	case CLIDirectoryGraph:
		formatDirectoryGraphText(w, v)
	case *thicket.FileGraph:
		formatFileGraphText(w, v)
	case string:
		fmt.Fprintln(w, v)
	case nil:
		// No output for nil results (e.g., chunk-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
