package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "File path relative to the indexed root, forward slashes (e.g. src/App/Program.cs)",
	}
}

// chunksTool returns the tool definition for chunks
func chunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunks",
		Description: "List the hierarchy chunks of an indexed file in pre-order, with context paths and leading comments",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"include_content": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include each chunk's source text",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// chunkAtTool returns the tool definition for chunk_at
func chunkAtTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_at",
		Description: "Return the innermost chunk covering a 1-based line of an indexed file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"line": map[string]interface{}{
					"type":        "integer",
					"description": "1-based line number",
					"minimum":     1,
				},
			},
			Required: []string{"path", "line"},
		},
	}
}

// dependenciesTool returns the tool definition for dependencies
func dependenciesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "dependencies",
		Description: "List the imports of an indexed file in source order with the file each resolved to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "If greater than 1, return the transitive dependency graph up to this depth instead",
					"default":     1,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"path"},
		},
	}
}

// dependentsTool returns the tool definition for dependents
func dependentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "dependents",
		Description: "List the files whose imports resolved to the given file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "If greater than 1, return the transitive dependents graph up to this depth instead",
					"default":     1,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"path"},
		},
	}
}

// chunkSourceTool returns the tool definition for chunk_source
func chunkSourceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_source",
		Description: "Chunk a source snippet without indexing it. Give either language or a file name to infer it from",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Source text to chunk",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language identifier",
					"enum":        []string{"c", "cpp", "c_sharp", "go", "java", "javascript", "python", "rust", "typescript"},
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "File name used to infer the language when language is omitted",
				},
			},
			Required: []string{"content"},
		},
	}
}

// directoryGraphTool returns the tool definition for directory_graph
func directoryGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "directory_graph",
		Description: "Aggregate resolved file imports into directory-level edges and report import cycles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// reindexTool returns the tool definition for reindex
func reindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex",
		Description: "Re-scan the indexed root, re-chunk changed files and re-resolve affected imports",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
