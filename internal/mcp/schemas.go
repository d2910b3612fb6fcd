package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// rootPathProperty is the shared root_path parameter schema
func rootPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the repository root",
	}
}

// indexPathProperty is the shared index_path parameter schema
func indexPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Directory holding the index database (default: <root_path>/.codenav)",
	}
}

// indexRepositoryTool returns the tool definition for index_repository
func indexRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_repository",
		Description: "Build or refresh the token index for a source repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path":  rootPathProperty(),
				"index_path": indexPathProperty(),
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rebuild even when the existing index is fresh",
					"default":     false,
				},
			},
			Required: []string{"root_path"},
		},
	}
}

// goToTool returns the tool definition for go_to
func goToTool() mcp.Tool {
	return mcp.Tool{
		Name:        "go_to",
		Description: "Resolve a source position to the token covering it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path":  rootPathProperty(),
				"index_path": indexPathProperty(),
				"relative_path": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to root_path, slash-separated",
				},
				"line": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based line number",
					"minimum":     0,
				},
				"start_index": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based rune column where the span starts",
					"minimum":     0,
				},
				"end_index": map[string]interface{}{
					"type":        "integer",
					"description": "Exclusive end column of the span (default: start_index, a point query)",
					"minimum":     0,
				},
			},
			Required: []string{"root_path", "relative_path", "line", "start_index"},
		},
	}
}

// textSearchTool returns the tool definition for text_search
func textSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "text_search",
		Description: "Find occurrences of a token text, falling back to fuzzy subsequence matching when nothing matches exactly",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path":  rootPathProperty(),
				"index_path": indexPathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Token text to search for",
				},
				"case_sensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, match the exact case of the query",
					"default":     false,
				},
			},
			Required: []string{"root_path", "query"},
		},
	}
}

// fuzzySearchTool returns the tool definition for fuzzy_search
func fuzzySearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "fuzzy_search",
		Description: "Find indexed tokens within an edit distance of the query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path":  rootPathProperty(),
				"index_path": indexPathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Token text to match against",
				},
				"max_distance": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum Levenshtein distance (default from configuration)",
					"minimum":     1,
					"maximum":     10,
				},
			},
			Required: []string{"root_path", "query"},
		},
	}
}

// getHoverableRangesTool returns the tool definition for get_hoverable_ranges
func getHoverableRangesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_hoverable_ranges",
		Description: "List the spans of a file that resolve to navigable tokens",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path":  rootPathProperty(),
				"index_path": indexPathProperty(),
				"relative_path": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to root_path, slash-separated",
				},
			},
			Required: []string{"root_path", "relative_path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and staleness",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root_path":  rootPathProperty(),
				"index_path": indexPathProperty(),
			},
		},
	}
}
