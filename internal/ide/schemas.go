package ide

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// loadProjectTool returns the tool definition for load_project
func loadProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "load_project",
		Description: "Load the project described by a settings file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project settings file",
				},
				"force_refresh": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index even when the project is already loaded",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// refreshTool returns the tool definition for refresh
func refreshTool() mcp.Tool {
	return mcp.Tool{
		Name:        "refresh",
		Description: "Refresh the loaded project's index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"all": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index every file instead of only changed ones",
					"default":     false,
				},
			},
		},
	}
}

// searchFulltextTool returns the tool definition for search_fulltext
func searchFulltextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_fulltext",
		Description: "Search the indexed file contents for a term",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"term": map[string]interface{}{
					"type":        "string",
					"description": "Term to search for",
				},
			},
			Required: []string{"term"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report graph and diagnostic counts of the loaded project",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// activateWindowTool returns the tool definition for activate_window
func activateWindowTool() mcp.Tool {
	return mcp.Tool{
		Name:        "activate_window",
		Description: "Bring the application window to the foreground",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
