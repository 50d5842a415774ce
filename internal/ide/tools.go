package ide

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"codegraph/internal/messaging"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
)

// handleLoadProject translates a load request into a LoadProject message.
func (c *Controller) handleLoadProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments")
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required")
	}
	forceRefresh, _ := args["force_refresh"].(bool)

	c.queue.Publish(messaging.LoadProject{
		ProjectSettingsFilePath: path,
		ForceRefresh:            forceRefresh,
	})

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"requested": true,
		"path":      path,
	})), nil
}

// handleRefresh translates a refresh request into a Refresh message.
func (c *Controller) handleRefresh(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := false
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		all, _ = args["all"].(bool)
	}

	c.queue.Publish(messaging.Refresh{All: all, ReloadStyle: true})

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"requested": true,
		"all":       all,
	})), nil
}

// handleSearchFulltext reads through the storage cache.
func (c *Controller) handleSearchFulltext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments")
	}

	term, ok := args["term"].(string)
	if !ok || term == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "term parameter is required")
	}

	hits := c.cache.SearchFullText(term)
	results := make([]map[string]interface{}, 0, len(hits))
	for _, hit := range hits {
		results = append(results, map[string]interface{}{
			"file_path":    hit.FilePath,
			"start_line":   hit.StartLine,
			"start_column": hit.StartCol,
			"end_line":     hit.EndLine,
			"end_column":   hit.EndCol,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"term":    term,
		"matches": results,
		"count":   len(results),
	})), nil
}

// handleGetStatus reports the cache's aggregate counts.
func (c *Controller) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := c.cache.GetStorageStats()
	errorCount := c.cache.GetErrorCount()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"nodes":            stats.NodeCount,
		"edges":            stats.EdgeCount,
		"files":            stats.FileCount,
		"lines_of_code":    stats.FileLOCCount,
		"source_locations": stats.SourceLocationCount,
		"errors":           errorCount.Total,
		"fatal_errors":     errorCount.Fatal,
	})), nil
}

// handleActivateWindow forwards an activation request onto the bus.
func (c *Controller) handleActivateWindow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.queue.Publish(messaging.ActivateWindow{})
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"requested": true})), nil
}

func newMCPError(code int, message string) error {
	return fmt.Errorf("MCP error %d: %s", code, message)
}

func formatJSON(data map[string]interface{}) string {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(encoded)
}
