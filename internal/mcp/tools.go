package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codenav-mcp/internal/query"
	"github.com/dshills/codenav-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeFileNotIndexed       = -32001 // File not present in the index
	ErrorCodeNoTokenAtPosition    = -32002 // No token intersects the requested span
	ErrorCodeIndexMissing         = -32003 // No index built for this repository
	ErrorCodeIndexStale           = -32004 // Index no longer matches the repository
	ErrorCodeIndexCorrupt         = -32005 // Index failed structural validation
	ErrorCodeRepositoryUnreadable = -32006 // Repository root cannot be read
)

// handleIndexRepository handles the index_repository tool invocation
func (s *Server) handleIndexRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rootPath, err := requireRootPath(args)
	if err != nil {
		return nil, err
	}
	indexPath := getStringDefault(args, "index_path", "")
	force := getBoolDefault(args, "force", false)

	stats, err := s.engine.IndexRepository(ctx, rootPath, indexPath, force)
	if err != nil {
		return nil, mapQueryError(err)
	}

	response := map[string]interface{}{
		"indexed":          true,
		"files_indexed":    stats.FilesIndexed,
		"files_failed":     stats.FilesFailed,
		"tokens_extracted": stats.TokensExtracted,
		"distinct_keys":    stats.DistinctKeys,
		"duration_ms":      stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGoTo handles the go_to tool invocation
func (s *Server) handleGoTo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rootPath, err := requireRootPath(args)
	if err != nil {
		return nil, err
	}
	relPath, ok := args["relative_path"].(string)
	if !ok || relPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "relative_path parameter is required", map[string]interface{}{
			"param":  "relative_path",
			"reason": "missing or empty",
		})
	}

	line, ok := getInt(args, "line")
	if !ok || line < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "line must be a non-negative integer", map[string]interface{}{
			"param": "line",
		})
	}
	startIndex, ok := getInt(args, "start_index")
	if !ok || startIndex < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "start_index must be a non-negative integer", map[string]interface{}{
			"param": "start_index",
		})
	}
	endIndex := getIntDefault(args, "end_index", startIndex)
	if endIndex < startIndex {
		return nil, newMCPError(ErrorCodeInvalidParams, "end_index must be >= start_index", map[string]interface{}{
			"param": "end_index",
			"value": endIndex,
		})
	}

	info, err := s.engine.GoTo(ctx, query.GoToRequest{
		RootPath:  rootPath,
		IndexPath: getStringDefault(args, "index_path", ""),
		File:      relPath,
		Span: types.Position{
			Line:        line,
			ColumnStart: startIndex,
			ColumnEnd:   endIndex,
		},
	})
	if err != nil {
		return nil, mapQueryError(err)
	}

	response := map[string]interface{}{
		"text":  info.Text,
		"kind":  string(info.Kind),
		"file":  info.File,
		"range": positionJSON(info.Range),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleTextSearch handles the text_search tool invocation
func (s *Server) handleTextSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rootPath, err := requireRootPath(args)
	if err != nil {
		return nil, err
	}
	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	results, err := s.engine.TextSearch(ctx, query.SearchRequest{
		RootPath:      rootPath,
		IndexPath:     getStringDefault(args, "index_path", ""),
		Query:         queryText,
		CaseSensitive: getBoolDefault(args, "case_sensitive", false),
	})
	if err != nil {
		return nil, mapQueryError(err)
	}

	return mcp.NewToolResultText(formatJSON(searchResultsJSON(results))), nil
}

// handleFuzzySearch handles the fuzzy_search tool invocation
func (s *Server) handleFuzzySearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rootPath, err := requireRootPath(args)
	if err != nil {
		return nil, err
	}
	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	maxDistance := getIntDefault(args, "max_distance", 0)
	if maxDistance < 0 || maxDistance > 10 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_distance must be between 1 and 10", map[string]interface{}{
			"param": "max_distance",
			"value": maxDistance,
		})
	}

	results, err := s.engine.FuzzySearch(ctx, query.FuzzyRequest{
		RootPath:    rootPath,
		IndexPath:   getStringDefault(args, "index_path", ""),
		Query:       queryText,
		MaxDistance: maxDistance,
	})
	if err != nil {
		return nil, mapQueryError(err)
	}

	return mcp.NewToolResultText(formatJSON(searchResultsJSON(results))), nil
}

// handleGetHoverableRanges handles the get_hoverable_ranges tool invocation
func (s *Server) handleGetHoverableRanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rootPath, err := requireRootPath(args)
	if err != nil {
		return nil, err
	}
	relPath, ok := args["relative_path"].(string)
	if !ok || relPath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "relative_path parameter is required", map[string]interface{}{
			"param":  "relative_path",
			"reason": "missing or empty",
		})
	}

	ranges, err := s.engine.HoverableRanges(ctx, query.HoverRequest{
		RootPath:  rootPath,
		IndexPath: getStringDefault(args, "index_path", ""),
		File:      relPath,
	})
	if err != nil {
		return nil, mapQueryError(err)
	}

	rangeList := make([]interface{}, len(ranges))
	for i, r := range ranges {
		rangeList[i] = positionJSON(r)
	}
	response := map[string]interface{}{
		"file":   relPath,
		"ranges": rangeList,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	indexPath := getStringDefault(args, "index_path", "")
	if indexPath == "" {
		rootPath, ok := args["root_path"].(string)
		if !ok || rootPath == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "index_path or root_path is required", nil)
		}
		indexPath = s.cfg.IndexPath(rootPath)
	}

	status, err := s.engine.Status(ctx, indexPath)
	if err != nil {
		return nil, mapQueryError(err)
	}

	if !status.Exists {
		response := map[string]interface{}{
			"indexed": false,
			"message": "No index found. Use the index_repository tool to build one.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response := map[string]interface{}{
		"indexed":       true,
		"stale":         status.Stale,
		"root_path":     status.RootPath,
		"files":         status.Files,
		"failed_files":  status.Failed,
		"tokens":        status.Tokens,
		"distinct_keys": status.DistinctKeys,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// mapQueryError translates engine sentinels to protocol error codes
func mapQueryError(err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrFileNotIndexed):
		code = ErrorCodeFileNotIndexed
	case errors.Is(err, types.ErrNoTokenAtPosition):
		code = ErrorCodeNoTokenAtPosition
	case errors.Is(err, types.ErrIndexMissing):
		code = ErrorCodeIndexMissing
	case errors.Is(err, types.ErrIndexStale):
		code = ErrorCodeIndexStale
	case errors.Is(err, types.ErrIndexCorrupt):
		code = ErrorCodeIndexCorrupt
	case errors.Is(err, types.ErrRepositoryUnreadable):
		code = ErrorCodeRepositoryUnreadable
	}
	return newMCPError(code, err.Error(), nil)
}

// requireRootPath extracts and validates the root_path argument
func requireRootPath(args map[string]interface{}) (string, error) {
	rootPath, ok := args["root_path"].(string)
	if !ok || rootPath == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "root_path parameter is required", map[string]interface{}{
			"param":  "root_path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(rootPath); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid root_path", map[string]interface{}{
			"param":  "root_path",
			"reason": err.Error(),
		})
	}
	return rootPath, nil
}

// validatePath checks if a path is an absolute, readable directory
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// positionJSON serializes a span for tool responses
func positionJSON(p types.Position) map[string]interface{} {
	return map[string]interface{}{
		"line":        p.Line,
		"start_index": p.ColumnStart,
		"end_index":   p.ColumnEnd,
	}
}

// searchResultsJSON serializes search results for tool responses
func searchResultsJSON(results []types.SearchResult) map[string]interface{} {
	list := make([]interface{}, len(results))
	for i, res := range results {
		postings := make([]interface{}, len(res.Postings))
		for j, p := range res.Postings {
			entry := positionJSON(p.Range)
			entry["file"] = p.File
			postings[j] = entry
		}
		list[i] = map[string]interface{}{
			"key":      res.Key,
			"score":    res.Score,
			"postings": postings,
		}
	}
	return map[string]interface{}{
		"results": list,
		"count":   len(results),
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getInt extracts an integer parameter, reporting whether it was present
func getInt(args map[string]interface{}, key string) (int, bool) {
	if val, ok := args[key].(float64); ok {
		return int(val), true
	}
	if val, ok := args[key].(int); ok {
		return val, true
	}
	return 0, false
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := getInt(args, key); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
