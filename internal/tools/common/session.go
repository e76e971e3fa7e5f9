package common

import (
	"context"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// SessionIDFromRequest picks the conversation session for a tool call.
//
// Priority order:
//  1. Explicit "session_id" argument
//  2. The MCP client session of the connection
//  3. "" (the service generates a new ID)
func SessionIDFromRequest(ctx context.Context, request mcp.CallToolRequest) string {
	if id, ok := request.GetArguments()["session_id"].(string); ok && id != "" {
		return id
	}
	if cs := mcpserver.ClientSessionFromContext(ctx); cs != nil {
		return cs.SessionID()
	}
	return ""
}

// StringArg returns a string argument, or "" when absent or of another type.
func StringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg returns a whole-number argument. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
	return int(f), nil
}
