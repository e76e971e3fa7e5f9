package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tailortalk/internal/instrumentation"
	"github.com/teemow/tailortalk/internal/server"
)

// ToolHandler is the signature of MCP tool handlers.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

var errToolResult = errors.New("tool returned an error result")

type invocationKey struct{}

// RecordTransition attaches the conversation state change of a tool call to
// its audit record. It does nothing outside an instrumented handler.
func RecordTransition(ctx context.Context, from, to string) {
	if inv, ok := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation); ok {
		inv.WithTransition(from, to)
	}
}

// RecordSession attaches the session ID a handler settled on, e.g. a
// generated one, to its audit record.
func RecordSession(ctx context.Context, sessionID string) {
	if inv, ok := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation); ok && sessionID != "" {
		inv.WithSession(sessionID)
	}
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).WithSpanContext(ctx)
		if id := SessionIDFromRequest(ctx, request); id != "" {
			invocation.WithSession(id)
		}
		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errToolResult
		}
		invocation.Complete(failure)

		if failure != nil {
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), time.Since(start))
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}
