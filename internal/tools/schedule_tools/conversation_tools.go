package schedule_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tailortalk/internal/conversation"
	"github.com/teemow/tailortalk/internal/server"
	"github.com/teemow/tailortalk/internal/tools/common"
)

// RegisterConversationTools registers the message and reset tools
func RegisterConversationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	messageTool := mcp.NewTool("schedule_message",
		mcp.WithDescription(`Send a message to the booking assistant and get its reply.

The assistant understands requests such as "book a meeting tomorrow 3-5pm",
"option 2", "yes" or "cancel". The reply carries the conversation state, the
offered slots and, once booked, the calendar event ID.`),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message in plain language"),
		),
		mcp.WithString("session_id",
			mcp.Description("Conversation to continue. Defaults to the MCP client session; a new conversation is started when neither exists."),
		),
	)

	s.AddTool(messageTool, common.InstrumentedToolHandler("schedule_message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMessage(ctx, request, sc)
		}))

	resetTool := mcp.NewTool("schedule_reset_session",
		mcp.WithDescription("Forget a booking conversation so that the next message starts over"),
		mcp.WithString("session_id",
			mcp.Description("Conversation to reset. Defaults to the MCP client session."),
		),
	)

	s.AddTool(resetTool, common.InstrumentedToolHandler("schedule_reset_session", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReset(ctx, request, sc)
		}))

	clearTool := mcp.NewTool("schedule_clear_sessions",
		mcp.WithDescription("Forget every booking conversation. Booked events are kept."),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true; guards against accidental calls"),
		),
	)

	s.AddTool(clearTool, common.InstrumentedToolHandler("schedule_clear_sessions", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClearSessions(ctx, request, sc)
		}))

	return nil
}

func handleClearSessions(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if confirm, _ := request.GetArguments()["confirm"].(bool); !confirm {
		return mcp.NewToolResultError("confirm must be true to clear all sessions"), nil
	}

	n, err := sc.Service().ResetAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to clear sessions: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d sessions.", n)), nil
}

func handleMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	message := strings.TrimSpace(common.StringArg(request.GetArguments(), "message"))
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	sessionID := common.SessionIDFromRequest(ctx, request)
	reply, err := sc.Service().HandleTurn(ctx, sessionID, message)
	common.RecordSession(ctx, reply.SessionID)
	if err != nil {
		if errors.Is(err, conversation.ErrInvariantViolation) {
			common.RecordTransition(ctx, reply.Previous.String(), reply.State.String())
			return mcp.NewToolResultError(reply.Text), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to handle message: %v", err)), nil
	}

	common.RecordTransition(ctx, reply.Previous.String(), reply.State.String())
	return jsonResult(reply)
}

func handleReset(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sessionID := common.SessionIDFromRequest(ctx, request)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if err := sc.Service().Reset(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reset session: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s reset.", sessionID)), nil
}
