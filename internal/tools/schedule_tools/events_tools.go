package schedule_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tailortalk/internal/calendar"
	"github.com/teemow/tailortalk/internal/conversation"
	"github.com/teemow/tailortalk/internal/server"
	"github.com/teemow/tailortalk/internal/tools/common"
)

// RegisterEventTools registers the read-only event listing tool
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listEventsTool := mcp.NewTool("schedule_list_events",
		mcp.WithDescription("List upcoming events on the booking calendar, optionally filtered by text"),
		mcp.WithString("query",
			mcp.Description("Free text matched against event titles, descriptions and locations"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Maximum number of events to return (default: %d)", calendar.DefaultMaxEvents)),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandler("schedule_list_events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	return nil
}

type listEventsResult struct {
	Query  string           `json:"query,omitempty"`
	Count  int              `json:"count"`
	Events []calendar.Event `json:"events"`
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	maxResults, err := common.IntArg(args, "maxResults", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if maxResults < 0 {
		return mcp.NewToolResultError("maxResults must not be negative"), nil
	}
	query := common.StringArg(args, "query")

	events, err := sc.Service().UpcomingEvents(ctx, query, maxResults)
	if errors.Is(err, conversation.ErrEventsUnsupported) {
		return mcp.NewToolResultError("The configured calendar cannot list events"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}
	if events == nil {
		events = []calendar.Event{}
	}

	return jsonResult(listEventsResult{Query: query, Count: len(events), Events: events})
}
