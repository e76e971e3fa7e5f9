package schedule_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tailortalk/internal/schedule"
	"github.com/teemow/tailortalk/internal/server"
	"github.com/teemow/tailortalk/internal/tools/common"
)

// RegisterAvailabilityTools registers the direct availability query tool
func RegisterAvailabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	findSlotsTool := mcp.NewTool("schedule_find_slots",
		mcp.WithDescription("Find free slots of a given length in a time range, without starting a conversation"),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start of the range (RFC3339 with time zone, e.g., '2025-01-16T09:00:00Z')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End of the range (RFC3339 with time zone, e.g., '2025-01-16T17:00:00+01:00')"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Required(),
			mcp.Description("Slot length in minutes"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of slots to return (default: the configured maximum)"),
		),
	)

	s.AddTool(findSlotsTool, common.InstrumentedToolHandler("schedule_find_slots", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindSlots(ctx, request, sc)
		}))

	return nil
}

// findSlotsResult is the JSON answer of schedule_find_slots
type findSlotsResult struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Duration string          `json:"duration"`
	Slots    []schedule.Slot `json:"slots"`
}

func handleFindSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	start, end := common.StringArg(args, "start"), common.StringArg(args, "end")
	if start == "" || end == "" {
		return mcp.NewToolResultError("start and end are required"), nil
	}
	window, err := schedule.ParseRange(start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid time range: %v", err)), nil
	}

	minutes, err := common.IntArg(args, "durationMinutes", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if minutes <= 0 {
		return mcp.NewToolResultError("durationMinutes must be positive"), nil
	}
	maxResults, err := common.IntArg(args, "maxResults", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	duration := time.Duration(minutes) * time.Minute
	slots, err := sc.Service().FindSlots(ctx, window, duration, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to find slots: %v", err)), nil
	}
	if slots == nil {
		slots = []schedule.Slot{}
	}

	return jsonResult(findSlotsResult{
		Start:    window.Start,
		End:      window.End,
		Duration: schedule.FormatDuration(duration),
		Slots:    slots,
	})
}
