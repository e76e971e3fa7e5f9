package schedule_tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tailortalk/internal/calendar"
	"github.com/teemow/tailortalk/internal/conversation"
	"github.com/teemow/tailortalk/internal/schedule"
	"github.com/teemow/tailortalk/internal/server"
	"github.com/teemow/tailortalk/internal/session"
)

// Wednesday 2025-01-15 10:00 UTC
var ref = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestContext(t *testing.T, busy ...schedule.BusyInterval) (*server.ServerContext, *calendar.Memory) {
	t.Helper()
	cal := calendar.NewMemory(busy...)
	svc := conversation.NewService(conversation.DefaultConfig(), cal, session.NewMemoryStore(),
		conversation.WithClock(func() time.Time { return ref }))
	sc, err := server.NewServerContext(context.Background(), svc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, cal
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func sendMessage(t *testing.T, sc *server.ServerContext, sessionID, message string) conversation.Reply {
	t.Helper()
	result, err := handleMessage(context.Background(), callRequest(map[string]interface{}{
		"session_id": sessionID,
		"message":    message,
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var reply conversation.Reply
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &reply))
	return reply
}

func TestRegisterScheduleTools(t *testing.T) {
	sc, _ := newTestContext(t)
	s := mcpserver.NewMCPServer("test", "test", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterScheduleTools(s, sc))
	assert.Error(t, RegisterScheduleTools(s, nil))
}

func TestScheduleMessage_BookingConversation(t *testing.T) {
	sc, cal := newTestContext(t)

	reply := sendMessage(t, sc, "chat-1", "book a meeting tomorrow 3-5pm")
	assert.Equal(t, "chat-1", reply.SessionID)
	assert.Equal(t, schedule.StateInitial, reply.Previous)
	assert.Equal(t, schedule.StatePresentingOptions, reply.State)
	require.Len(t, reply.Slots, 1)

	reply = sendMessage(t, sc, "chat-1", "option 1")
	assert.Equal(t, schedule.StateConfirming, reply.State)

	reply = sendMessage(t, sc, "chat-1", "yes")
	assert.Equal(t, schedule.StateBooked, reply.State)
	require.NotEmpty(t, reply.EventID)

	events := cal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, reply.EventID, events[0].ID)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 1, 16, 15, 0, 0, 0, time.UTC)))
}

func TestScheduleMessage_GeneratesSession(t *testing.T) {
	sc, _ := newTestContext(t)

	reply := sendMessage(t, sc, "", "hello")
	assert.NotEmpty(t, reply.SessionID)
	assert.NotEmpty(t, reply.Text)
}

func TestScheduleMessage_RequiresMessage(t *testing.T) {
	sc, _ := newTestContext(t)

	result, err := handleMessage(context.Background(), callRequest(map[string]interface{}{"message": "  "}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestScheduleResetSession(t *testing.T) {
	sc, _ := newTestContext(t)
	sendMessage(t, sc, "chat-1", "book a meeting tomorrow 3-5pm")

	result, err := handleReset(context.Background(), callRequest(map[string]interface{}{"session_id": "chat-1"}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	_, found, err := sc.Service().Session(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.False(t, found)

	result, err = handleReset(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError, "no session to reset")
}

func TestScheduleFindSlots(t *testing.T) {
	sc, _ := newTestContext(t, schedule.BusyInterval{
		Start: time.Date(2025, 1, 16, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC),
	})

	result, err := handleFindSlots(context.Background(), callRequest(map[string]interface{}{
		"start":           "2025-01-16T09:00:00Z",
		"end":             "2025-01-16T12:00:00Z",
		"durationMinutes": float64(60),
		"maxResults":      float64(2),
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out findSlotsResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Len(t, out.Slots, 2)
	assert.True(t, out.Slots[0].Range.Start.Equal(time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC)))
}

func TestScheduleFindSlots_InvalidArguments(t *testing.T) {
	sc, _ := newTestContext(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing range", map[string]interface{}{"durationMinutes": float64(30)}},
		{"naive timestamp", map[string]interface{}{"start": "2025-01-16T09:00:00", "end": "2025-01-16T12:00:00Z", "durationMinutes": float64(30)}},
		{"reversed range", map[string]interface{}{"start": "2025-01-16T12:00:00Z", "end": "2025-01-16T09:00:00Z", "durationMinutes": float64(30)}},
		{"zero duration", map[string]interface{}{"start": "2025-01-16T09:00:00Z", "end": "2025-01-16T12:00:00Z", "durationMinutes": float64(0)}},
		{"fractional max", map[string]interface{}{"start": "2025-01-16T09:00:00Z", "end": "2025-01-16T12:00:00Z", "durationMinutes": float64(30), "maxResults": 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleFindSlots(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

func TestScheduleListEvents(t *testing.T) {
	sc, cal := newTestContext(t)
	ctx := context.Background()

	standup := schedule.BookingRequest{
		Range:          schedule.TimeRange{Start: time.Date(2025, 1, 16, 9, 0, 0, 0, time.UTC), End: time.Date(2025, 1, 16, 9, 30, 0, 0, time.UTC)},
		Summary:        "Standup",
		IdempotencyKey: "standup",
	}
	_, err := cal.CreateEvent(ctx, standup)
	require.NoError(t, err)
	sendMessage(t, sc, "chat-1", "book a meeting tomorrow 3-5pm")
	sendMessage(t, sc, "chat-1", "option 1")
	sendMessage(t, sc, "chat-1", "yes")

	result, err := handleListEvents(ctx, callRequest(nil), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out listEventsResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	require.Equal(t, 2, out.Count)
	assert.Equal(t, "Standup", out.Events[0].Summary)
	assert.True(t, out.Events[1].Start.Equal(time.Date(2025, 1, 16, 15, 0, 0, 0, time.UTC)))

	result, err = handleListEvents(ctx, callRequest(map[string]interface{}{"query": "standup", "maxResults": float64(5)}), sc)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "standup", out.Query)

	result, err = handleListEvents(ctx, callRequest(map[string]interface{}{"maxResults": float64(-1)}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestScheduleClearSessions(t *testing.T) {
	sc, _ := newTestContext(t)
	sendMessage(t, sc, "chat-1", "hello")
	sendMessage(t, sc, "chat-2", "hello")

	result, err := handleClearSessions(context.Background(), callRequest(nil), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError, "confirmation is required")

	result, err = handleClearSessions(context.Background(), callRequest(map[string]interface{}{"confirm": true}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Cleared 2 sessions.", resultText(t, result))

	for _, id := range []string{"chat-1", "chat-2"} {
		_, found, err := sc.Service().Session(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, found)
	}
}
