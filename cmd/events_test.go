package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tailortalk/internal/calendar"
)

func TestPrintEvents(t *testing.T) {
	events := []calendar.Event{{
		ID:       "evt-1",
		Summary:  "Appointment",
		Location: "Room 1",
		Start:    time.Date(2025, time.January, 16, 15, 0, 0, 0, time.UTC),
		End:      time.Date(2025, time.January, 16, 16, 0, 0, 0, time.UTC),
	}}

	var text bytes.Buffer
	require.NoError(t, printEvents(&text, events, false))
	assert.Contains(t, text.String(), "Thursday, January 16 3:00-4:00 PM")
	assert.Contains(t, text.String(), "Room 1")
	assert.Contains(t, text.String(), "evt-1")

	var js bytes.Buffer
	require.NoError(t, printEvents(&js, events, true))
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "evt-1", decoded[0]["id"])
}

func TestPrintEvents_Empty(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, printEvents(&text, nil, false))
	assert.Equal(t, "No upcoming events.\n", text.String())

	var js bytes.Buffer
	require.NoError(t, printEvents(&js, nil, true))
	assert.Equal(t, "[]\n", js.String())
}

func TestEventsCommand_MemoryBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Cleanup(func() { configFile = "" })

	cmd := newEventsCmd()
	addConfigFlags(cmd.Flags())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--calendar-backend", "memory", "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	// the demo calendar only has busy blocks, no events
	assert.Equal(t, "No upcoming events.\n", out.String())
}
