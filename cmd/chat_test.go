package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestChatLoop_BooksAppointment(t *testing.T) {
	noColor(t)
	a := newTestApp(t)

	in := strings.NewReader(strings.Join([]string{
		"book a meeting tomorrow 3-5pm",
		"",
		"option 1",
		"yes",
		"quit",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), a.service, in, &out, true))

	got := out.String()
	assert.Contains(t, got, "When would you like to meet?")
	assert.Contains(t, got, "[PRESENTING_OPTIONS]")
	assert.Contains(t, got, "[CONFIRMING]")
	assert.Contains(t, got, "[BOOKED]")
	assert.Contains(t, got, "Anything else you would like to book?")
	assert.True(t, strings.HasSuffix(got, "Goodbye!\n"))

	// the demo calendar is busy from 3 to 4 PM, so the first option starts at 4
	assert.Contains(t, got, "4:00-5:00 PM")
}

func TestChatLoop_StartsNewSessionAfterCancel(t *testing.T) {
	noColor(t)
	a := newTestApp(t)

	in := strings.NewReader("book a call tomorrow afternoon\ncancel\nbook a meeting tomorrow 3-5pm\n")
	var out bytes.Buffer

	require.NoError(t, chatLoop(context.Background(), a.service, in, &out, true))

	got := out.String()
	assert.Contains(t, got, "[CANCELLED]")
	// the search after the cancellation runs in a fresh session
	assert.Equal(t, 2, strings.Count(got, "[PRESENTING_OPTIONS]"))
}

func TestChatLoop_HideState(t *testing.T) {
	a := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), a.service, strings.NewReader("hello\n"), &out, false))

	assert.NotContains(t, out.String(), "[INITIAL]")
	assert.NotContains(t, out.String(), "[GATHERING_INFO]")
}
