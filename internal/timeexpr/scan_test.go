package timeexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScanDuration(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{text: "a 30 minute call", want: 30 * time.Minute},
		{text: "for 1.5 hours", want: 90 * time.Minute},
		{text: "90 mins", want: 90 * time.Minute},
		{text: "an hour", want: time.Hour},
		{text: "half an hour", want: 30 * time.Minute},
		{text: "an hour and a half", want: 90 * time.Minute},
		{text: "two hours", want: 2 * time.Hour},
		{text: "45m sync", want: 45 * time.Minute},
		{text: "tomorrow at 3pm", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Scan(tt.text).Duration)
		})
	}
}

func TestScanStartClock(t *testing.T) {
	tests := []struct {
		text   string
		hour   int
		minute int
		ok     bool
	}{
		{text: "3pm", hour: 15, ok: true},
		{text: "the 3:30 one", hour: 15, minute: 30, ok: true},
		{text: "at 10", hour: 10, ok: true},
		{text: "15:00", hour: 15, ok: true},
		{text: "09:00", hour: 9, ok: true},
		{text: "12am", hour: 0, ok: true},
		{text: "noon", hour: 12, ok: true},
		{text: "3-5pm", hour: 15, ok: true},
		{text: "friday", ok: false},
		{text: "3pm or 4pm", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h, m, ok := Scan(tt.text).StartClock()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.hour, h)
				assert.Equal(t, tt.minute, m)
			}
		})
	}
}

func TestScanRange(t *testing.T) {
	tests := []struct {
		text      string
		wantRange bool
	}{
		{text: "3-5pm", wantRange: true},
		{text: "3 to 5 pm", wantRange: true},
		{text: "from 2 to 3", wantRange: true},
		{text: "14:00-16:00", wantRange: true},
		{text: "between 2 and 4", wantRange: true},
		{text: "book 2 to 3 people tomorrow", wantRange: false},
		{text: "2-3 slots please", wantRange: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tok := Scan(tt.text)
			assert.Equal(t, tt.wantRange, tok.Range != nil)
		})
	}

	tok := Scan("book 2 to 3 people tomorrow")
	assert.Empty(t, tok.Clocks)
	assert.Len(t, tok.Days, 1)
}

func TestScanHasTime(t *testing.T) {
	assert.True(t, Scan("Tomorrow").HasTime())
	assert.True(t, Scan("in the afternoon").HasTime())
	assert.True(t, Scan("sept 3rd").HasTime())
	assert.False(t, Scan("book a meeting").HasTime())
	assert.False(t, Scan("option 2").HasTime())
	assert.False(t, Scan("30 minutes").HasTime())
}

func TestScanDays(t *testing.T) {
	tok := Scan("monday or next tuesday")
	if assert.Len(t, tok.Days, 2) {
		assert.Equal(t, time.Monday, tok.Days[0].Weekday)
		assert.Equal(t, "", tok.Days[0].Modifier)
		assert.Equal(t, time.Tuesday, tok.Days[1].Weekday)
		assert.Equal(t, "next", tok.Days[1].Modifier)
	}

	tok = Scan("14 March 2026")
	if assert.Len(t, tok.Days, 1) {
		assert.Equal(t, DayDate, tok.Days[0].Kind)
		assert.Equal(t, time.March, tok.Days[0].Month)
		assert.Equal(t, 14, tok.Days[0].Day)
		assert.Equal(t, 2026, tok.Days[0].Year)
	}
}
