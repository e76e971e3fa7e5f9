package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/tailortalk/internal/schedule"
)

var day = time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func window(startHour, endHour int) schedule.TimeRange {
	return schedule.TimeRange{Start: at(startHour, 0), End: at(endHour, 0)}
}

func busy(sh, sm, eh, em int) schedule.BusyInterval {
	return schedule.BusyInterval{Start: at(sh, sm), End: at(eh, em)}
}

func starts(slots []schedule.Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Range.Start.Format("15:04")
	}
	return out
}

func TestFindSlots(t *testing.T) {
	engine := NewEngine(30 * time.Minute)

	tests := []struct {
		name       string
		window     schedule.TimeRange
		duration   time.Duration
		busy       []schedule.BusyInterval
		maxResults int
		want       []string
	}{
		{
			name:     "empty calendar",
			window:   window(15, 17),
			duration: time.Hour,
			want:     []string{"15:00", "15:30", "16:00"},
		},
		{
			name:       "max results",
			window:     window(9, 17),
			duration:   time.Hour,
			maxResults: 2,
			want:       []string{"09:00", "09:30"},
		},
		{
			name:     "busy in the middle",
			window:   window(9, 13),
			duration: time.Hour,
			busy:     []schedule.BusyInterval{busy(10, 0, 11, 0)},
			want:     []string{"09:00", "11:00", "11:30", "12:00"},
		},
		{
			name:     "overlapping busy merged",
			window:   window(9, 13),
			duration: time.Hour,
			busy: []schedule.BusyInterval{
				busy(10, 30, 11, 30),
				busy(9, 30, 10, 45),
			},
			want: []string{"11:30", "12:00"},
		},
		{
			name:     "fully busy",
			window:   window(9, 12),
			duration: 30 * time.Minute,
			busy:     []schedule.BusyInterval{busy(8, 0, 12, 30)},
			want:     []string{},
		},
		{
			name:     "duration longer than window",
			window:   window(9, 10),
			duration: 2 * time.Hour,
			want:     []string{},
		},
		{
			name:     "zero duration",
			window:   window(9, 10),
			duration: 0,
			want:     []string{},
		},
		{
			name:     "unaligned gap aligned to grid",
			window:   schedule.TimeRange{Start: at(9, 10), End: at(11, 0)},
			duration: time.Hour,
			want:     []string{"09:30", "10:00"},
		},
		{
			name:     "unaligned gap too short for grid keeps one slot",
			window:   schedule.TimeRange{Start: at(9, 10), End: at(10, 10)},
			duration: time.Hour,
			want:     []string{"09:10"},
		},
		{
			name:     "busy outside window ignored",
			window:   window(9, 11),
			duration: time.Hour,
			busy:     []schedule.BusyInterval{busy(6, 0, 7, 0), busy(12, 0, 13, 0)},
			want:     []string{"09:00", "09:30", "10:00"},
		},
		{
			name:     "invalid busy interval ignored",
			window:   window(9, 10),
			duration: time.Hour,
			busy:     []schedule.BusyInterval{busy(9, 30, 9, 0)},
			want:     []string{"09:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.FindSlots(tt.window, tt.duration, tt.busy, tt.maxResults)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, starts(got))
		})
	}
}

func TestMerge(t *testing.T) {
	in := []schedule.BusyInterval{
		busy(13, 0, 14, 0),
		busy(9, 0, 10, 0),
		busy(10, 0, 10, 30),
		busy(9, 30, 9, 45),
	}

	merged := Merge(in)
	require.Len(t, merged, 2)
	assert.Equal(t, at(9, 0), merged[0].Start)
	assert.Equal(t, at(10, 30), merged[0].End)
	assert.Equal(t, at(13, 0), merged[1].Start)

	assert.Equal(t, merged, Merge(merged))
}

func randomBusy(r *rand.Rand) []schedule.BusyInterval {
	n := r.Intn(8)
	out := make([]schedule.BusyInterval, 0, n)
	for i := 0; i < n; i++ {
		start := at(8, 0).Add(time.Duration(r.Intn(20*4)) * 15 * time.Minute)
		length := time.Duration(1+r.Intn(8)) * 15 * time.Minute
		out = append(out, schedule.BusyInterval{Start: start, End: start.Add(length)})
	}
	return out
}

func TestFindSlotsProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	engine := NewEngine(15 * time.Minute)
	w := window(9, 18)

	for i := 0; i < 500; i++ {
		b := randomBusy(r)
		duration := time.Duration(1+r.Intn(8)) * 15 * time.Minute

		slots := engine.FindSlots(w, duration, b, 0)

		for _, slot := range slots {
			assert.Equal(t, duration, slot.Range.Duration())
			assert.True(t, w.Contains(slot.Range))
			for _, interval := range b {
				assert.False(t, slot.Range.Overlaps(interval.Range()), "slot %s overlaps busy %s", slot.Range, interval.Range())
			}
		}

		assert.Equal(t, slots, engine.FindSlots(w, duration, Merge(b), 0), "merge idempotence")
		assert.Equal(t, slots, engine.FindSlots(w, duration, b, 0), "determinism")
	}
}

func TestOffHours(t *testing.T) {
	wd := DefaultWorkday
	w := schedule.TimeRange{Start: at(0, 0), End: at(24, 0)}

	blocked := wd.OffHours(w, time.UTC)
	require.Len(t, blocked, 2)
	assert.Equal(t, at(0, 0), blocked[0].Start)
	assert.Equal(t, at(9, 0), blocked[0].End)
	assert.Equal(t, at(17, 0), blocked[1].Start)
	assert.Equal(t, at(24, 0), blocked[1].End)

	slots := NewEngine(time.Hour).FindSlots(w, time.Hour, blocked, 0)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}, starts(slots))
}

func TestOutsideMultiDay(t *testing.T) {
	w := schedule.TimeRange{Start: at(10, 0), End: at(24+24, 0)}

	blocked := Outside(w, time.UTC, 15*time.Hour, 17*time.Hour)
	slots := NewEngine(30*time.Minute).FindSlots(w, time.Hour, blocked, 0)

	require.Len(t, slots, 6)
	assert.Equal(t, []string{"15:00", "15:30", "16:00", "15:00", "15:30", "16:00"}, starts(slots))
	assert.Equal(t, day.AddDate(0, 0, 1).Day(), slots[3].Range.Start.Day())
}

func TestWorkdayValidate(t *testing.T) {
	assert.NoError(t, DefaultWorkday.Validate())
	assert.Error(t, Workday{StartHour: 17, EndHour: 9}.Validate())
	assert.Error(t, Workday{StartHour: -1, EndHour: 9}.Validate())
}
