package conversation

import (
	"fmt"
	"time"

	"github.com/teemow/tailortalk/internal/availability"
)

// Config holds the tunables of the conversation core.
type Config struct {
	// DefaultDuration is used when the user names no meeting length
	DefaultDuration time.Duration

	// Granularity is the grid candidate slot starts are aligned to
	Granularity time.Duration

	// HorizonDays bounds how far ahead a bare weekday may still mean the
	// following week before it is reported as ambiguous
	HorizonDays int

	// MaxSlots caps the number of options offered per search
	MaxSlots int

	// Location is the time zone all times are resolved and shown in
	Location *time.Location

	// Workday applies to searches over whole days
	Workday availability.Workday

	// CalendarTimeout bounds every calendar call
	CalendarTimeout time.Duration

	// EventSummary is the title of booked events
	EventSummary string
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultDuration: time.Hour,
		Granularity:     availability.DefaultGranularity,
		HorizonDays:     14,
		MaxSlots:        5,
		Location:        time.UTC,
		Workday:         availability.DefaultWorkday,
		CalendarTimeout: 10 * time.Second,
		EventSummary:    "Appointment",
	}
}

// Validate checks the configuration for values the machine cannot work with.
func (c Config) Validate() error {
	if c.DefaultDuration <= 0 {
		return fmt.Errorf("default duration must be positive, got %s", c.DefaultDuration)
	}
	if c.Granularity <= 0 {
		return fmt.Errorf("granularity must be positive, got %s", c.Granularity)
	}
	if c.HorizonDays < 0 {
		return fmt.Errorf("ambiguity horizon must not be negative, got %d", c.HorizonDays)
	}
	if c.MaxSlots <= 0 {
		return fmt.Errorf("max slots must be positive, got %d", c.MaxSlots)
	}
	if c.Location == nil {
		return fmt.Errorf("location is required")
	}
	if c.CalendarTimeout <= 0 {
		return fmt.Errorf("calendar timeout must be positive, got %s", c.CalendarTimeout)
	}
	if err := c.Workday.Validate(); err != nil {
		return fmt.Errorf("invalid working hours: %w", err)
	}
	return nil
}
