package instrumentation

import (
	"context"
	"errors"

	"github.com/teemow/tailortalk/internal/schedule"
)

// ErrorResult maps an error to one of a fixed set of result labels so that
// error messages never end up as metric label values.
//
//	ErrorResult(nil)                             // "success"
//	ErrorResult(context.DeadlineExceeded)        // "timeout"
//	ErrorResult(schedule.ErrSlotConflict)        // "conflict"
//	ErrorResult(schedule.ErrCalendarUnavailable) // "unavailable"
//	ErrorResult(errors.New("boom"))              // "error"
func ErrorResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return ResultTimeout
	case errors.Is(err, schedule.ErrSlotConflict):
		return ResultConflict
	case errors.Is(err, schedule.ErrCalendarUnavailable):
		return ResultUnavailable
	}
	return ResultError
}

// Status returns "success" or "error"
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
