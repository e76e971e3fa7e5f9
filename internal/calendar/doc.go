// Package calendar provides the calendar backends the conversation service
// books against.
//
// Two backends are available:
//   - Client talks to Google Calendar through the Calendar v3 API. Busy
//     intervals come from the free/busy endpoint and events are inserted with
//     a caller-supplied ID so that a retried booking never creates a second
//     event.
//   - Memory keeps events in process. It backs the demo mode and tests.
//
// Backends can be wrapped with WithRateLimit and Instrument. Both decorators
// preserve the Backend interface:
//
//	var cal calendar.Backend = calendar.NewMemory()
//	cal = calendar.WithRateLimit(cal, 5, 1)
//	cal = calendar.Instrument(cal, instrumentation.BackendMemory, "primary", metrics)
package calendar
