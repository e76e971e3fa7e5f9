package google

import (
	gcal "google.golang.org/api/calendar/v3"
)

// DefaultOAuthScopes are the scopes tailortalk asks for: reading free/busy
// information and creating events.
var DefaultOAuthScopes = []string{
	gcal.CalendarEventsScope,
	gcal.CalendarFreebusyScope,
}
