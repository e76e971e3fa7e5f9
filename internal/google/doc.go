// Package google provides OAuth2 token management for the Google Calendar
// backend.
//
// Tokens are stored per account as JSON files in the user cache directory
// (for example ~/.cache/tailortalk/google-default.token). The TokenProvider
// interface lets the calendar client obtain tokens without knowing where they
// come from.
package google
