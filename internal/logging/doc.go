// Package logging provides structured logging utilities for tailortalk.
//
// It centralizes attribute naming so conversation, calendar and server logs
// can be correlated, and it keeps session identifiers and tokens out of log
// output.
//
// # Usage Patterns
//
//	logger := logging.WithSession(slog.Default(), sessionID)
//	logger.Info("turn handled",
//	    logging.Intent("select_slot"),
//	    logging.Transition("PRESENTING_OPTIONS", "CONFIRMING"))
//
// Session identifiers are hashed by WithSession and SessionHash. Use
// SanitizeToken for anything that looks like a credential.
package logging
