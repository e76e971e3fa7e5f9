// Package config loads tailortalk's configuration.
//
// Values come, in increasing order of precedence, from built-in defaults,
// an optional tailortalk.yaml file, TAILORTALK_* environment variables and
// command-line flags. Flag names use dashes where keys use underscores, so
// --calendar-timeout sets calendar_timeout. Nested keys map to environment
// variables with underscores: valkey.url is TAILORTALK_VALKEY_URL.
package config
