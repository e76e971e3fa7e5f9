// Package cmd implements the command-line interface for tailortalk.
//
// This package provides the following commands:
//   - chat: Book an appointment in an interactive terminal conversation
//   - serve: Start the MCP server to provide scheduling tools for AI assistants
//   - slots: List free slots in a time window
//   - auth: Authorize access to a Google calendar
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The chat command is the default command when no subcommand is specified.
package cmd
