// Package resources exposes booking sessions as read-only MCP resources.
//
// Two resources are registered:
//   - session://current: the conversation of the calling MCP client session
//   - session://{session_id}: any conversation by its ID
//
// Both return the stored session as JSON, or an error when it does not exist.
package resources
