// Package schedule_tools exposes the conversational booking flow as MCP tools.
//
// Available tools:
//   - schedule_message: send one user message to a booking conversation
//   - schedule_reset_session: forget a conversation
//   - schedule_find_slots: list free slots in a time range without a conversation
//
// Conversations are keyed by the session_id argument. When it is omitted the
// MCP client session is used, so a client talking over one connection keeps
// its conversation without tracking IDs.
package schedule_tools
