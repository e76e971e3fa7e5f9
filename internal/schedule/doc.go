// Package schedule holds the value types shared by the booking core: time
// ranges, offered slots, busy intervals, booking requests and the
// conversation session with its state.
//
// All types are plain values. A Session is loaded from a store, transformed
// by the conversation state machine and saved back; nothing in this package
// performs I/O.
package schedule
