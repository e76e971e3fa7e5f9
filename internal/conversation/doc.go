// Package conversation drives a booking conversation from the first message
// to a committed calendar event.
//
// The package is split in two halves. Machine is pure: Decide maps the
// current session and a classified intent to the next session value, at most
// one calendar effect and a reply payload; CompleteSearch and CompleteBooking
// fold the effect's outcome back in. Service is the effectful half: it
// serializes turns per session, loads and saves sessions, runs effects
// against a Calendar under a timeout and renders replies.
//
// States move INITIAL -> GATHERING_INFO -> PRESENTING_OPTIONS -> CONFIRMING
// -> BOOKED. Cancel reaches CANCELLED from any open state and a broken
// session invariant ends in ERROR. BOOKED, CANCELLED and ERROR never change
// again.
package conversation
