// Package intent classifies a user utterance into one of the intents the
// conversation state machine understands. Classification depends on the
// session state: "2" selects an option only while options are on the table,
// and "yes" confirms only while a confirmation is pending.
package intent
