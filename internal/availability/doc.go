// Package availability computes free appointment slots from a search window
// and the busy intervals reported by a calendar.
//
// The engine is pure and deterministic: identical inputs always produce the
// same slots in the same order, which keeps the conversation layer and its
// tests reproducible.
package availability
