// Package timeexpr resolves natural-language date and time phrases such as
// "tomorrow afternoon", "next friday at 3pm" or "between 2 and 4pm" into
// concrete search windows.
//
// Resolution is anchored to a caller-supplied reference time and always
// returns values in the resolver's configured location. Phrases that match
// more than one plausible day, or none, are reported as a *ResolutionError
// so the caller can ask the user instead of guessing.
package timeexpr
