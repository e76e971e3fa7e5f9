// Package response renders conversation payloads into user-facing text.
//
// Compose is pure formatting. Offered slots are always listed in stored
// order as "Option N: <label>", so that a later "option N" refers to exactly
// the slot the user saw.
package response
