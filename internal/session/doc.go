// Package session stores conversation sessions between turns.
//
// Two backends implement Store: MemoryStore keeps sessions in process with
// an idle timeout, and ValkeyStore keeps them in Valkey (or Redis) as JSON
// with a key TTL. Both hand out copies; mutating a returned session never
// affects the stored one until it is saved.
package session
