// Package session stores browser session artifacts awaiting a challenge
// answer. Entries are keyed by an opaque id, expire after a fixed TTL, and are
// consumed at most once.
package session

import "context"

// Store is the keyed, expiring session store. Implementations must be safe for
// concurrent use; Take must be atomic per key so a session can never satisfy
// two submissions.
type Store interface {
	// Put inserts a new session.
	Put(ctx context.Context, s *VerificationSession) error
	// Get returns the session without consuming it. Returns
	// sentinel.ErrNotFound when absent and sentinel.ErrExpired when past TTL.
	Get(ctx context.Context, id string) (*VerificationSession, error)
	// Take atomically removes and returns the session. Same errors as Get; a
	// second Take of the same id reports sentinel.ErrNotFound.
	Take(ctx context.Context, id string) (*VerificationSession, error)
	// Len reports the number of live sessions, for the metrics gauge.
	Len(ctx context.Context) (int, error)
}
