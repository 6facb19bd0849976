package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain outcomes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store, or was already consumed
// - ErrExpired: session has passed its TTL
var (
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("expired")
)
