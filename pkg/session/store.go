package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no live session exists for an identifier
var ErrNotFound = errors.New("session not found")

// Store is the server-side session mapping. All mutations to a given
// session are read-modify-write per key; the supported flows (scan, then
// redirect, then callback) are strictly sequential for one session, so no
// cross-key coordination is needed. Deployments spanning multiple processes
// must use an externalized backend because the IdP round trip may land on a
// different instance than the one that began the scan.
type Store interface {
	// Get retrieves a session by id. Expired sessions are treated as absent.
	Get(ctx context.Context, id string) (*Session, error)
	// Set creates or replaces a session record.
	Set(ctx context.Context, sess *Session) error
	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
	// Touch extends a session's expiry without rewriting its state.
	Touch(ctx context.Context, id string, expiresAt time.Time) error
}
