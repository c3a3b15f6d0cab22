package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Role is the requested login role, recorded before the redirect to the IdP
// and preserved across the round trip. It is intent, not a claim.
type Role string

const (
	RoleWorker        Role = "worker"
	RoleEstablishment Role = "establishment"
	RoleDepartment    Role = "department"
)

// ParseRole validates a role string, defaulting to worker when empty
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleWorker, RoleEstablishment, RoleDepartment:
		return Role(s), nil
	case "":
		return RoleWorker, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// AuthenticatedIdentity is the identity produced by a successful login.
// CardID equals the asserted card number, or the subject ID for logins that
// were not card-triggered.
type AuthenticatedIdentity struct {
	SubjectID       string  `json:"subject_id"`
	Role            Role    `json:"role"`
	CardID          string  `json:"card_id"`
	DisplayName     string  `json:"display_name,omitempty"`
	EstablishmentID *string `json:"establishment_id,omitempty"`
}

// PendingScan links a scanned card identifier to an in-progress login
// attempt. At most one pending scan is live per session; a newer scan always
// supersedes it.
type PendingScan struct {
	CardID    string    `json:"card_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the scan is older than ttl
func (p *PendingScan) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.After(p.CreatedAt.Add(ttl))
}

// Session is the server-side state keyed by the opaque session identifier.
// It holds both pre-auth state (pending scan, intended role, sticky device
// flag) and the post-auth identity, so the asynchronous IdP round trip can
// read back everything recorded before the redirect.
type Session struct {
	ID              string                 `json:"id"`
	Identity        *AuthenticatedIdentity `json:"identity,omitempty"`
	PendingScan     *PendingScan           `json:"pending_scan,omitempty"`
	IntendedRole    Role                   `json:"intended_role,omitempty"`
	StickyMobileApp bool                   `json:"sticky_mobile_app,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ExpiresAt       time.Time              `json:"expires_at"`
}

// Authenticated reports whether the session holds an identity
func (s *Session) Authenticated() bool {
	return s != nil && s.Identity != nil
}

// Expired reports whether the session has passed its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

const (
	// idPrefix identifies presenza session identifiers
	idPrefix = "pz_"
	// idLength is the number of random bytes in an identifier (256 bits)
	idLength = 32
)

// NewID generates a cryptographically random session identifier.
// Format: pz_<base64url(32 random bytes)>
func NewID() (string, error) {
	raw := make([]byte, idLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return idPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// New creates an unauthenticated session with a fresh identifier
func New(ttl time.Duration) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}
