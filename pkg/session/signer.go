package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// tokenPrefix marks a signed session token. Format: s:<id>.<base64url(hmac)>
const tokenPrefix = "s:"

// ErrInvalidToken is returned for malformed, forged or truncated tokens
var ErrInvalidToken = errors.New("invalid session token")

// Signer produces and verifies the signed form of a session identifier.
// The signed token is bearer-equivalent to the session cookie: same secrecy,
// same expiry (the id it resolves to is looked up in the store, which
// enforces expiry).
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from the server secret
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Signer{secret: secret}, nil
}

// Sign returns the out-of-band form of a session identifier
func (s *Signer) Sign(id string) string {
	return tokenPrefix + id + "." + base64.RawURLEncoding.EncodeToString(s.mac(id))
}

// Verify checks a signed token and returns the embedded session identifier.
// Any failure returns ErrInvalidToken; a forged token is never ambiguous.
func (s *Signer) Verify(token string) (string, error) {
	rest, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return "", ErrInvalidToken
	}

	dot := strings.LastIndexByte(rest, '.')
	if dot <= 0 || dot == len(rest)-1 {
		return "", ErrInvalidToken
	}

	id := rest[:dot]
	sig, err := base64.RawURLEncoding.DecodeString(rest[dot+1:])
	if err != nil {
		return "", ErrInvalidToken
	}

	if !hmac.Equal(sig, s.mac(id)) {
		return "", ErrInvalidToken
	}
	return id, nil
}

func (s *Signer) mac(id string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return h.Sum(nil)
}
