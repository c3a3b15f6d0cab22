package sso

import (
	"context"
	"fmt"
	"time"

	"github.com/presenza/presenza/pkg/autherr"
	"github.com/presenza/presenza/pkg/observability"
	"github.com/presenza/presenza/pkg/scan"
	"github.com/presenza/presenza/pkg/session"
)

// State names a position in the assertion-consumer state machine
type State string

const (
	StateUnauthenticated         State = "unauthenticated"
	StateAssertionReceived       State = "assertion_received"
	StateCardChecked             State = "card_checked"
	StateUnconditionallyAccepted State = "unconditionally_accepted"
	StateSessionEstablished      State = "session_established"
	StateAssertionInvalid        State = "assertion_invalid"
	StateCardMismatch            State = "card_mismatch"
)

// Consumer reconciles a validated assertion against the session's pending
// card scan and, on success, establishes the authenticated session.
//
// The IdP round trip is asynchronous and redirect-based: everything needed
// after the callback (target role, pending card) was persisted server-side
// before the redirect and is read back here.
type Consumer struct {
	store      session.Store
	register   *scan.Register
	sessionTTL time.Duration
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewConsumer creates an assertion consumer. metrics may be nil.
func NewConsumer(store session.Store, register *scan.Register, sessionTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Consumer {
	return &Consumer{
		store:      store,
		register:   register,
		sessionTTL: sessionTTL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Establish drives assertion_received to a terminal state. On card mismatch
// the session is destroyed, no identity is created and an AuthorizationError
// is returned; both identifiers are logged for audit. On success the pending
// scan is consumed and the session holds the new identity.
func (c *Consumer) Establish(ctx context.Context, sess *session.Session, claims *Claims) (*session.Session, State, error) {
	assertedKey := claims.ComparisonKey()
	cardID := assertedKey
	state := StateUnconditionallyAccepted

	if c.register.HasPending(sess) {
		pendingCardID := sess.PendingScan.CardID
		if assertedKey != pendingCardID {
			c.abort(ctx, sess)
			c.logger.WithFields(map[string]interface{}{
				"scanned_card_id":  pendingCardID,
				"asserted_card_id": assertedKey,
				"subject_id":       claims.SubjectID,
			}).Warn("asserted identity does not match scanned card")
			c.count(string(StateCardMismatch))
			return nil, StateCardMismatch, autherr.Authorization("cardId",
				"federated identity does not correspond to the scanned card")
		}
		state = StateCardChecked
		cardID = pendingCardID
	}

	role := sess.IntendedRole
	if role == "" {
		role = session.RoleWorker
	}

	sess.Identity = &session.AuthenticatedIdentity{
		SubjectID:   claims.SubjectID,
		Role:        role,
		CardID:      cardID,
		DisplayName: claims.DisplayName(),
	}
	c.register.ConsumeScan(sess)
	sess.IntendedRole = ""

	now := time.Now()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(c.sessionTTL)

	if err := c.store.Set(ctx, sess); err != nil {
		return nil, state, fmt.Errorf("failed to persist established session: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"subject_id": claims.SubjectID,
		"role":       string(role),
		"card_id":    cardID,
		"path":       string(state),
	}).Info("session established")
	c.count(string(StateSessionEstablished))

	return sess, StateSessionEstablished, nil
}

// RecordInvalidAssertion counts a protocol-level validation failure. No
// session state exists to tear down: the assertion never produced one.
func (c *Consumer) RecordInvalidAssertion(err error) {
	c.logger.WithError(err).Warn("assertion failed validation")
	c.count(string(StateAssertionInvalid))
}

// abort destroys all session state for a failed attempt; the pending scan
// dies with the session record.
func (c *Consumer) abort(ctx context.Context, sess *session.Session) {
	if err := c.store.Delete(ctx, sess.ID); err != nil {
		c.logger.WithError(err).Error("failed to destroy session after card mismatch")
	}
}

func (c *Consumer) count(outcome string) {
	if c.metrics != nil {
		c.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
