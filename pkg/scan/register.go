// Package scan implements the pending-scan register: the short-lived link
// between a scanned card identifier and the login attempt it belongs to.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/presenza/presenza/pkg/observability"
	"github.com/presenza/presenza/pkg/session"
)

// Register owns the PendingScan lifecycle. A pending scan is exclusively
// owned by the one session that created it; scan and login are two round
// trips tied together only by the session identifier.
type Register struct {
	store      session.Store
	scanTTL    time.Duration
	sessionTTL time.Duration
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewRegister creates a pending-scan register. metrics may be nil.
func NewRegister(store session.Store, scanTTL, sessionTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Register {
	return &Register{
		store:      store,
		scanTTL:    scanTTL,
		sessionTTL: sessionTTL,
		logger:     logger,
		metrics:    metrics,
	}
}

// BeginScan records a pending scan for the session and returns the session
// that now owns it. A scan always takes priority over a stale login: when
// the session already holds an authenticated identity, that session is
// destroyed and a fresh unauthenticated one takes its place (superseded is
// true). A prior unconsumed pending scan is silently replaced.
func (r *Register) BeginScan(ctx context.Context, sess *session.Session, cardID string) (*session.Session, bool, error) {
	superseded := false

	if sess.Authenticated() {
		if err := r.store.Delete(ctx, sess.ID); err != nil {
			return nil, false, fmt.Errorf("failed to destroy superseded session: %w", err)
		}
		r.logger.WithFields(map[string]interface{}{
			"subject_id": sess.Identity.SubjectID,
			"card_id":    cardID,
		}).Info("card scan superseded an authenticated session, forcing logout")
		if r.metrics != nil {
			r.metrics.ScanSupersedes.Inc()
		}

		fresh, err := session.New(r.sessionTTL)
		if err != nil {
			return nil, false, err
		}
		// Device stickiness survives the forced logout; the physical
		// terminal did not change.
		fresh.StickyMobileApp = sess.StickyMobileApp
		sess = fresh
		superseded = true
	}

	sess.PendingScan = &session.PendingScan{
		CardID:    cardID,
		CreatedAt: time.Now(),
	}

	if err := r.store.Set(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("failed to store pending scan: %w", err)
	}

	if r.metrics != nil {
		r.metrics.ScansTotal.WithLabelValues("accepted").Inc()
	}
	return sess, superseded, nil
}

// ConsumeScan removes and returns the pending card identifier. An expired
// scan is treated as absent: an abandoned scan must not permit a login
// arbitrarily long afterward. The caller persists the session.
func (r *Register) ConsumeScan(sess *session.Session) (string, bool) {
	if !r.pendingLive(sess) {
		sess.PendingScan = nil
		return "", false
	}
	cardID := sess.PendingScan.CardID
	sess.PendingScan = nil
	return cardID, true
}

// HasPending reports whether the session holds a live pending scan
func (r *Register) HasPending(sess *session.Session) bool {
	return r.pendingLive(sess)
}

func (r *Register) pendingLive(sess *session.Session) bool {
	if sess == nil || sess.PendingScan == nil {
		return false
	}
	return !sess.PendingScan.Expired(r.scanTTL, time.Now())
}
