package scan

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenza/presenza/pkg/observability"
	"github.com/presenza/presenza/pkg/session"
)

func newTestRegister(t *testing.T, scanTTL time.Duration) (*Register, *session.MemoryStore) {
	t.Helper()

	store := session.NewMemoryStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewRegister(store, scanTTL, time.Hour, logger, nil), store
}

func TestBeginScan(t *testing.T) {
	ctx := context.Background()
	register, store := newTestRegister(t, 5*time.Minute)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)

	got, superseded, err := register.BeginScan(ctx, sess, "CARD-1")
	require.NoError(t, err)
	assert.False(t, superseded)
	assert.Equal(t, sess.ID, got.ID)
	require.NotNil(t, got.PendingScan)
	assert.Equal(t, "CARD-1", got.PendingScan.CardID)

	stored, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PendingScan)
	assert.Equal(t, "CARD-1", stored.PendingScan.CardID)
}

func TestBeginScanReplacesPendingScan(t *testing.T) {
	ctx := context.Background()
	register, _ := newTestRegister(t, 5*time.Minute)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)

	sess, _, err = register.BeginScan(ctx, sess, "CARD-1")
	require.NoError(t, err)
	sess, superseded, err := register.BeginScan(ctx, sess, "CARD-2")
	require.NoError(t, err)

	// Replacing an unconsumed pending scan is routine, not a supersede.
	assert.False(t, superseded)
	assert.Equal(t, "CARD-2", sess.PendingScan.CardID)
}

func TestBeginScanSupersedesAuthenticatedSession(t *testing.T) {
	ctx := context.Background()
	register, store := newTestRegister(t, 5*time.Minute)

	old, err := session.New(time.Hour)
	require.NoError(t, err)
	old.Identity = &session.AuthenticatedIdentity{
		SubjectID: "subject-1",
		Role:      session.RoleWorker,
		CardID:    "CARD-OLD",
	}
	old.StickyMobileApp = true
	require.NoError(t, store.Set(ctx, old))

	fresh, superseded, err := register.BeginScan(ctx, old, "CARD-NEW")
	require.NoError(t, err)
	assert.True(t, superseded)

	// The stale login is gone entirely, not merely overwritten.
	assert.NotEqual(t, old.ID, fresh.ID)
	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.False(t, fresh.Authenticated())
	assert.Equal(t, "CARD-NEW", fresh.PendingScan.CardID)
	assert.True(t, fresh.StickyMobileApp, "device stickiness survives the forced logout")

	stored, err := store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Identity)
}

func TestConsumeScan(t *testing.T) {
	ctx := context.Background()
	register, _ := newTestRegister(t, 5*time.Minute)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)
	sess, _, err = register.BeginScan(ctx, sess, "CARD-1")
	require.NoError(t, err)

	cardID, ok := register.ConsumeScan(sess)
	assert.True(t, ok)
	assert.Equal(t, "CARD-1", cardID)
	assert.Nil(t, sess.PendingScan)

	// A scan can be consumed at most once.
	_, ok = register.ConsumeScan(sess)
	assert.False(t, ok)
}

func TestConsumeScanExpired(t *testing.T) {
	register, _ := newTestRegister(t, time.Minute)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)
	sess.PendingScan = &session.PendingScan{
		CardID:    "CARD-1",
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}

	cardID, ok := register.ConsumeScan(sess)
	assert.False(t, ok)
	assert.Empty(t, cardID)
	assert.Nil(t, sess.PendingScan, "expired scan is cleared, not kept around")
}

func TestHasPending(t *testing.T) {
	register, _ := newTestRegister(t, time.Minute)

	assert.False(t, register.HasPending(nil))

	sess, err := session.New(time.Hour)
	require.NoError(t, err)
	assert.False(t, register.HasPending(sess))

	sess.PendingScan = &session.PendingScan{CardID: "CARD-1", CreatedAt: time.Now()}
	assert.True(t, register.HasPending(sess))

	sess.PendingScan.CreatedAt = time.Now().Add(-2 * time.Minute)
	assert.False(t, register.HasPending(sess))
}
