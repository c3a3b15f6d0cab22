package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "worker", want: RoleWorker},
		{in: "establishment", want: RoleEstablishment},
		{in: "department", want: RoleDepartment},
		{in: "", want: RoleWorker},
		{in: "admin", wantErr: true},
		{in: "Worker", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSessionAuthenticated(t *testing.T) {
	var nilSess *Session
	assert.False(t, nilSess.Authenticated())

	sess, err := New(time.Hour)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())

	sess.Identity = &AuthenticatedIdentity{SubjectID: "subject-1"}
	assert.True(t, sess.Authenticated())
}

func TestSessionExpired(t *testing.T) {
	sess, err := New(time.Hour)
	require.NoError(t, err)
	assert.False(t, sess.Expired(time.Now()))
	assert.True(t, sess.Expired(time.Now().Add(2*time.Hour)))
}

func TestPendingScanExpired(t *testing.T) {
	scan := &PendingScan{CardID: "CARD-1", CreatedAt: time.Now()}
	assert.False(t, scan.Expired(time.Minute, time.Now()))
	assert.True(t, scan.Expired(time.Minute, time.Now().Add(2*time.Minute)))
	assert.False(t, scan.Expired(0, time.Now().Add(time.Hour)), "zero ttl disables expiry")
}
