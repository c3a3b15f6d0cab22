package sso

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenza/presenza/pkg/device"
	"github.com/presenza/presenza/pkg/session"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *session.Signer) {
	t.Helper()

	signer, err := session.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return NewDispatcher("http://localhost:3000", "presenza-app://auth", signer), signer
}

func TestResolveDestination(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		class      device.Class
		role       session.Role
		wantPrefix string
	}{
		{
			name:       "desktop browser worker",
			class:      device.ClassDesktopBrowser,
			role:       session.RoleWorker,
			wantPrefix: "http://localhost:3000/worker/dashboard",
		},
		{
			name:       "mobile browser establishment",
			class:      device.ClassMobileBrowser,
			role:       session.RoleEstablishment,
			wantPrefix: "http://localhost:3000/establishment/dashboard",
		},
		{
			name:       "desktop browser department",
			class:      device.ClassDesktopBrowser,
			role:       session.RoleDepartment,
			wantPrefix: "http://localhost:3000/department/dashboard",
		},
		{
			name:       "mobile app worker",
			class:      device.ClassMobileApp,
			role:       session.RoleWorker,
			wantPrefix: "presenza-app://auth/worker/dashboard",
		},
		{
			name:       "mobile app department",
			class:      device.ClassMobileApp,
			role:       session.RoleDepartment,
			wantPrefix: "presenza-app://auth/department/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dispatcher.ResolveDestination(device.Classification{Class: tt.class}, tt.role, sess)
			require.NoError(t, err)
			assert.True(t, len(got) > len(tt.wantPrefix) && got[:len(tt.wantPrefix)] == tt.wantPrefix,
				"destination %q should start with %q", got, tt.wantPrefix)
		})
	}
}

func TestResolveDestinationCarriesToken(t *testing.T) {
	dispatcher, signer := newTestDispatcher(t)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)

	for _, class := range []device.Class{device.ClassDesktopBrowser, device.ClassMobileBrowser, device.ClassMobileApp} {
		got, err := dispatcher.ResolveDestination(device.Classification{Class: class}, session.RoleWorker, sess)
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)

		token := u.Query().Get(session.TokenQueryParam)
		require.NotEmpty(t, token, "every device class receives the fallback token")

		id, err := signer.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, id)
	}
}

func TestResolveDestinationUnknownRole(t *testing.T) {
	dispatcher, _ := newTestDispatcher(t)

	sess, err := session.New(time.Hour)
	require.NoError(t, err)

	_, err = dispatcher.ResolveDestination(device.Classification{Class: device.ClassDesktopBrowser}, session.Role("admin"), sess)
	assert.Error(t, err)
}
