package sso

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/presenza/presenza/pkg/device"
	"github.com/presenza/presenza/pkg/session"
)

// rolePaths maps each login role to its fixed destination path
var rolePaths = map[session.Role]string{
	session.RoleWorker:        "/worker/dashboard",
	session.RoleEstablishment: "/establishment/dashboard",
	session.RoleDepartment:    "/department/dashboard",
}

// Dispatcher computes the post-login destination URL for a device class and
// role. It never mutates session state.
type Dispatcher struct {
	webOrigin string
	appBase   string
	signer    *session.Signer
}

// NewDispatcher creates a redirect dispatcher. webOrigin serves browser
// clients; appBase is the native shell destination (custom URI scheme or a
// configured loopback base).
func NewDispatcher(webOrigin, appBase string, signer *session.Signer) *Dispatcher {
	return &Dispatcher{
		webOrigin: strings.TrimRight(webOrigin, "/"),
		appBase:   strings.TrimRight(appBase, "/"),
		signer:    signer,
	}
}

// ResolveDestination composes base origin + role path and appends the signed
// session token as a query parameter. The token is appended for every device
// class: cookie delivery is unreliable for cross-site web clients and for
// embedded mobile web views alike, so the fallback credential always rides
// along.
func (d *Dispatcher) ResolveDestination(clf device.Classification, role session.Role, sess *session.Session) (string, error) {
	path, ok := rolePaths[role]
	if !ok {
		return "", fmt.Errorf("no destination path for role %q", role)
	}

	base := d.webOrigin
	if clf.Class == device.ClassMobileApp {
		base = d.appBase
	}

	u, err := url.Parse(base + path)
	if err != nil {
		return "", fmt.Errorf("failed to compose destination URL: %w", err)
	}

	q := u.Query()
	q.Set(session.TokenQueryParam, d.signer.Sign(sess.ID))
	u.RawQuery = q.Encode()

	return u.String(), nil
}
