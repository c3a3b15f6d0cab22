package session

import (
	"context"
	"net/http"
	"time"

	"github.com/presenza/presenza/pkg/contextkeys"
	"github.com/presenza/presenza/pkg/observability"
)

const (
	// CookieName carries the session identifier on cookie-capable clients
	CookieName = "presenza_session"
	// TokenHeader carries the signed fallback token on clients that cannot
	// hold first-party cookies (native shells, cross-site web views)
	TokenHeader = "X-Session-Token"
	// TokenQueryParam carries the signed fallback token exactly once, at the
	// redirect target; clients cache it and switch to the header
	TokenQueryParam = "session_token"
)

// Resolution channels recorded for diagnostics and metrics
const (
	ChannelCookie = "cookie"
	ChannelHeader = "header"
	ChannelQuery  = "query"
)

// Bridge reconstructs a usable session from either the cookie or the signed
// out-of-band token, so downstream code has exactly one resolution path.
// Precedence: cookie wins when both are present, which stops token replay
// once a cookie is established. A token that fails verification resolves to
// "no session", never to an error response.
type Bridge struct {
	store   Store
	signer  *Signer
	logger  *observability.Logger
	metrics *observability.Metrics
	secure  bool
}

// NewBridge creates the fallback bridge middleware. metrics may be nil.
func NewBridge(store Store, signer *Signer, logger *observability.Logger, metrics *observability.Metrics, secureCookies bool) *Bridge {
	return &Bridge{
		store:   store,
		signer:  signer,
		logger:  logger,
		metrics: metrics,
		secure:  secureCookies,
	}
}

// Middleware resolves the request's session before the handlers run
func (b *Bridge) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, channel := b.resolveID(r)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := b.store.Get(r.Context(), id)
		if err != nil {
			if err != ErrNotFound {
				b.logger.WithError(err).Warn("session lookup failed")
			}
			b.count(channel, "miss")
			next.ServeHTTP(w, r)
			return
		}

		b.count(channel, "hit")
		ctx := contextkeys.WithSession(r.Context(), sess)
		ctx = contextkeys.WithSessionChannel(ctx, channel)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveID extracts the session identifier from cookie first, then from the
// signed fallback token in header or query. Token verification failures are
// logged with a preview only and treated as no session.
func (b *Bridge) resolveID(r *http.Request) (id, channel string) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, ChannelCookie
	}

	token := r.Header.Get(TokenHeader)
	channel = ChannelHeader
	if token == "" {
		token = r.URL.Query().Get(TokenQueryParam)
		channel = ChannelQuery
	}
	if token == "" {
		return "", ""
	}

	id, err := b.signer.Verify(token)
	if err != nil {
		b.logger.WithField("token", observability.TokenPreview(token)).
			WithField("channel", channel).
			Debug("fallback token failed verification")
		b.count(channel, "invalid")
		return "", ""
	}
	return id, channel
}

func (b *Bridge) count(channel, outcome string) {
	if b.metrics != nil && channel != "" {
		b.metrics.FallbackResolved.WithLabelValues(channel, outcome).Inc()
	}
}

// FromContext returns the session resolved by the bridge, or nil
func FromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(contextkeys.SessionKey).(*Session); ok {
		return sess
	}
	return nil
}

// SetCookie writes the HttpOnly session cookie
func (b *Bridge) SetCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
	})
}

// ClearCookie expires the session cookie
func (b *Bridge) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
