package sso

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/presenza/presenza/pkg/autherr"
	"github.com/presenza/presenza/pkg/device"
	"github.com/presenza/presenza/pkg/httputil"
	"github.com/presenza/presenza/pkg/observability"
	"github.com/presenza/presenza/pkg/scan"
	"github.com/presenza/presenza/pkg/session"
)

// loginPath is the entry point failed browser logins are sent back to
const loginPath = "/sso/login"

// Handlers exposes the card-scan and federated-login HTTP surface
type Handlers struct {
	store      session.Store
	signer     *session.Signer
	bridge     *session.Bridge
	register   *scan.Register
	consumer   *Consumer
	validator  Validator
	dispatcher *Dispatcher
	sessionTTL time.Duration
	logger     *observability.Logger
}

// NewHandlers wires the SSO handler set
func NewHandlers(store session.Store, signer *session.Signer, bridge *session.Bridge, register *scan.Register, consumer *Consumer, validator Validator, dispatcher *Dispatcher, sessionTTL time.Duration, logger *observability.Logger) *Handlers {
	return &Handlers{
		store:      store,
		signer:     signer,
		bridge:     bridge,
		register:   register,
		consumer:   consumer,
		validator:  validator,
		dispatcher: dispatcher,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// RegisterRoutes registers the authentication routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/card-scan", h.handleCardScan).Methods("POST")
	router.HandleFunc("/sso/login", h.handleLogin).Methods("GET")
	router.HandleFunc("/sso/login/{role}", h.handleLogin).Methods("GET")
	router.HandleFunc("/sso/acs", h.handleACS).Methods("POST")
	router.HandleFunc("/sso/acs", h.handleACSRedirect).Methods("GET")
	router.HandleFunc("/sso/logout", h.handleLogout).Methods("POST")
	router.HandleFunc("/sso/status", h.handleStatus).Methods("GET")
	router.HandleFunc("/sso/metadata", h.handleMetadata).Methods("GET")
}

type cardScanRequest struct {
	CardID string `json:"cardId"`
}

type cardScanResponse struct {
	LoginURL   string `json:"loginUrl"`
	Superseded bool   `json:"superseded"`
}

// handleCardScan stores a pending scan and instructs the client to proceed
// to login. App clients get a JSON instruction; browsers get a redirect.
func (h *Handlers) handleCardScan(w http.ResponseWriter, r *http.Request) {
	var req cardScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, "body", "invalid request body")
		return
	}
	req.CardID = strings.TrimSpace(req.CardID)
	if req.CardID == "" {
		httputil.WriteValidationError(w, "cardId", "cardId is required")
		return
	}

	sess := session.FromContext(r.Context())
	if sess == nil {
		var err error
		sess, err = session.New(h.sessionTTL)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	sess, superseded, err := h.register.BeginScan(r.Context(), sess, req.CardID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.bridge.SetCookie(w, sess)

	clf := device.FromRequest(r, sess.StickyMobileApp)
	if clf.Class == device.ClassMobileApp {
		httputil.WriteSuccess(w, cardScanResponse{LoginURL: loginPath, Superseded: superseded})
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// handleLogin records the intended role server-side and redirects into the
// federated login. The role is intent, not a claim: it must survive the IdP
// round trip, so it is persisted on the session before the redirect.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	role, err := session.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		httputil.WriteValidationError(w, "role", err.Error())
		return
	}

	sess := session.FromContext(r.Context())
	if sess == nil {
		sess, err = session.New(h.sessionTTL)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	sess.IntendedRole = role

	// Writing the sticky flag is the classifier's one permitted side
	// effect: it keeps classification stable across the login's multiple
	// round trips.
	clf := device.FromRequest(r, sess.StickyMobileApp)
	if clf.Class == device.ClassMobileApp {
		sess.StickyMobileApp = true
	}

	if err := h.store.Set(r.Context(), sess); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.bridge.SetCookie(w, sess)

	// The signed session id rides along as RelayState so the callback can
	// recover the session even when the IdP redirect drops the cookie.
	loginURL, err := h.validator.BuildLoginURL(h.signer.Sign(sess.ID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// handleACS consumes the IdP callback and drives the assertion consumer
// state machine to a terminal state.
func (h *Handlers) handleACS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteValidationError(w, "body", "failed to parse form")
		return
	}
	encodedResponse := r.PostFormValue("SAMLResponse")
	if encodedResponse == "" {
		httputil.WriteValidationError(w, "SAMLResponse", "SAMLResponse is required")
		return
	}

	sess := h.sessionForCallback(r)
	if sess == nil {
		var err error
		sess, err = session.New(h.sessionTTL)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	assertion, err := h.validator.ValidateResponse(encodedResponse)
	if err != nil {
		h.consumer.RecordInvalidAssertion(err)
		h.respondAuthenticationFailure(w, r, sess, err)
		return
	}

	claims, err := ExtractClaims(assertion, DefaultAttributeMap())
	if err != nil {
		h.consumer.RecordInvalidAssertion(err)
		h.respondAuthenticationFailure(w, r, sess, err)
		return
	}

	sess, _, err = h.consumer.Establish(r.Context(), sess, claims)
	if err != nil {
		if authErr, ok := autherr.As(err); ok && authErr.Code == autherr.CodeAuthorization {
			h.bridge.ClearCookie(w)
			httputil.WriteAuthError(w, authErr)
			return
		}
		httputil.WriteError(w, err)
		return
	}

	clf := device.FromRequest(r, sess.StickyMobileApp)
	destination, err := h.dispatcher.ResolveDestination(clf, sess.Identity.Role, sess)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.bridge.SetCookie(w, sess)
	http.Redirect(w, r, destination, http.StatusFound)
}

// handleACSRedirect re-encodes a GET-delivered assertion as if it were
// POSTed and re-enters the consumer. Some IdPs deliver the response on the
// redirect binding even when the POST binding was requested.
func (h *Handlers) handleACSRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form := url.Values{}
	form.Set("SAMLResponse", q.Get("SAMLResponse"))
	form.Set("RelayState", q.Get("RelayState"))

	encoded := form.Encode()
	shim := r.Clone(r.Context())
	shim.Method = http.MethodPost
	shim.URL = &url.URL{Path: r.URL.Path}
	shim.Body = io.NopCloser(strings.NewReader(encoded))
	shim.ContentLength = int64(len(encoded))
	shim.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	shim.Form = nil
	shim.PostForm = nil

	h.handleACS(w, shim)
}

// sessionForCallback resolves the callback's session: the bridge-resolved
// one when the cookie or token survived the round trip, else the signed id
// carried through the IdP as RelayState.
func (h *Handlers) sessionForCallback(r *http.Request) *session.Session {
	if sess := session.FromContext(r.Context()); sess != nil {
		return sess
	}

	relayState := r.PostFormValue("RelayState")
	if relayState == "" {
		return nil
	}
	id, err := h.signer.Verify(relayState)
	if err != nil {
		h.logger.WithField("token", observability.TokenPreview(relayState)).
			Debug("relay state failed verification")
		return nil
	}
	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		return nil
	}
	return sess
}

// respondAuthenticationFailure surfaces an AuthenticationError. Where a
// human is the consumer (browser classes) the client is redirected back to
// the login entry point instead of receiving raw JSON.
func (h *Handlers) respondAuthenticationFailure(w http.ResponseWriter, r *http.Request, sess *session.Session, cause error) {
	clf := device.FromRequest(r, sess.StickyMobileApp)
	if clf.Class != device.ClassMobileApp {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	httputil.WriteAuthError(w, autherr.Authentication("assertion rejected", cause))
}

// handleLogout destroys the session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess != nil {
		if err := h.store.Delete(r.Context(), sess.ID); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	h.bridge.ClearCookie(w)
	httputil.WriteSuccess(w, map[string]bool{"loggedOut": true})
}

type statusIdentity struct {
	SubjectID       string  `json:"subjectId"`
	Role            string  `json:"role"`
	CardID          string  `json:"cardId"`
	DisplayName     string  `json:"displayName,omitempty"`
	EstablishmentID *string `json:"establishmentId,omitempty"`
}

type statusResponse struct {
	Authenticated bool                  `json:"authenticated"`
	Identity      *statusIdentity       `json:"identity,omitempty"`
	PendingScan   bool                  `json:"pendingScan"`
	Device        device.Classification `json:"device"`
}

// handleStatus reports the current authentication state. No side effects.
func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	resp := statusResponse{
		Device: device.FromRequest(r, sess != nil && sess.StickyMobileApp),
	}
	if sess.Authenticated() {
		resp.Authenticated = true
		resp.Identity = &statusIdentity{
			SubjectID:       sess.Identity.SubjectID,
			Role:            string(sess.Identity.Role),
			CardID:          sess.Identity.CardID,
			DisplayName:     sess.Identity.DisplayName,
			EstablishmentID: sess.Identity.EstablishmentID,
		}
	}
	resp.PendingScan = h.register.HasPending(sess)

	httputil.WriteSuccess(w, resp)
}

// handleMetadata serves the SP metadata document
func (h *Handlers) handleMetadata(w http.ResponseWriter, r *http.Request) {
	metadata, err := h.validator.Metadata()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(metadata)
}
