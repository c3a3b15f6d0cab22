// Package device classifies requests into device classes from weak,
// spoofable signals.
//
// Classification is a pure function over a fixed, ordered signal list. The
// order encodes trust: the explicit platform header set by the native shell
// outranks origin heuristics, which outrank User-Agent sniffing. None of the
// signals is cryptographic; the result routes UX (redirect targets), never
// security decisions.
package device

import (
	"net/http"
	"net/url"
	"strings"
)

// Class is the coarse device category of a request
type Class string

const (
	ClassMobileApp      Class = "mobile-app"
	ClassMobileBrowser  Class = "mobile-browser"
	ClassDesktopBrowser Class = "desktop-browser"
)

// Signal records which detection rule fired, for diagnostics
type Signal string

const (
	SignalPlatformHeader  Signal = "platform-header"
	SignalNativeOrigin    Signal = "native-origin"
	SignalAppUserAgent    Signal = "app-user-agent"
	SignalQueryOverride   Signal = "query-override"
	SignalStickySession   Signal = "sticky-session"
	SignalMobileUserAgent Signal = "mobile-user-agent"
	SignalDefault         Signal = "default"
)

// Classification is the result of classifying a single request
type Classification struct {
	Class  Class  `json:"class"`
	Signal Signal `json:"signal"`
}

const (
	// PlatformHeader is set by the native app shell on every request
	PlatformHeader = "X-App-Platform"
	// PlatformHeaderMobile is the recognized mobile marker value
	PlatformHeaderMobile = "mobile"
	// QueryOverride forces mobile-app classification. Test escape hatch:
	// non-authoritative, routes UX only, never trusted for security.
	QueryOverride = "app_platform"
	// AppUserAgentToken identifies the embedded web view of the native app
	AppUserAgentToken = "PresenzaApp"
)

// nativeOriginPrefixes are origins only an embedded web view produces: the
// loopback scheme of in-app servers, the custom app scheme, and the packaged
// file schemes of hybrid shells.
var nativeOriginPrefixes = []string{
	"http://127.0.0.1",
	"http://localhost",
	"presenza-app://",
	"capacitor://",
	"ionic://",
	"file://",
}

// mobileUATokens is the mobile-browser pattern set checked after all
// app signals failed.
var mobileUATokens = []string{
	"Android",
	"iPhone",
	"iPad",
	"iPod",
	"webOS",
	"BlackBerry",
	"Opera Mini",
	"IEMobile",
	"Mobile",
}

// Input carries the per-request signals Classify evaluates
type Input struct {
	PlatformHeader string
	Origin         string
	Referer        string
	UserAgent      string
	Query          url.Values
	Sticky         bool
}

// Classify maps request signals to a device classification. First match
// wins; every rule is evaluated in declared order because priority encodes
// trust. Absence of all signals resolves to desktop-browser.
func Classify(in Input) Classification {
	if strings.EqualFold(strings.TrimSpace(in.PlatformHeader), PlatformHeaderMobile) {
		return Classification{Class: ClassMobileApp, Signal: SignalPlatformHeader}
	}

	for _, prefix := range nativeOriginPrefixes {
		if hasOriginPrefix(in.Origin, prefix) || hasOriginPrefix(in.Referer, prefix) {
			return Classification{Class: ClassMobileApp, Signal: SignalNativeOrigin}
		}
	}

	if strings.Contains(in.UserAgent, AppUserAgentToken) {
		return Classification{Class: ClassMobileApp, Signal: SignalAppUserAgent}
	}

	if in.Query.Get(QueryOverride) == PlatformHeaderMobile {
		return Classification{Class: ClassMobileApp, Signal: SignalQueryOverride}
	}

	if in.Sticky {
		return Classification{Class: ClassMobileApp, Signal: SignalStickySession}
	}

	for _, token := range mobileUATokens {
		if strings.Contains(in.UserAgent, token) {
			return Classification{Class: ClassMobileBrowser, Signal: SignalMobileUserAgent}
		}
	}

	return Classification{Class: ClassDesktopBrowser, Signal: SignalDefault}
}

// FromRequest classifies an HTTP request. sticky carries the flag cached on
// the session by a prior round trip of the same login.
func FromRequest(r *http.Request, sticky bool) Classification {
	return Classify(Input{
		PlatformHeader: r.Header.Get(PlatformHeader),
		Origin:         r.Header.Get("Origin"),
		Referer:        r.Header.Get("Referer"),
		UserAgent:      r.Header.Get("User-Agent"),
		Query:          r.URL.Query(),
		Sticky:         sticky,
	})
}

func hasOriginPrefix(origin, prefix string) bool {
	return origin != "" && strings.HasPrefix(strings.ToLower(origin), prefix)
}
