package device

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const desktopUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
const androidUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		input      Input
		wantClass  Class
		wantSignal Signal
	}{
		{
			name:       "no signals resolves to desktop browser",
			input:      Input{Query: url.Values{}},
			wantClass:  ClassDesktopBrowser,
			wantSignal: SignalDefault,
		},
		{
			name:       "desktop user agent",
			input:      Input{UserAgent: desktopUA, Query: url.Values{}},
			wantClass:  ClassDesktopBrowser,
			wantSignal: SignalDefault,
		},
		{
			name:       "mobile browser user agent",
			input:      Input{UserAgent: androidUA, Query: url.Values{}},
			wantClass:  ClassMobileBrowser,
			wantSignal: SignalMobileUserAgent,
		},
		{
			name: "platform header outranks desktop user agent",
			input: Input{
				PlatformHeader: "mobile",
				UserAgent:      desktopUA,
				Origin:         "https://app.example.com",
				Query:          url.Values{},
			},
			wantClass:  ClassMobileApp,
			wantSignal: SignalPlatformHeader,
		},
		{
			name:       "platform header is case insensitive",
			input:      Input{PlatformHeader: "Mobile", Query: url.Values{}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalPlatformHeader,
		},
		{
			name:       "unrecognized platform header is ignored",
			input:      Input{PlatformHeader: "tv", UserAgent: desktopUA, Query: url.Values{}},
			wantClass:  ClassDesktopBrowser,
			wantSignal: SignalDefault,
		},
		{
			name:       "loopback origin",
			input:      Input{Origin: "http://127.0.0.1:4723", UserAgent: desktopUA, Query: url.Values{}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalNativeOrigin,
		},
		{
			name:       "custom app scheme referrer",
			input:      Input{Referer: "presenza-app://auth/start", UserAgent: desktopUA, Query: url.Values{}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalNativeOrigin,
		},
		{
			name:       "packaged file scheme origin",
			input:      Input{Origin: "file://", UserAgent: androidUA, Query: url.Values{}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalNativeOrigin,
		},
		{
			name:       "app user agent token",
			input:      Input{UserAgent: "PresenzaApp/2.1 (Android 13)", Query: url.Values{}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalAppUserAgent,
		},
		{
			name:       "query override",
			input:      Input{UserAgent: desktopUA, Query: url.Values{"app_platform": {"mobile"}}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalQueryOverride,
		},
		{
			name:       "sticky flag from prior round trip",
			input:      Input{UserAgent: desktopUA, Sticky: true, Query: url.Values{}},
			wantClass:  ClassMobileApp,
			wantSignal: SignalStickySession,
		},
		{
			name: "origin outranks query override",
			input: Input{
				Origin: "capacitor://localhost",
				Query:  url.Values{"app_platform": {"mobile"}},
			},
			wantClass:  ClassMobileApp,
			wantSignal: SignalNativeOrigin,
		},
		{
			name:       "iphone user agent",
			input:      Input{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", Query: url.Values{}},
			wantClass:  ClassMobileBrowser,
			wantSignal: SignalMobileUserAgent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			assert.Equal(t, tt.wantClass, got.Class)
			assert.Equal(t, tt.wantSignal, got.Signal)
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	input := Input{
		PlatformHeader: "mobile",
		UserAgent:      desktopUA,
		Query:          url.Values{"app_platform": {"mobile"}},
	}

	first := Classify(input)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(input), "identical inputs must yield identical classifications")
	}
}

func TestFromRequest(t *testing.T) {
	// Scenario: platform header takes precedence even when Origin and
	// User-Agent look like a desktop browser.
	r := httptest.NewRequest("GET", "/sso/status", nil)
	r.Header.Set("X-App-Platform", "mobile")
	r.Header.Set("Origin", "https://web.example.com")
	r.Header.Set("User-Agent", desktopUA)

	got := FromRequest(r, false)
	assert.Equal(t, ClassMobileApp, got.Class)
	assert.Equal(t, SignalPlatformHeader, got.Signal)
}

func TestFromRequestSticky(t *testing.T) {
	r := httptest.NewRequest("GET", "/sso/status", nil)
	r.Header.Set("User-Agent", desktopUA)

	assert.Equal(t, ClassDesktopBrowser, FromRequest(r, false).Class)
	assert.Equal(t, ClassMobileApp, FromRequest(r, true).Class)
}
