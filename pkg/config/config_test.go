package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenza/presenza/pkg/observability"
)

const testCert = "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PRESENZA_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PRESENZA_SAML_IDP_SSO_URL", "https://idp.example.com/sso")
	t.Setenv("PRESENZA_SAML_IDP_ISSUER", "https://idp.example.com")
	t.Setenv("PRESENZA_SAML_IDP_CERT", testCert)
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.ScanTTL)
	assert.Equal(t, "memory", cfg.Session.StoreType)
	assert.True(t, cfg.Session.SecureCookies)
	assert.Equal(t, "http://localhost:3000", cfg.Redirect.WebOrigin)
	assert.Equal(t, "presenza-app://auth", cfg.Redirect.AppBase)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRESENZA_PORT", "8888")
	t.Setenv("PRESENZA_SESSION_TTL", "30m")
	t.Setenv("PRESENZA_SCAN_TTL", "90s")
	t.Setenv("PRESENZA_SESSION_STORE", "redis")
	t.Setenv("PRESENZA_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("PRESENZA_SECURE_COOKIES", "false")
	t.Setenv("PRESENZA_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 90*time.Second, cfg.Session.ScanTTL)
	assert.Equal(t, "redis", cfg.Session.StoreType)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Session.Redis.URL)
	assert.False(t, cfg.Session.SecureCookies)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", HealthPort: "9090"},
			Session: SessionConfig{
				Secret:    "0123456789abcdef0123456789abcdef",
				StoreType: "memory",
			},
			SAML: SAMLConfig{
				IdPSSOURL:      "https://idp.example.com/sso",
				IdPIssuer:      "https://idp.example.com",
				IdPCertificate: testCert,
			},
			Redirect: RedirectConfig{
				WebOrigin: "http://localhost:3000",
				AppBase:   "presenza-app://auth",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Session.Secret = "short" },
			wantErr: "PRESENZA_SESSION_SECRET",
		},
		{
			name:    "ports collide",
			mutate:  func(c *Config) { c.Server.HealthPort = "8080" },
			wantErr: "must be different",
		},
		{
			name:    "unknown store type",
			mutate:  func(c *Config) { c.Session.StoreType = "postgres" },
			wantErr: "invalid session store type",
		},
		{
			name:    "redis store without URL",
			mutate:  func(c *Config) { c.Session.StoreType = "redis" },
			wantErr: "redis URL is required",
		},
		{
			name:    "missing IdP SSO URL",
			mutate:  func(c *Config) { c.SAML.IdPSSOURL = "" },
			wantErr: "IdP SSO URL",
		},
		{
			name:    "missing IdP issuer",
			mutate:  func(c *Config) { c.SAML.IdPIssuer = "" },
			wantErr: "IdP issuer",
		},
		{
			name:    "missing IdP certificate",
			mutate:  func(c *Config) { c.SAML.IdPCertificate = "" },
			wantErr: "IdP certificate",
		},
		{
			name:    "signing enabled without SP key material",
			mutate:  func(c *Config) { c.SAML.SignRequests = true },
			wantErr: "SP certificate and key",
		},
		{
			name:    "missing app base",
			mutate:  func(c *Config) { c.Redirect.AppBase = "" },
			wantErr: "app base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("garbage"))
}
