// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/presenza/presenza/pkg/observability"
	"github.com/presenza/presenza/pkg/session"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Session       SessionConfig
	SAML          SAMLConfig
	Redirect      RedirectConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// SessionConfig holds session store and signing configuration
type SessionConfig struct {
	// Secret signs the fallback session token (HMAC-SHA256). Required,
	// at least 32 bytes.
	Secret string
	// TTL is the session lifetime
	TTL time.Duration
	// ScanTTL bounds how long an unconsumed card scan stays valid.
	// Policy parameter, not a design constant.
	ScanTTL time.Duration
	// StoreType selects the backend: "memory" (single instance, tests) or
	// "redis" (required when the IdP round trip can land on another
	// instance).
	StoreType string
	// SecureCookies marks session cookies Secure (disable only for local
	// development over plain HTTP).
	SecureCookies bool

	Redis session.RedisConfig
}

// SAMLConfig holds the service-provider side of the federated login.
// Signature and digest algorithms live in the IdP certificate and the
// protocol library; they are configuration, not design.
type SAMLConfig struct {
	// IdPSSOURL is the IdP endpoint login redirects target
	IdPSSOURL string
	// IdPIssuer is the IdP entity ID expected in assertions
	IdPIssuer string
	// IdPCertificate is the PEM-encoded IdP signing certificate
	IdPCertificate string
	// BaseURL is this service provider's externally visible origin
	BaseURL string
	// SPCertificate/SPPrivateKey sign AuthnRequests when SignRequests is set
	SPCertificate string
	SPPrivateKey  string
	SignRequests  bool
	NameIDFormat  string
}

// RedirectConfig maps device classes to destination origins
type RedirectConfig struct {
	// WebOrigin is the browser-facing frontend origin
	WebOrigin string
	// AppBase is the native shell destination: a custom URI scheme or a
	// configured loopback base
	AppBase string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Session:       loadSessionConfig(),
		SAML:          loadSAMLConfig(),
		Redirect:      loadRedirectConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PRESENZA_HOST", "0.0.0.0"),
		Port:            getEnv("PRESENZA_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PRESENZA_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PRESENZA_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PRESENZA_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PRESENZA_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PRESENZA_HEALTH_PORT", "9090"),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Secret:        getEnv("PRESENZA_SESSION_SECRET", ""),
		TTL:           getEnvDuration("PRESENZA_SESSION_TTL", 12*time.Hour),
		ScanTTL:       getEnvDuration("PRESENZA_SCAN_TTL", 5*time.Minute),
		StoreType:     getEnv("PRESENZA_SESSION_STORE", "memory"),
		SecureCookies: getEnvBool("PRESENZA_SECURE_COOKIES", true),
		Redis: session.RedisConfig{
			URL:        getEnv("PRESENZA_REDIS_URL", ""),
			Password:   getEnv("PRESENZA_REDIS_PASSWORD", ""),
			DB:         getEnvInt("PRESENZA_REDIS_DB", 0),
			MaxRetries: getEnvInt("PRESENZA_REDIS_MAX_RETRIES", 3),
			PoolSize:   getEnvInt("PRESENZA_REDIS_POOL_SIZE", 10),
		},
	}
}

func loadSAMLConfig() SAMLConfig {
	return SAMLConfig{
		IdPSSOURL:      getEnv("PRESENZA_SAML_IDP_SSO_URL", ""),
		IdPIssuer:      getEnv("PRESENZA_SAML_IDP_ISSUER", ""),
		IdPCertificate: getEnv("PRESENZA_SAML_IDP_CERT", ""),
		BaseURL:        getEnv("PRESENZA_BASE_URL", "http://localhost:8080"),
		SPCertificate:  getEnv("PRESENZA_SAML_SP_CERT", ""),
		SPPrivateKey:   getEnv("PRESENZA_SAML_SP_KEY", ""),
		SignRequests:   getEnvBool("PRESENZA_SAML_SIGN_REQUESTS", false),
		NameIDFormat:   getEnv("PRESENZA_SAML_NAMEID_FORMAT", ""),
	}
}

func loadRedirectConfig() RedirectConfig {
	return RedirectConfig{
		WebOrigin: getEnv("PRESENZA_WEB_ORIGIN", "http://localhost:3000"),
		AppBase:   getEnv("PRESENZA_APP_BASE", "presenza-app://auth"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("PRESENZA_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("PRESENZA_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("PRESENZA_SESSION_SECRET must be at least 32 bytes")
	}

	switch c.Session.StoreType {
	case "memory":
	case "redis":
		if c.Session.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for redis session store")
		}
	default:
		return fmt.Errorf("invalid session store type: %s (must be memory or redis)", c.Session.StoreType)
	}

	if c.SAML.IdPSSOURL == "" {
		return fmt.Errorf("SAML IdP SSO URL is required")
	}
	if c.SAML.IdPIssuer == "" {
		return fmt.Errorf("SAML IdP issuer is required")
	}
	if c.SAML.IdPCertificate == "" {
		return fmt.Errorf("SAML IdP certificate is required")
	}
	if c.SAML.SignRequests && (c.SAML.SPCertificate == "" || c.SAML.SPPrivateKey == "") {
		return fmt.Errorf("SP certificate and key are required when request signing is enabled")
	}

	if c.Redirect.WebOrigin == "" {
		return fmt.Errorf("web origin is required")
	}
	if c.Redirect.AppBase == "" {
		return fmt.Errorf("app base is required")
	}

	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
