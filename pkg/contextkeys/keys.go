// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionKey contains *session.Session for the current request
	// Set by: session.Bridge middleware (pkg/session/bridge.go)
	// Required by: SSO handlers, scan register, redirect dispatcher
	// Type: *session.Session
	SessionKey Key = "session"

	// SessionChannelKey records how the session was resolved ("cookie",
	// "header" or "query"). Diagnostics only, never a security input.
	// Set by: session.Bridge middleware
	// Type: string
	SessionChannelKey Key = "session_channel"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit fields
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithSession adds the resolved session to the context
func WithSession(ctx context.Context, sess interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// WithSessionChannel records the channel the session arrived on
func WithSessionChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, SessionChannelKey, channel)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSessionChannel retrieves the session resolution channel from context
func GetSessionChannel(ctx context.Context) string {
	if channel, ok := ctx.Value(SessionChannelKey).(string); ok {
		return channel
	}
	return ""
}
