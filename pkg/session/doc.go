// Package session owns the server-side session state of the authentication
// bridge: the Store interface with in-memory and Redis backends, the HMAC
// signer producing the out-of-band token form of a session identifier, and
// the fallback Bridge middleware that resolves a session from cookie, header
// or query with documented precedence (cookie > token).
package session
