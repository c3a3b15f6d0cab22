// Package sso bridges physical card-scan events and federated SAML logins.
//
// The flow: a scan stores a PendingScan against the session, the client is
// redirected into the federated login, and the IdP calls back with a signed
// assertion. The Consumer validates the assertion's claims against the
// pending card; on match it establishes the authenticated session and the
// Dispatcher computes a device-appropriate destination carrying the signed
// fallback token.
package sso
