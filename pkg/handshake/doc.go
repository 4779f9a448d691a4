// Package handshake implements the inter-application authorization flow
// that links an SDK session to a user account held by the companion app.
//
// The host application calls Begin to get an authorization URL of the form
//
//	imoji://authorize?client_id=<id>&redirect_uri=<scheme>%3A%2F%2Fimoji%2Fsync&response_type=code&state=<nonce>
//
// and opens it. The companion app answers by opening
// <scheme>://imoji/sync?code=...&state=... (or ?error=...&state=...).
// Matches recognizes such callbacks without side effects; Consume validates
// and burns the nonce and returns the authorization code for the OAuth2 code
// exchange.
//
// Nonces are 256-bit random values that live for Config.TTL (10 minutes by
// default) in a StateStore. MemoryStore is the default; time comes from a
// clockwork.Clock so tests can expire nonces deterministically.
package handshake
