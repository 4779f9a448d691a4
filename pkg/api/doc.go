// Package api is the typed client for the imoji REST API.
//
// Public endpoints authenticate with an application token obtained through
// the OAuth2 client-credentials grant (golang.org/x/oauth2/clientcredentials).
// The token is cached and refetched when it expires or the server rejects it.
// User endpoints take the user's *oauth2.Token, which ExchangeCode produces
// from an authorization code and RefreshUserToken keeps fresh.
//
// All calls go through a transport.Client, so they share its retry, backoff
// and circuit-breaker policy. Failures are returned as *Error values that
// match one of ErrUnauthorized, ErrNotFound, ErrBadRequest, ErrServer or
// ErrDecode with errors.Is; context cancellation is returned unchanged.
package api
