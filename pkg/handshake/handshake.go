package handshake

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
)

const (
	// CallbackHost and CallbackPath form the redirect target the companion
	// app opens: <scheme>://imoji/sync.
	CallbackHost = "imoji"
	CallbackPath = "/sync"

	DefaultAuthorizeURL = "imoji://authorize"
	DefaultTTL          = 10 * time.Minute
)

// Config describes both ends of the inter-application handshake.
type Config struct {
	ClientID       string
	CallbackScheme string // scheme registered by the host application
	CompanionAppID string // identifier of the companion app that answers
	AuthorizeURL   string // defaults to DefaultAuthorizeURL
	TTL            time.Duration
}

// Handshake issues authorization requests to the companion app and validates
// the callbacks it sends back. It is safe for concurrent use.
type Handshake struct {
	cfg   Config
	oauth *oauth2.Config
	store StateStore
	clock clockwork.Clock
}

// Option configures a Handshake.
type Option func(*Handshake)

// WithStateStore replaces the in-memory nonce store.
func WithStateStore(s StateStore) Option {
	return func(h *Handshake) {
		if s != nil {
			h.store = s
		}
	}
}

// WithClock sets the clock used for nonce expiry.
func WithClock(c clockwork.Clock) Option {
	return func(h *Handshake) {
		if c != nil {
			h.clock = c
		}
	}
}

// New validates cfg and creates a Handshake.
func New(cfg Config, opts ...Option) (*Handshake, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidConfig)
	}
	if cfg.CallbackScheme == "" || url.PathEscape(cfg.CallbackScheme) != cfg.CallbackScheme {
		return nil, fmt.Errorf("%w: callback scheme %q", ErrInvalidConfig, cfg.CallbackScheme)
	}
	if cfg.CompanionAppID == "" {
		return nil, fmt.Errorf("%w: companion app id is required", ErrInvalidConfig)
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = DefaultAuthorizeURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	h := &Handshake{
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.store == nil {
		h.store = NewMemoryStore(h.clock)
	}
	h.oauth = &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: h.RedirectURI(),
		Endpoint:    oauth2.Endpoint{AuthURL: cfg.AuthorizeURL},
	}
	return h, nil
}

// RedirectURI returns <scheme>://imoji/sync.
func (h *Handshake) RedirectURI() string {
	return (&url.URL{Scheme: h.cfg.CallbackScheme, Host: CallbackHost, Path: CallbackPath}).String()
}

// Begin stores a fresh nonce and returns the authorization URL carrying it.
func (h *Handshake) Begin(ctx context.Context) (authURL, state string, err error) {
	state, err = generateState()
	if err != nil {
		return "", "", err
	}
	if err := h.store.StoreState(ctx, state, h.clock.Now().Add(h.cfg.TTL)); err != nil {
		return "", "", fmt.Errorf("failed to store state: %w", err)
	}
	return h.oauth.AuthCodeURL(state), state, nil
}

// Matches reports whether u is a handshake callback sent by the companion
// app. It has no side effects.
func (h *Handshake) Matches(u *url.URL, sourceApp string) bool {
	if u == nil || sourceApp != h.cfg.CompanionAppID {
		return false
	}
	path := u.Path
	return strings.EqualFold(u.Scheme, h.cfg.CallbackScheme) &&
		strings.EqualFold(u.Host, CallbackHost) &&
		(path == CallbackPath || path == CallbackPath+"/")
}

// Consume validates a callback URL and returns its authorization code. The
// nonce is consumed even when the callback reports an error, so every nonce
// is good for exactly one callback.
func (h *Handshake) Consume(ctx context.Context, u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNotCallback
	}
	q := u.Query()

	state := q.Get("state")
	if state == "" {
		return "", ErrStateNotFound
	}
	if err := h.store.ConsumeState(ctx, state); err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return "", ErrStateNotFound
		}
		return "", fmt.Errorf("failed to validate state: %w", err)
	}

	if e := q.Get("error"); e != "" {
		if desc := q.Get("error_description"); desc != "" {
			return "", fmt.Errorf("%w: %s: %s", ErrAccessDenied, e, desc)
		}
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, e)
	}

	code := q.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}
	return code, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrStateGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
