package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/dmitrymomot/imoji/pkg/transport"
)

// Config identifies the application to the imoji API.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Client is the imoji REST API client. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	transport *transport.Client

	appCreds *clientcredentials.Config
	userAuth *oauth2.Config

	mu       sync.Mutex
	appToken *oauth2.Token
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the HTTP transport. Its HTTP client is also used for
// token requests.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// New creates an API client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", ErrInvalidInput)
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidInput, cfg.BaseURL)
	}

	tokenURL := base.String() + "/oauth/token"
	c := &Client{
		base:      base,
		transport: transport.New(),
		appCreds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		userAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.transport.HTTPClient())
}

// AppToken returns a valid client-credentials token, fetching a new one when
// the cached token is missing or expired. Concurrent callers share one fetch.
func (c *Client) AppToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appToken.Valid() {
		return c.appToken, nil
	}
	tok, err := c.appCreds.Token(c.oauthContext(ctx))
	if err != nil {
		return nil, classify("oauth/token", err)
	}
	c.appToken = tok
	return tok, nil
}

// InvalidateAppToken drops the cached app token.
func (c *Client) InvalidateAppToken() {
	c.mu.Lock()
	c.appToken = nil
	c.mu.Unlock()
}

// ExchangeCode trades an authorization code for a user token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", ErrInvalidInput)
	}
	cfg := *c.userAuth
	cfg.RedirectURL = redirectURI
	tok, err := cfg.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, classify("oauth/token", err)
	}
	return tok, nil
}

// RefreshUserToken returns tok, or a refreshed copy when it has expired and
// carries a refresh token.
func (c *Client) RefreshUserToken(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing user token", ErrUnauthorized)
	}
	if tok.Valid() || tok.RefreshToken == "" {
		return tok, nil
	}
	fresh, err := c.userAuth.TokenSource(c.oauthContext(ctx), tok).Token()
	if err != nil {
		return nil, classify("oauth/token", err)
	}
	return fresh, nil
}

// Revoke invalidates a token server-side.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	_, err := c.send(ctx, "oauth/revoke", http.MethodPost, nil, nil,
		http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		[]byte(form.Encode()))
	return err
}

// Search runs a sticker search. An empty query returns the featured set.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Imoji, error) {
	q := url.Values{"query": {p.Query}}
	if p.Offset != nil {
		q.Set("offset", strconv.Itoa(*p.Offset))
	}
	if p.Limit != nil {
		q.Set("numResults", strconv.Itoa(*p.Limit))
	}
	return c.results(ctx, "imoji/search", http.MethodGet, q, nil, nil)
}

// Featured returns the featured stickers.
func (c *Client) Featured(ctx context.Context, limit *int) ([]Imoji, error) {
	q := url.Values{}
	if limit != nil {
		q.Set("numResults", strconv.Itoa(*limit))
	}
	return c.results(ctx, "imoji/featured", http.MethodGet, q, nil, nil)
}

// FetchMultiple resolves sticker ids.
func (c *Client) FetchMultiple(ctx context.Context, ids []string) ([]Imoji, error) {
	return c.results(ctx, "imoji/fetchMultiple", http.MethodPost, nil, nil, fetchMultipleRequest{IDs: ids})
}

// Categories lists categories of a classification ("trending" or "generic").
func (c *Client) Categories(ctx context.Context, classification string) ([]Category, error) {
	var out categoriesResponse
	if err := c.call(ctx, "categories/fetch", http.MethodGet,
		url.Values{"classification": {classification}}, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// UserCollection lists the stickers in the user's collection.
func (c *Client) UserCollection(ctx context.Context, user *oauth2.Token) ([]Imoji, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: missing user token", ErrUnauthorized)
	}
	return c.results(ctx, "user/imoji/collection", http.MethodGet, nil, user, nil)
}

// AddToCollection adds a sticker to the user's collection.
func (c *Client) AddToCollection(ctx context.Context, user *oauth2.Token, imojiID string) error {
	if user == nil {
		return fmt.Errorf("%w: missing user token", ErrUnauthorized)
	}
	return c.call(ctx, "user/imoji/collection/add", http.MethodPost, nil, user,
		addToCollectionRequest{ImojiID: imojiID}, nil)
}

// Download fetches an asset by absolute URL without API credentials.
func (c *Client) Download(ctx context.Context, assetURL string) ([]byte, error) {
	resp, err := c.transport.Do(ctx, transport.Request{Method: http.MethodGet, URL: assetURL})
	if err != nil {
		return nil, classify("download", err)
	}
	return resp.Body, nil
}

func (c *Client) results(ctx context.Context, endpoint, method string, q url.Values, user *oauth2.Token, body any) ([]Imoji, error) {
	var out resultsResponse
	if err := c.call(ctx, endpoint, method, q, user, body, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []Imoji{}
	}
	return out.Results, nil
}

// call sends a JSON request authorized with the user token, or the app token
// when user is nil, and decodes the response into out.
func (c *Client) call(ctx context.Context, endpoint, method string, q url.Values, user *oauth2.Token, body, out any) error {
	var payload []byte
	header := http.Header{"Accept": {"application/json"}}
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		header.Set("Content-Type", "application/json")
	}

	data, err := c.send(ctx, endpoint, method, q, user, header, payload)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Endpoint: endpoint, kind: ErrDecode, cause: err}
	}
	return nil
}

func (c *Client) send(ctx context.Context, endpoint, method string, q url.Values, user *oauth2.Token, header http.Header, payload []byte) ([]byte, error) {
	tok := user
	if tok == nil {
		var err error
		if tok, err = c.AppToken(ctx); err != nil {
			return nil, err
		}
	}
	header.Set("Authorization", tok.Type()+" "+tok.AccessToken)

	u := c.base.JoinPath(endpoint)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	resp, err := c.transport.Do(ctx, transport.Request{
		Method: method,
		URL:    u.String(),
		Header: header,
		Body:   payload,
	})
	if err != nil {
		if user == nil && transport.StatusCode(err) == http.StatusUnauthorized {
			c.InvalidateAppToken()
		}
		return nil, classify(endpoint, err)
	}
	return resp.Body, nil
}
