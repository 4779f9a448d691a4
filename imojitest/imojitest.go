// Package imojitest provides an in-process fake of the imoji API for tests.
//
// The fake speaks the same JSON contract as the real service: client
// credentials and authorization-code tokens, search, featured, categories,
// multi-fetch and the user collection. Sticker assets are generated PNGs
// served from the same host.
//
//	srv := imojitest.NewServer(t)
//	srv.AddImoji("cat", "cat", "cute")
//	sess, err := imoji.New(policy, imoji.WithConfig(srv.Config()))
package imojitest

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/pkg/api"
)

const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"

	CallbackScheme = "imojitest"
	CompanionAppID = "io.imoji.test"
)

// Server is a fake imoji API. It is safe for concurrent use.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	order      []string
	imojis     map[string]api.Imoji
	featured   []string
	categories map[string][]api.Category
	assets     map[string][]byte

	appTokens   map[string]bool
	codes       map[string]bool
	userTokens  map[string][]string // access token -> collection ids
	refresh     map[string]string   // refresh token -> access token
	failures    map[string][]int
	gates       map[string]chan struct{}
	hits        map[string]int
	tokenExpiry time.Duration
}

// NewServer starts a fake server that is closed when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()
	s := newServer()
	tb.Cleanup(s.Close)
	return s
}

// Start starts a fake server outside a test. The caller must Close it.
func Start() *Server {
	return newServer()
}

func newServer() *Server {
	s := &Server{
		imojis:      map[string]api.Imoji{},
		categories:  map[string][]api.Category{},
		assets:      map[string][]byte{},
		appTokens:   map[string]bool{},
		codes:       map[string]bool{},
		userTokens:  map[string][]string{},
		refresh:     map[string]string{},
		failures:    map[string][]int{},
		gates:       map[string]chan struct{}{},
		hits:        map[string]int{},
		tokenExpiry: time.Hour,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.track)

	r.Post("/oauth/token", s.handleToken)
	r.Post("/oauth/revoke", s.handleRevoke)
	r.Get("/assets/*", s.handleAsset)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken(false))
		r.Get("/imoji/search", s.handleSearch)
		r.Get("/imoji/featured", s.handleFeatured)
		r.Post("/imoji/fetchMultiple", s.handleFetchMultiple)
		r.Get("/categories/fetch", s.handleCategories)
	})

	r.Route("/user/imoji/collection", func(r chi.Router) {
		r.Use(s.requireToken(true))
		r.Get("/", s.handleCollection)
		r.Post("/add", s.handleAddToCollection)
	})

	return r
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return s.Server.URL
}

// Config returns a session config pointing at the fake, with synchronization
// enabled and retries disabled.
func (s *Server) Config() imoji.Config {
	cfg := imoji.DefaultConfig()
	cfg.ClientID = ClientID
	cfg.APIToken = ClientSecret
	cfg.APIURL = s.URL()
	cfg.MaxRetries = 0
	cfg.HTTPTimeout = 5 * time.Second
	cfg.CallbackScheme = CallbackScheme
	cfg.CompanionAppID = CompanionAppID
	return cfg
}

// Callback builds the URL the companion app opens after the user approved
// the handshake started by authURL, carrying a freshly issued code.
func (s *Server) Callback(authURL, code string) *url.URL {
	s.IssueCode(code)
	u, err := url.Parse(authURL)
	if err != nil {
		panic(err)
	}
	q := u.Query()
	cb, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		panic(err)
	}
	cb.RawQuery = url.Values{"code": {code}, "state": {q.Get("state")}}.Encode()
	return cb
}

// AddImoji registers a sticker with generated thumbnail and full-size assets
// and returns its wire form.
func (s *Server) AddImoji(id string, tags ...string) api.Imoji {
	thumb := "/assets/" + id + "/thumbnail.png"
	full := "/assets/" + id + "/full.png"

	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets[thumb] = Sticker(32)
	s.assets[full] = Sticker(128)
	im := api.Imoji{
		ID:   id,
		Tags: append([]string{}, tags...),
		URLs: map[string]string{
			"thumbnail": s.Server.URL + thumb,
			"full":      s.Server.URL + full,
		},
	}
	if _, ok := s.imojis[id]; !ok {
		s.order = append(s.order, id)
	}
	s.imojis[id] = im
	return im
}

// SetAsset replaces the bytes served at path, e.g. "/assets/cat/full.png".
// A nil value makes the path return 404.
func (s *Server) SetAsset(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == nil {
		delete(s.assets, path)
		return
	}
	s.assets[path] = data
}

// SetURLs overrides the asset URLs of a registered sticker.
func (s *Server) SetURLs(id string, urls map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	im := s.imojis[id]
	im.URLs = urls
	s.imojis[id] = im
}

// SetFeatured sets the ids returned by the featured endpoint and empty searches.
func (s *Server) SetFeatured(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.featured = append([]string{}, ids...)
}

// AddCategory registers a category whose preview is the sticker previewID.
func (s *Server) AddCategory(classification, id, title, previewID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := api.Category{ID: id, Title: title}
	if im, ok := s.imojis[previewID]; ok {
		c.Imoji = &im
	}
	s.categories[classification] = append(s.categories[classification], c)
}

// IssueCode registers a one-time authorization code.
func (s *Server) IssueCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = true
}

// Collection returns the sticker ids collected by the user holding token.
func (s *Server) Collection(token string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.userTokens[token]...)
}

// UserTokens returns the live user access tokens.
func (s *Server) UserTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.userTokens))
	for t := range s.userTokens {
		out = append(out, t)
	}
	return out
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appTokens = map[string]bool{}
	s.userTokens = map[string][]string{}
	s.refresh = map[string]string{}
}

// SetTokenExpiry sets expires_in for tokens issued from now on.
func (s *Server) SetTokenExpiry(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenExpiry = d
}

// Fail makes the next len(statuses) requests to path answer with those
// statuses, in order.
func (s *Server) Fail(path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], statuses...)
}

// Block holds requests to path until the returned release func is called.
func (s *Server) Block(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[path] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		gate := s.gates[r.URL.Path]
		var status int
		if q := s.failures[r.URL.Path]; len(q) > 0 {
			status, s.failures[r.URL.Path] = q[0], q[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeFailure(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(user bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			s.mu.Lock()
			_, isUser := s.userTokens[token]
			valid := ok && (isUser || (!user && s.appTokens[token]))
			s.mu.Unlock()
			if !valid {
				writeFailure(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := map[string]any{
		"token_type": "bearer",
		"expires_in": int(s.tokenExpiry / time.Second),
	}
	switch r.PostForm.Get("grant_type") {
	case "client_credentials":
		tok := "app-" + uuid.NewString()
		s.appTokens[tok] = true
		resp["access_token"] = tok
	case "authorization_code":
		code := r.PostForm.Get("code")
		if !s.codes[code] {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		delete(s.codes, code)
		tok, rt := "user-"+uuid.NewString(), "refresh-"+uuid.NewString()
		s.userTokens[tok] = []string{}
		s.refresh[rt] = tok
		resp["access_token"], resp["refresh_token"] = tok, rt
	case "refresh_token":
		old, ok := s.refresh[r.PostForm.Get("refresh_token")]
		if !ok {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		tok := "user-" + uuid.NewString()
		s.userTokens[tok] = s.userTokens[old]
		delete(s.userTokens, old)
		s.refresh[r.PostForm.Get("refresh_token")] = tok
		resp["access_token"], resp["refresh_token"] = tok, r.PostForm.Get("refresh_token")
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid form")
		return
	}
	tok := r.PostForm.Get("token")
	s.mu.Lock()
	delete(s.userTokens, tok)
	for rt, at := range s.refresh {
		if at == tok {
			delete(s.refresh, rt)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.assets[r.URL.Path]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.ToLower(strings.TrimSpace(q.Get("query")))

	s.mu.Lock()
	var results []api.Imoji
	if query == "" {
		results = s.lookup(s.featured)
	} else {
		for _, id := range s.order {
			im := s.imojis[id]
			if matches(im, query) {
				results = append(results, im)
			}
		}
	}
	s.mu.Unlock()

	offset, okOffset := intParam(q, "offset")
	limit, okLimit := intParam(q, "numResults")
	if !okOffset || !okLimit || offset < 0 || limit < 0 {
		writeFailure(w, http.StatusBadRequest, "invalid paging")
		return
	}
	if offset > len(results) {
		offset = len(results)
	}
	results = results[offset:]
	if q.Has("numResults") && limit < len(results) {
		results = results[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": nonNil(results)})
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r.URL.Query(), "numResults")
	if !ok || limit < 0 {
		writeFailure(w, http.StatusBadRequest, "invalid numResults")
		return
	}
	s.mu.Lock()
	results := s.lookup(s.featured)
	s.mu.Unlock()
	if r.URL.Query().Has("numResults") && limit < len(results) {
		results = results[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": nonNil(results)})
}

func (s *Server) handleFetchMultiple(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		writeFailure(w, http.StatusBadRequest, "ids required")
		return
	}
	s.mu.Lock()
	results := s.lookup(req.IDs)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"results": nonNil(results)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	classification := r.URL.Query().Get("classification")
	if classification != "trending" && classification != "generic" {
		writeFailure(w, http.StatusBadRequest, "unknown classification")
		return
	}
	s.mu.Lock()
	cats := append([]api.Category{}, s.categories[classification]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	results := s.lookup(s.userTokens[token])
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"results": nonNil(results)})
}

func (s *Server) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	var req struct {
		ImojiID string `json:"imojiId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImojiID == "" {
		writeFailure(w, http.StatusBadRequest, "imojiId required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imojis[req.ImojiID]; !ok {
		writeFailure(w, http.StatusNotFound, "imoji not found")
		return
	}
	s.userTokens[token] = append(s.userTokens[token], req.ImojiID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "SUCCESS"})
}

// lookup must be called with mu held.
func (s *Server) lookup(ids []string) []api.Imoji {
	out := make([]api.Imoji, 0, len(ids))
	for _, id := range ids {
		if im, ok := s.imojis[id]; ok {
			out = append(out, im)
		}
	}
	return out
}

func matches(im api.Imoji, query string) bool {
	if strings.Contains(strings.ToLower(im.ID), query) {
		return true
	}
	for _, tag := range im.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func intParam(q url.Values, key string) (int, bool) {
	if !q.Has(key) {
		return 0, true
	}
	n, err := strconv.Atoi(q.Get(key))
	return n, err == nil
}

func nonNil(in []api.Imoji) []api.Imoji {
	if in == nil {
		return []api.Imoji{}
	}
	return in
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "FAILURE", "message": msg})
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// Sticker returns a PNG of size x size pixels: an opaque disc on a
// transparent background.
func Sticker(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	r2 := (float64(size) / 3) * (float64(size) / 3)
	for y := range size {
		for x := range size {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= r2 {
				img.SetNRGBA(x, y, color.NRGBA{R: 240, G: 120, B: 40, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
