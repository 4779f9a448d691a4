package imoji

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/imoji/pkg/api"
	"github.com/dmitrymomot/imoji/pkg/async"
	"github.com/dmitrymomot/imoji/pkg/cache"
	"github.com/dmitrymomot/imoji/pkg/handshake"
	"github.com/dmitrymomot/imoji/pkg/kvstore"
	"github.com/dmitrymomot/imoji/pkg/logger"
	"github.com/dmitrymomot/imoji/pkg/ratelimiter"
	"github.com/dmitrymomot/imoji/pkg/secrets"
	"github.com/dmitrymomot/imoji/pkg/statemachine"
	"github.com/dmitrymomot/imoji/pkg/storage"
	"github.com/dmitrymomot/imoji/pkg/transport"
)

const userTokenKey = "user_token"

// Session is the entry point of the SDK. It is safe for concurrent use.
type Session struct {
	cfg    Config
	policy StoragePolicy

	logger     *slog.Logger
	clock      clockwork.Clock
	dispatcher async.Dispatcher
	launcher   Launcher
	registerer prometheus.Registerer
	httpClient *http.Client
	s3Options  []storage.S3Option

	client    *api.Client
	metrics   *metrics
	machine   *statemachine.Machine[SessionState, stateEvent]
	storage   storage.Storage
	auth      kvstore.Store
	sealer    *secrets.Sealer
	handshake *handshake.Handshake

	contentCache cache.Cache[string, image.Image]
	renders      *cache.Group[image.Image]
	blobs        cache.BlobStore
	redis        *redis.Client

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu        sync.RWMutex
	delegate  Delegate
	userToken *oauth2.Token

	notifyMu  sync.Mutex
	pending   []stateChange
	notifying bool
}

// NewDefault creates a Session with the temporary storage policy.
func NewDefault(opts ...Option) (*Session, error) {
	return New(TemporaryDiskStoragePolicy(), opts...)
}

// New creates a Session. With an explicit policy, a user token persisted by
// an earlier Session is restored and the session becomes synchronized on its
// first successful connection.
func New(policy StoragePolicy, opts ...Option) (_ *Session, err error) {
	const op = "new session"

	if !policy.valid() {
		return nil, invalidArgument(op, "storage policy is not initialized")
	}

	s := &Session{
		cfg:        DefaultConfig(),
		policy:     policy,
		logger:     logger.Discard(),
		clock:      clockwork.NewRealClock(),
		dispatcher: async.Inline,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.logger = logger.Decorate(s.logger).With(logger.Component("imoji"))

	s.metrics = newMetrics()
	if s.client, err = s.newAPIClient(); err != nil {
		return nil, newError(CodeInvalidArgument, op, err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.storage, err = storage.Open(s.ctx, policy.CachePath(), s.cfg.S3, s.s3Options...); err != nil {
		return nil, newError(CodeInvalidArgument, op, err)
	}
	if policy.IsEphemeral() {
		s.auth = &kvstore.Memory{}
	} else if s.auth, err = kvstore.NewFS(policy.PersistentPath()); err != nil {
		return nil, newError(CodeInvalidArgument, op, err)
	}
	if s.sealer, err = secrets.NewSealer([]byte(s.cfg.APIToken), []byte(s.cfg.ClientID)); err != nil {
		return nil, newError(CodeInvalidArgument, op, err)
	}

	if s.cfg.CallbackScheme != "" {
		s.handshake, err = handshake.New(handshake.Config{
			ClientID:       s.cfg.ClientID,
			CallbackScheme: s.cfg.CallbackScheme,
			CompanionAppID: s.cfg.CompanionAppID,
			AuthorizeURL:   s.cfg.AuthorizeURL,
			TTL:            s.cfg.HandshakeTTL,
		}, handshake.WithClock(s.clock))
		if err != nil {
			return nil, newError(CodeInvalidArgument, op, err)
		}
	}

	if s.contentCache == nil {
		s.contentCache = cache.NewLRUCache[string, image.Image](s.cfg.ContentCacheSize,
			cache.WithTTL(s.cfg.ContentCacheTTL), cache.WithClock(s.clock))
	}
	s.renders = cache.NewGroup(s.contentCache)

	if s.blobs == nil && s.cfg.Redis.ConnectionURL != "" {
		if s.redis, err = cache.DialRedis(s.ctx, s.cfg.Redis); err != nil {
			return nil, newError(CodeInvalidArgument, op, err)
		}
		s.blobs = cache.NewRedisBlobStore(s.redis, s.cfg.Redis.KeyPrefix)
	}

	if err = s.metrics.register(s.registerer); err != nil {
		return nil, err
	}

	s.machine = newStateMachine(s.onTransition)
	s.restoreUserToken()

	s.logger.Debug("session created",
		slog.String("cache", policy.CachePath()),
		slog.Bool("ephemeral", policy.IsEphemeral()),
	)
	return s, nil
}

func (s *Session) newAPIClient() (*api.Client, error) {
	base, err := url.Parse(s.cfg.APIURL)
	if err != nil {
		return nil, err
	}
	topts := []transport.Option{
		transport.WithTimeout(s.cfg.HTTPTimeout),
		transport.WithMaxRetries(s.cfg.MaxRetries),
		transport.WithCircuitBreaker(transport.NewCircuitBreaker(5, 1, 30*time.Second)),
		transport.WithOnAttempt(func(a transport.Attempt) {
			s.metrics.observe(base, a)
			s.logger.Debug("api attempt",
				logger.Endpoint(endpointLabel(base, a.URL)),
				logger.Status(a.StatusCode),
				logger.Attempt(a.Attempt),
				logger.Duration(a.Duration),
			)
		}),
	}
	if s.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(s.httpClient))
	}
	if s.cfg.RateLimit > 0 {
		bucket, err := ratelimiter.NewBucket(ratelimiter.PerSecond(s.cfg.RateLimit, s.cfg.RateBurst),
			ratelimiter.WithClock(s.clock))
		if err != nil {
			return nil, err
		}
		topts = append(topts, transport.WithRateLimiter(bucket))
	}
	return api.New(api.Config{
		BaseURL:      s.cfg.APIURL,
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.APIToken,
	}, api.WithTransport(transport.New(topts...)))
}

// Close cancels every in-flight operation and releases resources. The
// temporary cache directory is removed. Operations started afterwards never
// call back.
func (s *Session) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.cancel()
		if s.redis != nil {
			errs = append(errs, s.redis.Close())
		}
		if s.policy.IsEphemeral() {
			errs = append(errs, os.RemoveAll(s.policy.cache.Path))
		}
	})
	return errors.Join(errs...)
}

func (s *Session) State() SessionState {
	return s.machine.Current()
}

func (s *Session) Policy() StoragePolicy {
	return s.policy
}

func (s *Session) Delegate() Delegate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delegate
}

func (s *Session) SetDelegate(d Delegate) {
	s.mu.Lock()
	s.delegate = d
	s.mu.Unlock()
}

// ContentCache returns the cache of rendered stickers, nil when disabled.
func (s *Session) ContentCache() cache.Cache[string, image.Image] {
	return s.renders.Cache()
}

// SetContentCache swaps the cache of rendered stickers; nil disables caching
// but concurrent renders of the same sticker still coalesce.
func (s *Session) SetContentCache(c cache.Cache[string, image.Image]) {
	s.renders.SetCache(c)
}

// start runs fn as a new Operation bound to the session lifetime.
func (s *Session) start(op string, fn func(ctx context.Context, t *async.Task)) *Operation {
	id := uuid.New()
	ctx := logger.WithOperationID(s.ctx, id.String())
	task := async.Go(ctx, s.dispatcher, func(ctx context.Context, t *async.Task) {
		began := s.clock.Now()
		s.logger.DebugContext(ctx, "operation started", slog.String("op", op))
		fn(ctx, t)
		s.logger.DebugContext(ctx, "operation finished",
			slog.String("op", op),
			slog.Bool("cancelled", t.Canceled()),
			logger.Duration(s.clock.Since(began)),
		)
	})
	return &Operation{id: id, task: task}
}

// deliver hands fn to the operation unless its context has ended, so neither
// cancellation nor Close is ever reported as a failure.
func (s *Session) deliver(ctx context.Context, t *async.Task, fn func()) {
	if ctx.Err() != nil {
		return
	}
	t.Deliver(fn)
}

// connect obtains the first app token and moves the session out of
// NotConnected. A restored user token makes it synchronized directly.
func (s *Session) connect(ctx context.Context) error {
	if s.State() != StateNotConnected {
		return nil
	}
	if _, err := s.client.AppToken(ctx); err != nil {
		return s.fail(ctx, "connect", err)
	}
	if s.currentUserToken() != nil {
		s.fire(ctx, eventSynchronize)
	} else {
		s.fire(ctx, eventConnect)
	}
	return nil
}

// fail classifies an app-authenticated failure. Rejected credentials
// disconnect the session.
func (s *Session) fail(ctx context.Context, op string, err error) error {
	err = classify(ctx, op, err)
	if errors.Is(err, ErrInvalidCredentials) {
		s.fire(ctx, eventDisconnect)
	}
	return err
}

// failUser classifies a user-authenticated failure. A rejected user token
// desynchronizes the session.
func (s *Session) failUser(ctx context.Context, op string, err error) error {
	if isCanceled(ctx, err) || !errors.Is(err, api.ErrUnauthorized) {
		return classify(ctx, op, err)
	}
	s.logger.WarnContext(ctx, "user token rejected", logger.Error(err))
	s.takeUserToken()
	if derr := s.deleteUserToken(); derr != nil {
		s.logger.WarnContext(ctx, "failed to delete user token", logger.Error(derr))
	}
	s.fire(ctx, eventDesynchronize)
	return newError(CodeSessionNotSynchronized, op, err)
}

func (s *Session) currentUserToken() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToken
}

func (s *Session) takeUserToken() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := s.userToken
	s.userToken = nil
	return tok
}

// setUserToken keeps tok in memory and persists it sealed. A persistence
// failure leaves the session synchronized for its own lifetime only.
func (s *Session) setUserToken(ctx context.Context, tok *oauth2.Token) {
	s.mu.Lock()
	s.userToken = tok
	s.mu.Unlock()

	if err := s.storeUserToken(tok); err != nil {
		s.logger.WarnContext(ctx, "failed to persist user token", logger.Error(err))
	}
}

func (s *Session) storeUserToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(userTokenKey, data)
	if err != nil {
		return err
	}
	return s.auth.Set(userTokenKey, sealed)
}

func (s *Session) deleteUserToken() error {
	if err := s.auth.Delete(userTokenKey); err != nil && !errors.Is(err, kvstore.ErrNoSuchKey) {
		return err
	}
	return nil
}

// restoreUserToken loads a token persisted by an earlier Session. Unreadable
// state, such as a token sealed with other credentials, is discarded.
func (s *Session) restoreUserToken() {
	sealed, err := s.auth.Get(userTokenKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNoSuchKey) {
			s.logger.Warn("failed to read user token", logger.Error(err))
		}
		return
	}

	var tok oauth2.Token
	data, err := s.sealer.Open(userTokenKey, sealed)
	if err == nil {
		err = json.Unmarshal(data, &tok)
	}
	if err != nil || tok.AccessToken == "" {
		s.logger.Warn("discarding unreadable user token", logger.Error(err))
		if derr := s.deleteUserToken(); derr != nil {
			s.logger.Warn("failed to delete user token", logger.Error(derr))
		}
		return
	}

	s.mu.Lock()
	s.userToken = &tok
	s.mu.Unlock()
	s.logger.Debug("user token restored")
}
