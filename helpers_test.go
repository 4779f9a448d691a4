package imoji_test

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/imojitest"
)

type fixture struct {
	srv        *imojitest.Server
	sess       *imoji.Session
	root       string
	cacheDir   string
	persistDir string
	delegate   *recorder
}

func newFixture(t *testing.T, opts ...imoji.Option) *fixture {
	t.Helper()
	srv := imojitest.NewServer(t)
	return newFixtureWith(t, srv, srv.Config(), opts...)
}

func newFixtureWith(t *testing.T, srv *imojitest.Server, cfg imoji.Config, opts ...imoji.Option) *fixture {
	t.Helper()

	root := t.TempDir()
	f := &fixture{
		srv:        srv,
		root:       root,
		cacheDir:   filepath.Join(root, "cache"),
		persistDir: filepath.Join(root, "state"),
		delegate:   &recorder{},
	}
	policy, err := imoji.NewStoragePolicy(f.cacheDir, f.persistDir)
	require.NoError(t, err)

	all := append([]imoji.Option{imoji.WithConfig(cfg), imoji.WithDelegate(f.delegate)}, opts...)
	f.sess, err = imoji.New(policy, all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.sess.Close() })
	return f
}

func wait(t *testing.T, op *imoji.Operation) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, op.Wait(ctx))
}

func intPtr(n int) *int { return &n }

// results collects the callbacks of one streaming operation.
type results struct {
	mu        sync.Mutex
	rsCalls   int
	count     int
	err       error
	items     map[int]*imoji.Imoji
	itemErrs  map[int]error
	itemCalls int
}

func newResults() *results {
	return &results{items: map[int]*imoji.Imoji{}, itemErrs: map[int]error{}}
}

func (r *results) resultSet(count int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rsCalls++
	r.count, r.err = count, err
}

func (r *results) item(im *imoji.Imoji, index int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.itemCalls++
	r.items[index] = im
	if err != nil {
		r.itemErrs[index] = err
	}
}

func (r *results) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rsCalls + r.itemCalls
}

type transition struct {
	from, to imoji.SessionState
}

type recorder struct {
	mu          sync.Mutex
	transitions []transition
	failures    []error
}

func (r *recorder) SessionStateChanged(_ *imoji.Session, newState, oldState imoji.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{from: oldState, to: newState})
}

func (r *recorder) SynchronizationFailed(_ *imoji.Session, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recorder) snapshot() ([]transition, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.transitions...), append([]error(nil), r.failures...)
}

type launcher struct {
	mu      sync.Mutex
	canOpen bool
	openErr error
	opened  []*url.URL
}

func (l *launcher) CanOpen(*url.URL) bool { return l.canOpen }

func (l *launcher) Open(_ context.Context, u *url.URL) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return l.openErr
	}
	l.opened = append(l.opened, u)
	return nil
}

func (l *launcher) last() *url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.opened) == 0 {
		return nil
	}
	return l.opened[len(l.opened)-1]
}

// fetchImoji resolves one sticker through the session.
func fetchImoji(t *testing.T, sess *imoji.Session, id string) *imoji.Imoji {
	t.Helper()
	res := newResults()
	wait(t, sess.FetchByIdentifiers([]string{id}, res.item))
	require.Len(t, res.items, 1)
	im := res.items[0]
	require.NotNil(t, im)
	return im
}

// synchronize runs a full handshake against the fake.
func synchronize(t *testing.T, f *fixture) {
	t.Helper()
	authURL, err := f.sess.SynchronizationURL()
	require.NoError(t, err)
	cb := f.srv.Callback(authURL, "code-"+t.Name())
	require.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
	require.Equal(t, imoji.StateConnectedSynchronized, f.sess.State())
}
