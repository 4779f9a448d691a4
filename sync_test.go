package imoji_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/imojitest"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSession_IsImojiAppRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name   string
		raw    string
		source string
		want   bool
	}{
		{"callback", "imojitest://imoji/sync?code=c&state=s", imojitest.CompanionAppID, true},
		{"trailing slash", "imojitest://imoji/sync/?state=s", imojitest.CompanionAppID, true},
		{"mixed case host", "imojitest://IMOJI/sync?state=s", imojitest.CompanionAppID, true},
		{"other source", "imojitest://imoji/sync?code=c&state=s", "com.example.other", false},
		{"empty source", "imojitest://imoji/sync?code=c&state=s", "", false},
		{"other scheme", "otherapp://imoji/sync?code=c&state=s", imojitest.CompanionAppID, false},
		{"other host", "imojitest://example/sync?code=c&state=s", imojitest.CompanionAppID, false},
		{"other path", "imojitest://imoji/login?code=c&state=s", imojitest.CompanionAppID, false},
		{"web url", "https://imoji.io/sync", imojitest.CompanionAppID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.sess.IsImojiAppRequest(mustParse(t, tt.raw), tt.source))
		})
	}
	assert.False(t, f.sess.IsImojiAppRequest(nil, imojitest.CompanionAppID))
}

func TestSession_HandleImojiAppRequestIgnoresForeignURLs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	foreign := []*url.URL{
		mustParse(t, "otherapp://imoji/sync?code=c&state=s"),
		mustParse(t, "imojitest://imoji/elsewhere?code=c&state=s"),
		nil,
	}
	for _, u := range foreign {
		assert.False(t, f.sess.HandleImojiAppRequest(context.Background(), u, imojitest.CompanionAppID))
	}
	assert.False(t, f.sess.HandleImojiAppRequest(context.Background(),
		mustParse(t, "imojitest://imoji/sync?code=c&state=s"), "com.example.other"))

	assert.Equal(t, imoji.StateNotConnected, f.sess.State())
	assert.Zero(t, f.srv.Hits("/oauth/token"))
	transitions, failures := f.delegate.snapshot()
	assert.Empty(t, transitions)
	assert.Empty(t, failures)
}

func TestSession_RequestUserSynchronization(t *testing.T) {
	t.Parallel()

	l := &launcher{canOpen: true}
	f := newFixture(t, imoji.WithLauncher(l))

	require.NoError(t, f.sess.RequestUserSynchronization())
	authURL := l.last()
	require.NotNil(t, authURL)
	assert.Equal(t, "imoji", authURL.Scheme)
	assert.Equal(t, imojitest.ClientID, authURL.Query().Get("client_id"))
	assert.Equal(t, "imojitest://imoji/sync", authURL.Query().Get("redirect_uri"))
	assert.NotEmpty(t, authURL.Query().Get("state"))

	cb := f.srv.Callback(authURL.String(), "approved")
	require.True(t, f.sess.IsImojiAppRequest(cb, imojitest.CompanionAppID))
	require.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))

	assert.Equal(t, imoji.StateConnectedSynchronized, f.sess.State())
	assert.Len(t, f.srv.UserTokens(), 1)
	assert.FileExists(t, filepath.Join(f.persistDir, "user_token"))

	transitions, failures := f.delegate.snapshot()
	assert.Empty(t, failures)
	assert.Equal(t, []transition{{from: imoji.StateNotConnected, to: imoji.StateConnectedSynchronized}}, transitions)
}

func TestSession_RequestUserSynchronizationWithoutApp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []imoji.Option
	}{
		{"no launcher", nil},
		{"app not installed", []imoji.Option{imoji.WithLauncher(&launcher{canOpen: false})}},
		{"open fails", []imoji.Option{imoji.WithLauncher(&launcher{canOpen: true, openErr: errors.New("denied")})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.opts...)
			err := f.sess.RequestUserSynchronization()
			assert.ErrorIs(t, err, imoji.ErrApplicationNotInstalled)
			assert.Equal(t, imoji.StateNotConnected, f.sess.State())
		})
	}
}

func TestSession_SynchronizationDisabled(t *testing.T) {
	t.Parallel()

	srv := imojitest.NewServer(t)
	cfg := srv.Config()
	cfg.CallbackScheme = ""
	f := newFixtureWith(t, srv, cfg, imoji.WithLauncher(&launcher{canOpen: true}))

	assert.ErrorIs(t, f.sess.RequestUserSynchronization(), imoji.ErrInvalidArgument)
	_, err := f.sess.SynchronizationURL()
	assert.ErrorIs(t, err, imoji.ErrInvalidArgument)
	_, err = f.sess.SynchronizationQRCode(0)
	assert.ErrorIs(t, err, imoji.ErrInvalidArgument)
	assert.False(t, f.sess.IsImojiAppRequest(mustParse(t, "imojitest://imoji/sync?state=s"), imojitest.CompanionAppID))
}

func TestSession_HandshakeReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	authURL, err := f.sess.SynchronizationURL()
	require.NoError(t, err)
	cb := f.srv.Callback(authURL, "once")

	require.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
	require.Equal(t, imoji.StateConnectedSynchronized, f.sess.State())

	f.srv.IssueCode("once")
	assert.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
	assert.Equal(t, imoji.StateConnectedSynchronized, f.sess.State())

	_, failures := f.delegate.snapshot()
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], imoji.ErrUserAuthenticationFailed)
	assert.Len(t, f.srv.UserTokens(), 1, "replayed code is not exchanged")
}

func TestSession_HandshakeFailures(t *testing.T) {
	t.Parallel()

	t.Run("expired nonce", func(t *testing.T) {
		t.Parallel()

		clock := clockwork.NewFakeClock()
		f := newFixture(t, imoji.WithClock(clock))
		authURL, err := f.sess.SynchronizationURL()
		require.NoError(t, err)
		cb := f.srv.Callback(authURL, "late")

		clock.Advance(11 * time.Minute)
		assert.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
		assert.Equal(t, imoji.StateNotConnected, f.sess.State())
		assert.Zero(t, f.srv.Hits("/oauth/token"))

		_, failures := f.delegate.snapshot()
		require.Len(t, failures, 1)
		assert.ErrorIs(t, failures[0], imoji.ErrUserAuthenticationFailed)
	})

	t.Run("unknown nonce", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cb := mustParse(t, "imojitest://imoji/sync?code=c&state=forged")
		assert.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
		assert.Equal(t, imoji.StateNotConnected, f.sess.State())
		_, failures := f.delegate.snapshot()
		require.Len(t, failures, 1)
		assert.ErrorIs(t, failures[0], imoji.ErrUserAuthenticationFailed)
	})

	t.Run("user declined", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		authURL, err := f.sess.SynchronizationURL()
		require.NoError(t, err)
		state := mustParse(t, authURL).Query().Get("state")
		cb := mustParse(t, "imojitest://imoji/sync?error=access_denied&state="+state)

		assert.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
		_, failures := f.delegate.snapshot()
		require.Len(t, failures, 1)
		assert.ErrorIs(t, failures[0], imoji.ErrUserAuthenticationFailed)

		// The nonce was burned by the error callback.
		f.srv.IssueCode("late")
		retry := mustParse(t, "imojitest://imoji/sync?code=late&state="+state)
		assert.True(t, f.sess.HandleImojiAppRequest(context.Background(), retry, imojitest.CompanionAppID))
		assert.Equal(t, imoji.StateNotConnected, f.sess.State())
	})

	t.Run("code rejected by server", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		authURL, err := f.sess.SynchronizationURL()
		require.NoError(t, err)
		state := mustParse(t, authURL).Query().Get("state")
		cb := mustParse(t, "imojitest://imoji/sync?code=never-issued&state="+state)

		assert.True(t, f.sess.HandleImojiAppRequest(context.Background(), cb, imojitest.CompanionAppID))
		assert.Equal(t, imoji.StateNotConnected, f.sess.State())
		_, failures := f.delegate.snapshot()
		require.Len(t, failures, 1)
		assert.ErrorIs(t, failures[0], imoji.ErrUserAuthenticationFailed)
	})
}

func TestSession_SynchronizationQRCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data, err := f.sess.SynchronizationQRCode(200)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	_, err = f.sess.SynchronizationQRCode(-1)
	assert.ErrorIs(t, err, imoji.ErrInvalidArgument)
}

func TestSession_RestoresSynchronization(t *testing.T) {
	t.Parallel()

	srv := imojitest.NewServer(t)
	srv.AddImoji("cat", "cat")
	root := t.TempDir()
	policy, err := imoji.NewStoragePolicy(filepath.Join(root, "cache"), filepath.Join(root, "state"))
	require.NoError(t, err)

	first, err := imoji.New(policy, imoji.WithConfig(srv.Config()))
	require.NoError(t, err)
	authURL, err := first.SynchronizationURL()
	require.NoError(t, err)
	require.True(t, first.HandleImojiAppRequest(context.Background(), srv.Callback(authURL, "restore"), imojitest.CompanionAppID))
	ok := false
	wait(t, first.AddToUserCollection(fetchImoji(t, first, "cat"), func(done bool, err error) {
		ok = done && err == nil
	}))
	require.True(t, ok)
	require.NoError(t, first.Close())

	second, err := imoji.New(policy, imoji.WithConfig(srv.Config()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	assert.Equal(t, imoji.StateNotConnected, second.State())

	res := newResults()
	wait(t, second.UserImojis(res.resultSet, res.item))
	require.NoError(t, res.err)
	assert.Equal(t, 1, res.count)
	assert.Equal(t, "cat", res.items[0].ID())
	assert.Equal(t, imoji.StateConnectedSynchronized, second.State())

	t.Run("other credentials discard the token", func(t *testing.T) {
		cfg := srv.Config()
		cfg.APIToken = "rotated-secret"
		third, err := imoji.New(policy, imoji.WithConfig(cfg))
		require.NoError(t, err)
		t.Cleanup(func() { _ = third.Close() })

		res := newResults()
		wait(t, third.UserImojis(res.resultSet, res.item))
		assert.ErrorIs(t, res.err, imoji.ErrSessionNotSynchronized)
		assert.Equal(t, imoji.StateNotConnected, third.State(), "only a restored token connects on a gated call")
		assert.NoFileExists(t, filepath.Join(root, "state", "user_token"))
	})
}

func TestSession_ClearUserSynchronization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	synchronize(t, f)
	require.Len(t, f.srv.UserTokens(), 1)

	var (
		gotOK  bool
		gotErr error
	)
	wait(t, f.sess.ClearUserSynchronization(func(ok bool, err error) {
		gotOK, gotErr = ok, err
	}))
	require.NoError(t, gotErr)
	assert.True(t, gotOK)
	assert.Equal(t, imoji.StateConnected, f.sess.State())
	assert.Empty(t, f.srv.UserTokens())
	_, err := os.Stat(filepath.Join(f.persistDir, "user_token"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Clearing an unsynchronized session is a no-op that still succeeds.
	gotOK = false
	wait(t, f.sess.ClearUserSynchronization(func(ok bool, err error) {
		gotOK, gotErr = ok, err
	}))
	assert.True(t, gotOK)
	assert.NoError(t, gotErr)
	assert.Equal(t, imoji.StateConnected, f.sess.State())
}
