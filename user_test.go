package imoji_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/imojitest"
)

func addToCollection(t *testing.T, sess *imoji.Session, im *imoji.Imoji) (bool, error) {
	t.Helper()
	var (
		ok    bool
		err   error
		calls int
	)
	wait(t, sess.AddToUserCollection(im, func(done bool, e error) {
		calls++
		ok, err = done, e
	}))
	require.Equal(t, 1, calls)
	return ok, err
}

func TestSession_UserOperationsRequireSynchronization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.AddImoji("cat", "cat")
	im := fetchImoji(t, f.sess, "cat")
	require.Equal(t, imoji.StateConnected, f.sess.State())

	res := newResults()
	wait(t, f.sess.UserImojis(res.resultSet, res.item))
	assert.ErrorIs(t, res.err, imoji.ErrSessionNotSynchronized)
	assert.Zero(t, res.count)
	assert.Zero(t, res.itemCalls)

	ok, err := addToCollection(t, f.sess, im)
	assert.False(t, ok)
	assert.ErrorIs(t, err, imoji.ErrSessionNotSynchronized)

	// The gate comes before argument checks.
	ok, err = addToCollection(t, f.sess, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, imoji.ErrSessionNotSynchronized)

	assert.Zero(t, f.srv.Hits("/user/imoji/collection"))
	assert.Zero(t, f.srv.Hits("/user/imoji/collection/add"))
	assert.Equal(t, imoji.StateConnected, f.sess.State())
}

func TestSession_UserCollection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.AddImoji("cat", "cat")
	f.srv.AddImoji("dog", "dog")
	synchronize(t, f)

	for _, id := range []string{"dog", "cat"} {
		ok, err := addToCollection(t, f.sess, fetchImoji(t, f.sess, id))
		require.NoError(t, err)
		require.True(t, ok)
	}

	tokens := f.srv.UserTokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, []string{"dog", "cat"}, f.srv.Collection(tokens[0]))

	res := newResults()
	wait(t, f.sess.UserImojis(res.resultSet, res.item))
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.count)
	require.Len(t, res.items, 2)
	assert.Equal(t, "dog", res.items[0].ID())
	assert.Equal(t, "cat", res.items[1].ID())
	assert.Empty(t, res.itemErrs)

	ok, err := addToCollection(t, f.sess, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, imoji.ErrInvalidArgument)
}

func TestSession_UserTokenRevoked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.AddImoji("cat", "cat")
	synchronize(t, f)
	im := fetchImoji(t, f.sess, "cat")

	f.srv.RevokeAll()
	ok, err := addToCollection(t, f.sess, im)
	assert.False(t, ok)
	assert.ErrorIs(t, err, imoji.ErrSessionNotSynchronized)
	assert.NotEqual(t, imoji.StateConnectedSynchronized, f.sess.State())
	assert.NoFileExists(t, f.persistDir+"/user_token")

	// Later user operations fail locally.
	before := f.srv.Hits("/user/imoji/collection")
	res := newResults()
	wait(t, f.sess.UserImojis(res.resultSet, res.item))
	assert.ErrorIs(t, res.err, imoji.ErrSessionNotSynchronized)
	assert.Equal(t, before, f.srv.Hits("/user/imoji/collection"))
}

func TestSession_UserTokenRefresh(t *testing.T) {
	t.Parallel()

	srv := imojitest.NewServer(t)
	srv.SetTokenExpiry(time.Second)
	srv.AddImoji("cat", "cat")
	f := newFixtureWith(t, srv, srv.Config())
	synchronize(t, f)
	before := srv.UserTokens()
	require.Len(t, before, 1)

	// oauth2 treats tokens within ten seconds of expiry as expired.
	ok, err := addToCollection(t, f.sess, fetchImoji(t, f.sess, "cat"))
	require.NoError(t, err)
	require.True(t, ok)

	after := srv.UserTokens()
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0], after[0])
	assert.Equal(t, []string{"cat"}, srv.Collection(after[0]))
	assert.Equal(t, imoji.StateConnectedSynchronized, f.sess.State())
}

func TestSession_StateTransitionsReachDelegate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.srv.AddImoji("cat", "cat")
	fetchImoji(t, f.sess, "cat")
	synchronize(t, f)
	wait(t, f.sess.ClearUserSynchronization(nil))

	transitions, _ := f.delegate.snapshot()
	assert.Equal(t, []transition{
		{from: imoji.StateNotConnected, to: imoji.StateConnected},
		{from: imoji.StateConnected, to: imoji.StateConnectedSynchronized},
		{from: imoji.StateConnectedSynchronized, to: imoji.StateConnected},
	}, transitions)

	// Swapping the delegate takes effect for later transitions.
	next := &recorder{}
	f.sess.SetDelegate(next)
	authURL, err := f.sess.SynchronizationURL()
	require.NoError(t, err)
	require.True(t, f.sess.HandleImojiAppRequest(context.Background(), f.srv.Callback(authURL, "again"), imojitest.CompanionAppID))
	got, _ := next.snapshot()
	assert.Equal(t, []transition{{from: imoji.StateConnected, to: imoji.StateConnectedSynchronized}}, got)
}

func TestSession_DelegateMayReenterSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	authURL, err := f.sess.SynchronizationURL()
	require.NoError(t, err)
	callback := f.srv.Callback(authURL, "code-reentrant")

	var (
		mu          sync.Mutex
		transitions []transition
		handled     bool
	)
	f.sess.SetDelegate(imoji.DelegateFunc(func(s *imoji.Session, newState, oldState imoji.SessionState) {
		mu.Lock()
		transitions = append(transitions, transition{from: oldState, to: newState})
		mu.Unlock()
		if newState == imoji.StateConnected {
			ok := s.HandleImojiAppRequest(context.Background(), callback, imojitest.CompanionAppID)
			mu.Lock()
			handled = ok
			mu.Unlock()
		}
	}))

	wait(t, f.sess.Categories(imoji.ClassificationTrending, nil))

	assert.Equal(t, imoji.StateConnectedSynchronized, f.sess.State())
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, handled)
	assert.Equal(t, []transition{
		{from: imoji.StateNotConnected, to: imoji.StateConnected},
		{from: imoji.StateConnected, to: imoji.StateConnectedSynchronized},
	}, transitions)
}
