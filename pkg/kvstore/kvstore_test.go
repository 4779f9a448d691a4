package kvstore_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji/pkg/kvstore"
)

func stores(t *testing.T) map[string]kvstore.Store {
	t.Helper()
	fsStore, err := kvstore.NewFS(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	return map[string]kvstore.Store{
		"fs":     fsStore,
		"memory": &kvstore.Memory{},
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	for name, kvs := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kvs.Get("user_token")
			assert.ErrorIs(t, err, kvstore.ErrNoSuchKey)

			require.NoError(t, kvs.Set("user_token", []byte("foobar")))
			value, err := kvs.Get("user_token")
			require.NoError(t, err)
			assert.Equal(t, []byte("foobar"), value)

			require.NoError(t, kvs.Set("user_token", []byte("v2")))
			value, err = kvs.Get("user_token")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), value)

			require.NoError(t, kvs.Delete("user_token"))
			_, err = kvs.Get("user_token")
			assert.ErrorIs(t, err, kvstore.ErrNoSuchKey)

			assert.NoError(t, kvs.Delete("user_token"), "deleting a missing key is a no-op")
		})
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	t.Parallel()

	for name, kvs := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
				assert.ErrorIs(t, kvs.Set(key, []byte("x")), kvstore.ErrInvalidKey, key)
				_, err := kvs.Get(key)
				assert.ErrorIs(t, err, kvstore.ErrInvalidKey, key)
				assert.ErrorIs(t, kvs.Delete(key), kvstore.ErrInvalidKey, key)
			}
		})
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	t.Parallel()

	kvs := &kvstore.Memory{}
	value := []byte("abc")
	require.NoError(t, kvs.Set("k", value))
	value[0] = 'X'

	got, err := kvs.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'Y'
	again, err := kvs.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, kvs.Len())
}

func TestFS_FilePermissions(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	kvs, err := kvstore.NewFS(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, kvs.Dir())
	require.NoError(t, kvs.Set("user_token", []byte("sealed")))

	info, err := os.Stat(filepath.Join(dir, "user_token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestFS_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := kvstore.NewFS(dir)
	require.NoError(t, err)
	b, err := kvstore.NewFS(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kvs := a
			if i%2 == 1 {
				kvs = b
			}
			assert.NoError(t, kvs.Set("shared", []byte(fmt.Sprintf("value-%02d", i))))
		}()
	}
	wg.Wait()

	value, err := a.Get("shared")
	require.NoError(t, err)
	assert.Len(t, value, len("value-00"))
}

func TestNewFS_Empty(t *testing.T) {
	t.Parallel()

	_, err := kvstore.NewFS("")
	assert.True(t, errors.Is(err, kvstore.ErrStoreFailed))
}
