package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/imoji/pkg/storage"
)

func TestLocalStorage_PutGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "render/abc.png", []byte("png-bytes")))

	data, err := st.Get(ctx, "render/abc.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.True(t, st.Exists(ctx, "render/abc.png"))
	assert.Equal(t, filepath.Join(dir, "render", "abc.png"), st.Location("render/abc.png"))

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, st.Put(ctx, "render/abc.png", []byte("v2")))
		data, err := st.Get(ctx, "render/abc.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := st.Get(ctx, "render/nope.png")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.False(t, st.Exists(ctx, "render/nope.png"))
	})
}

func TestLocalStorage_PathTraversal(t *testing.T) {
	t.Parallel()

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = st.Put(ctx, "../escape.txt", []byte("x"))
	assert.ErrorIs(t, err, storage.ErrInvalidPath)

	_, err = st.Get(ctx, "a/../../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
	assert.Empty(t, st.Location("../x"))
}

func TestLocalStorage_DeleteAndList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "a.bin", []byte("1")))
	require.NoError(t, st.Put(ctx, "sub/b.bin", []byte("22")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o644))

	entries, err := st.List(ctx, "")
	require.NoError(t, err)
	names := map[string]storage.Entry{}
	for _, e := range entries {
		names[e.Name] = e
	}
	assert.Len(t, names, 2)
	assert.EqualValues(t, 1, names["a.bin"].Size)
	assert.True(t, names["sub"].IsDir)

	require.NoError(t, st.Delete(ctx, "a.bin"))
	assert.False(t, st.Exists(ctx, "a.bin"))
	assert.ErrorIs(t, st.Delete(ctx, "a.bin"), storage.ErrNotFound)

	require.NoError(t, st.DeleteDir(ctx, "sub"))
	assert.False(t, st.Exists(ctx, "sub"))
	assert.ErrorIs(t, st.DeleteDir(ctx, "sub"), storage.ErrDirectoryNotFound)
}

func TestLocalStorage_DeleteDirRootKeepsBase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "x/y/z.bin", []byte("1")))
	require.NoError(t, st.DeleteDir(ctx, ""))

	_, err = os.Stat(dir)
	require.NoError(t, err)
	entries, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorage_CanceledContext(t *testing.T) {
	t.Parallel()

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, st.Put(ctx, "a", []byte("1")), context.Canceled)
	assert.False(t, st.Exists(ctx, "a"))
}

func TestNewLocalStorage_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := storage.NewLocalStorage("")
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
}
