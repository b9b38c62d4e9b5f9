package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileSystemStore(t.TempDir(), "http://localhost:8080/files/", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	key := "quotes/2026/COT-2026-000001.pdf"
	require.NoError(t, store.Put(ctx, key, []byte("%PDF-1.7"), "application/pdf"))

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	obj, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, obj.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Equal(t, int64(8), obj.Size)
	assert.Equal(t, "application/pdf", obj.ContentType)

	link, err := store.Link(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/"+key, link.URL)
	assert.True(t, link.ExpiresAt.IsZero())

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = store.Link(ctx, key, 0)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFileSystemStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileSystemStore(t.TempDir(), "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, key := range []string{"", "../outside.pdf", "quotes/../../etc/passwd", "."} {
		t.Run(key, func(t *testing.T) {
			assert.Error(t, store.Put(ctx, key, []byte("x"), "text/plain"))
			_, err := store.Get(ctx, key)
			assert.Error(t, err)
		})
	}
}
