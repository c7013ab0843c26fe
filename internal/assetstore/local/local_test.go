package local

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndGet(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8080/assets")
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("fake mp3 data")

	require.NoError(t, store.Put(ctx, "sounds/bell.mp3", "audio/mpeg", bytes.NewReader(data)))

	reader, contentType, err := store.Get(ctx, "sounds/bell.mp3")
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "audio/mpeg", contentType)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStorePutRefusesOverwrite(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a.wav", "audio/wav", bytes.NewReader([]byte("1"))))
	assert.Error(t, store.Put(ctx, "a.wav", "audio/wav", bytes.NewReader([]byte("2"))))
}

func TestLocalStoreDelete(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "houses/h.jpg", "image/jpeg", bytes.NewReader([]byte("x"))))
	require.NoError(t, store.Delete(ctx, "houses/h.jpg"))

	_, _, err = store.Get(ctx, "houses/h.jpg")
	assert.Error(t, err)
	assert.Error(t, store.Delete(ctx, "houses/h.jpg"))
}

func TestLocalStoreList(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	for _, k := range []string{"houses/k1.jpg", "houses/k1.jpg--thumb_600x1000.jpg", "houses/k2.jpg"} {
		require.NoError(t, store.Put(ctx, k, "image/jpeg", bytes.NewReader([]byte("x"))))
	}

	keys, err := store.List(ctx, "houses/k1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"houses/k1.jpg", "houses/k1.jpg--thumb_600x1000.jpg"}, keys)

	keys, err = store.List(ctx, "missing/k1.jpg")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalStoreURL(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8080/assets/")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/assets/sounds/a.mp3", store.URL("sounds/a.mp3"))
}

func TestLocalStorePathTraversal(t *testing.T) {
	store, err := New(t.TempDir(), "")
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.Error(t, store.Put(ctx, "../escape.wav", "audio/wav", bytes.NewReader([]byte("x"))))
}
