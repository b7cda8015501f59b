package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "sess-1/photo-abc.jpg"
	require.NoError(t, store.Put(ctx, key, "roof.jpg", []byte("image-bytes")))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("image-bytes"), got)

	url, err := store.PresignGet(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "/uploads/sess-1_photo-abc.jpg", url)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.Error(t, err)
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), "sess-1/gone.jpg"))
}
