package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorageUploadOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	key := AvatarKey("u1")
	require.Equal(t, "avatars/u1", key)

	_, err := s.Download(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Upload(ctx, key, strings.NewReader("first"), 5, "image/png"))
	require.NoError(t, s.Upload(ctx, key, strings.NewReader("second"), 6, "image/jpeg"))

	obj, err := s.Download(ctx, key)
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
	require.Equal(t, "image/jpeg", obj.ContentType)
	require.Equal(t, int64(6), obj.Size)
}
