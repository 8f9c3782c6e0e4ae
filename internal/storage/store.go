package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when an object key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Object is an open stored object. Callers close it.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// BlobStore is what the profile editor and the avatar route need from object storage.
type BlobStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (*Object, error)
}

// AvatarKey is the object key for an identity's avatar. Every upload for the
// same identity overwrites the previous object.
func AvatarKey(identityID string) string {
	return "avatars/" + identityID
}
