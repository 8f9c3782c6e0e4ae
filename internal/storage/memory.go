package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process memory. Used by tests and local runs
// without MinIO.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

var _ BlobStore = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: buf.Bytes(), contentType: contentType}
	return nil
}

func (m *MemoryStorage) Download(ctx context.Context, key string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		ReadCloser:  io.NopCloser(bytes.NewReader(o.data)),
		ContentType: o.contentType,
		Size:        int64(len(o.data)),
	}, nil
}
