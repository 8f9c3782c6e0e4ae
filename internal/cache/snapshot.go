package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// SnapshotKey is the slot name of the persisted profile.
const SnapshotKey = "user"

// Snapshot is the durable tier of the cache: a single profile that survives restarts.
// Load returns (nil, nil) when nothing has been saved.
type Snapshot interface {
	Load(ctx context.Context) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) error
	Clear(ctx context.Context) error
}

// NopSnapshot keeps nothing. It is used when no durable backend is configured.
type NopSnapshot struct{}

func (NopSnapshot) Load(ctx context.Context) (*models.Profile, error) { return nil, nil }
func (NopSnapshot) Save(ctx context.Context, p *models.Profile) error { return nil }
func (NopSnapshot) Clear(ctx context.Context) error                   { return nil }

func encode(p *models.Profile) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*models.Profile, error) {
	var p models.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &p, nil
}
