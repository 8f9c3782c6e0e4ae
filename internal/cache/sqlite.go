package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// TokenKey is the slot holding the CLI's signed-in bearer token.
const TokenKey = "token"

// Entry is one row of the local key/value table.
type Entry struct {
	Slot      string `gorm:"column:slot;primaryKey;size:64"`
	Value     string `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "local_snapshot"
}

// SQLiteStore is a small key/value table in a local SQLite file. The CLI keeps its
// profile snapshot and bearer token here.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Snapshot = (*SQLiteStore)(nil)

// NewSQLiteStore wraps db. The Entry table must already be migrated.
func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, slot string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("slot = ?", slot).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, slot, value string) error {
	e := Entry{Slot: slot, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	return s.db.WithContext(ctx).Where("slot = ?", slot).Delete(&Entry{}).Error
}

func (s *SQLiteStore) Load(ctx context.Context) (*models.Profile, error) {
	v, ok, err := s.Get(ctx, SnapshotKey)
	if err != nil || !ok {
		return nil, err
	}
	return decode([]byte(v))
}

func (s *SQLiteStore) Save(ctx context.Context, p *models.Profile) error {
	b, err := encode(p)
	if err != nil {
		return err
	}
	return s.Put(ctx, SnapshotKey, string(b))
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.Delete(ctx, SnapshotKey)
}

// ForIdentity returns a snapshot slot scoped to identityID, for servers that keep
// several identities in one file.
func (s *SQLiteStore) ForIdentity(identityID string) Snapshot {
	return sqliteSlot{store: s, slot: SnapshotKey + ":" + identityID}
}

type sqliteSlot struct {
	store *SQLiteStore
	slot  string
}

func (s sqliteSlot) Load(ctx context.Context) (*models.Profile, error) {
	v, ok, err := s.store.Get(ctx, s.slot)
	if err != nil || !ok {
		return nil, err
	}
	return decode([]byte(v))
}

func (s sqliteSlot) Save(ctx context.Context, p *models.Profile) error {
	b, err := encode(p)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.slot, string(b))
}

func (s sqliteSlot) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.slot)
}
