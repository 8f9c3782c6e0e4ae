package credentials

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEmailTaken is returned by Create when another account owns the email.
var ErrEmailTaken = errors.New("email already registered")

// Repository persists accounts. Lookups return (nil, nil) when absent.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
}

// MongoRepository implements Repository using the accounts collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the unique email index that backs ErrEmailTaken.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, a *Account) error {
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var a Account
	if err := r.col.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// MemoryRepository is an in-process account store for tests and local runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]Account{}, byEmail: map[string]string{}}
}

func (m *MemoryRepository) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return ErrEmailTaken
	}
	m.byID[a.ID] = *a
	m.byEmail[a.Email] = a.ID
	return nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	a := m.byID[id]
	return &a, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
