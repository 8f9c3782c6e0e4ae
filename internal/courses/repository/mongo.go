package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/techfemme/academy/backend/go-services/internal/courses"
)

// MongoRepo implements a MongoDB-backed repository for courses keyed by a uuid _id.
type MongoRepo struct {
	col *mongo.Collection
	now func() time.Time
}

var _ Repository = (*MongoRepo)(nil)

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates the createdAt index used by List.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("courses: create index: %w", err)
	}
	return nil
}

func (m *MongoRepo) Create(ctx context.Context, c *courses.Course) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	if _, err := m.col.InsertOne(ctx, c); err != nil {
		return "", err
	}
	return c.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*courses.Course, error) {
	var c courses.Course
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*courses.Course, error) {
	cur, err := m.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*courses.Course{}
	for cur.Next(ctx) {
		var c courses.Course
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
