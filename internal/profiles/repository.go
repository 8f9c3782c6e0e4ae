package profiles

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// ErrNotFound is returned by Update-style calls when no profile exists for the id.
var ErrNotFound = errors.New("profile not found")

// Repository is the profile store: one document per identity id.
// Get returns (nil, nil) when the profile is absent.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Set(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	SetRole(ctx context.Context, id string, role models.Role) (*models.Profile, error)
	AppendCourse(ctx context.Context, id string, course string) (*models.Profile, error)
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
	now func() time.Time
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col, now: func() time.Time { return time.Now().UTC() }}
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storeErr("profiles.Get", err)
	}
	return &p, nil
}

// Set writes the full record, replacing any existing document for the id.
func (r *MongoRepository) Set(ctx context.Context, p *models.Profile) error {
	if p.EnrolledCourses == nil {
		p.EnrolledCourses = []string{}
	}
	p.UpdatedAt = r.now()
	opts := options.Replace().SetUpsert(true)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.IdentityID}, p, opts); err != nil {
		return storeErr("profiles.Set", err)
	}
	return nil
}

// Update applies a $set of the non-nil fields only, leaving the rest of the record untouched.
func (r *MongoRepository) Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	set := updateDoc(u)
	set["updatedAt"] = r.now()
	return r.findAndModify(ctx, "profiles.Update", id, bson.M{"$set": set})
}

func (r *MongoRepository) SetRole(ctx context.Context, id string, role models.Role) (*models.Profile, error) {
	return r.findAndModify(ctx, "profiles.SetRole", id, bson.M{"$set": bson.M{"role": role, "updatedAt": r.now()}})
}

// AppendCourse adds course at the end of enrolledCourses unless already present.
func (r *MongoRepository) AppendCourse(ctx context.Context, id string, course string) (*models.Profile, error) {
	return r.findAndModify(ctx, "profiles.AppendCourse", id, bson.M{
		"$addToSet": bson.M{"enrolledCourses": course},
		"$set":      bson.M{"updatedAt": r.now()},
	})
}

func (r *MongoRepository) List(ctx context.Context) ([]*models.Profile, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "joinedAt", Value: 1}}))
	if err != nil {
		return nil, storeErr("profiles.List", err)
	}
	defer cur.Close(ctx)
	out := []*models.Profile{}
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, storeErr("profiles.List", err)
		}
		out = append(out, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, storeErr("profiles.List", err)
	}
	return out, nil
}

func (r *MongoRepository) findAndModify(ctx context.Context, op, id string, update bson.M) (*models.Profile, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Profile
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, storeErr(op, err)
	}
	return &updated, nil
}

func updateDoc(u models.ProfileUpdate) bson.M {
	set := bson.M{}
	put := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	put("firstName", u.FirstName)
	put("lastName", u.LastName)
	put("email", u.Email)
	put("phone", u.Phone)
	put("country", u.Country)
	put("occupation", u.Occupation)
	put("avatarUrl", u.AvatarURL)
	return set
}

func storeErr(op string, err error) error {
	return apperr.Wrap(err, apperr.KindStoreUnavailable, op, "profile store unavailable")
}
