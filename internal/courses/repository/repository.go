package repository

import (
	"context"
	"errors"

	"github.com/techfemme/academy/backend/go-services/internal/courses"
)

var (
	ErrNotFound = errors.New("course not found")
)

// Repository stores courses. List returns newest first.
type Repository interface {
	Create(ctx context.Context, c *courses.Course) (string, error)
	Get(ctx context.Context, id string) (*courses.Course, error)
	List(ctx context.Context) ([]*courses.Course, error)
	Delete(ctx context.Context, id string) error
}
