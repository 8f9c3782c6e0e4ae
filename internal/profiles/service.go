package profiles

import (
	"context"
	"errors"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// Service encapsulates profile business logic beyond the plain store calls
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Get returns the profile for id, or an apperr.KindNotFound error when absent.
func (s *Service) Get(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "profiles.Get", "profile not found")
	}
	return p, nil
}

// List returns every profile. Only admins may list.
func (s *Service) List(ctx context.Context, actor *models.Profile) ([]*models.Profile, error) {
	if err := requireAdmin(actor, "profiles.List"); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// SetRole changes the role of id. It is the only path that writes Role.
func (s *Service) SetRole(ctx context.Context, actor *models.Profile, id string, role models.Role) (*models.Profile, error) {
	const op = "profiles.SetRole"
	if err := requireAdmin(actor, op); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.FieldErr(apperr.KindValidation, op, "role", "role must be student or admin")
	}
	p, err := s.repo.SetRole(ctx, id, role)
	return p, notFound(err, op)
}

// Enroll appends course to the enrolled list of id, ignoring duplicates.
func (s *Service) Enroll(ctx context.Context, actor *models.Profile, id string, course string) (*models.Profile, error) {
	const op = "profiles.Enroll"
	if err := requireAdmin(actor, op); err != nil {
		return nil, err
	}
	if course == "" {
		return nil, apperr.FieldErr(apperr.KindValidation, op, "courseId", "course is required")
	}
	p, err := s.repo.AppendCourse(ctx, id, course)
	return p, notFound(err, op)
}

func requireAdmin(actor *models.Profile, op string) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return apperr.New(apperr.KindForbidden, op, "admin role required")
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.Wrap(err, apperr.KindNotFound, op, "profile not found")
	}
	return err
}
