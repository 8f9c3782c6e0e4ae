package service

import (
	"context"
	"errors"
	"strings"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/courses"
	"github.com/techfemme/academy/backend/go-services/internal/courses/repository"
)

// NewCourse is the admin form for creating a course.
type NewCourse struct {
	Title      string         `json:"title"`
	Completion int            `json:"completion"`
	Students   int            `json:"students"`
	Status     courses.Status `json:"status"`
}

// Service defines the course operations used by the handler layer.
type Service struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() *Service {
	return New(repository.NewMemoryRepo())
}

func (s *Service) List(ctx context.Context) ([]*courses.Course, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, "courses.List", "could not load courses")
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*courses.Course, error) {
	c, err := s.repo.Get(ctx, id)
	return c, storeErr("courses.Get", err)
}

// Create validates the form and stores a new course. Status defaults to Active.
func (s *Service) Create(ctx context.Context, in NewCourse) (*courses.Course, error) {
	const op = "courses.Create"
	in.Title = strings.TrimSpace(in.Title)
	var fields []apperr.FieldError
	if in.Title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "title is required"})
	}
	if in.Completion < 0 || in.Completion > 100 {
		fields = append(fields, apperr.FieldError{Field: "completion", Message: "completion must be between 0 and 100"})
	}
	if in.Students < 0 {
		fields = append(fields, apperr.FieldError{Field: "students", Message: "students cannot be negative"})
	}
	if in.Status == "" {
		in.Status = courses.StatusActive
	}
	if !in.Status.Valid() {
		fields = append(fields, apperr.FieldError{Field: "status", Message: "status must be Active or Inactive"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(op, fields)
	}

	c := &courses.Course{Title: in.Title, Completion: in.Completion, Students: in.Students, Status: in.Status}
	if _, err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, op, "could not save course")
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return storeErr("courses.Delete", s.repo.Delete(ctx, id))
}

func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, op, "course not found")
	default:
		return apperr.Wrap(err, apperr.KindStoreUnavailable, op, "course store unavailable")
	}
}
