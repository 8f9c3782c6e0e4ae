// Package accounts runs the sign-up, sign-in and sign-out flows on top of the
// credential store, the profile store and the session controllers.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/credentials"
	"github.com/techfemme/academy/backend/go-services/internal/mail"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
	"github.com/techfemme/academy/backend/go-services/internal/validation"
)

const MsgSignUpIncomplete = "your account was created but your profile could not be saved, please contact support"

var (
	ErrMissingCredentials = errors.New("accounts: credential store required")
	ErrMissingProfiles    = errors.New("accounts: profile store required")
	ErrMissingSessions    = errors.New("accounts: session source required")
)

// Credentials is the part of the credential store the flows use.
type Credentials interface {
	Register(ctx context.Context, email, password string) (*credentials.Session, error)
	Announce(ctx context.Context, identity models.Identity)
	SignIn(ctx context.Context, email, password string) (*credentials.Session, error)
	SignOut(ctx context.Context, identity models.Identity, refresh, access string) error
}

// ProfileSetter writes a full profile record.
type ProfileSetter interface {
	Set(ctx context.Context, p *models.Profile) error
}

// Sessions gives access to the session state of an identity. Both *session.Registry
// and *session.Controller satisfy it.
type Sessions interface {
	StateFor(ctx context.Context, identity models.Identity) session.State
	Commit(ctx context.Context, identity models.Identity, p *models.Profile) error
}

// SignUpForm is the registration form.
type SignUpForm struct {
	FirstName  string `json:"firstName" validate:"notblank"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	Country    string `json:"country"`
	Occupation string `json:"occupation"`
	Course     string `json:"course"`
}

// Result is a signed-in session together with its resolved state.
type Result struct {
	Session credentials.Session
	State   session.State
}

type Config struct {
	Credentials Credentials
	Profiles    ProfileSetter
	Sessions    Sessions
	Mailer      mail.Sender
	Logger      *zap.Logger
	// WaitTimeout bounds how long sign-in waits for the profile to resolve.
	WaitTimeout time.Duration
}

type Service struct {
	creds    Credentials
	profiles ProfileSetter
	sessions Sessions
	mailer   mail.Sender
	logger   *zap.Logger
	wait     time.Duration
	now      func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Credentials == nil {
		return nil, ErrMissingCredentials
	}
	if cfg.Profiles == nil {
		return nil, ErrMissingProfiles
	}
	if cfg.Sessions == nil {
		return nil, ErrMissingSessions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = mail.NewLogSender(logger)
	}
	wait := cfg.WaitTimeout
	if wait <= 0 {
		wait = session.DefaultResolveTimeout
	}
	return &Service{
		creds:    cfg.Credentials,
		profiles: cfg.Profiles,
		sessions: cfg.Sessions,
		mailer:   mailer,
		logger:   logger,
		wait:     wait,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SignUp validates the form locally, creates the identity, writes the full profile
// and only then announces the identity and publishes the profile. The welcome email is best effort. When the profile write fails
// the identity stays signed in: the Result is returned with a ProfileMissing error.
func (s *Service) SignUp(ctx context.Context, form SignUpForm) (*Result, error) {
	const op = "accounts.SignUp"
	form.Email = strings.TrimSpace(form.Email)
	if err := checkCredentials(op, form.Email, form.Password); err != nil {
		return nil, err
	}
	if err := validation.Struct(op, form); err != nil {
		return nil, err
	}

	sess, err := s.creds.Register(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}

	p := newProfile(sess.Identity, form, s.now())
	if err := s.profiles.Set(ctx, p); err != nil {
		s.logger.Error("profile write after sign-up failed", zap.String("identity", sess.Identity.ID), zap.Error(err))
		s.creds.Announce(ctx, sess.Identity)
		return &Result{Session: *sess, State: s.state(ctx, sess.Identity)}, apperr.Wrap(err, apperr.KindProfileMissing, op, MsgSignUpIncomplete)
	}
	s.creds.Announce(ctx, sess.Identity)
	if err := s.sessions.Commit(ctx, sess.Identity, p); err != nil {
		s.logger.Warn("snapshot write after sign-up failed", zap.String("identity", sess.Identity.ID), zap.Error(err))
	}

	if err := s.mailer.SendWelcome(ctx, sess.Identity.Email, p.FirstName); err != nil {
		s.logger.Warn("welcome email failed", zap.String("identity", sess.Identity.ID), zap.Error(err))
	}

	return &Result{Session: *sess, State: s.state(ctx, sess.Identity)}, nil
}

// SignIn validates locally, signs in and waits for the session to resolve.
// A missing profile is reported in Result.State, not as an error.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Result, error) {
	const op = "accounts.SignIn"
	email = strings.TrimSpace(email)
	if err := checkCredentials(op, email, password); err != nil {
		return nil, err
	}
	sess, err := s.creds.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &Result{Session: *sess, State: s.state(ctx, sess.Identity)}, nil
}

// SignOut ends the session and clears the identity's cached profile.
func (s *Service) SignOut(ctx context.Context, identity models.Identity, refresh, access string) error {
	return s.creds.SignOut(ctx, identity, refresh, access)
}

func (s *Service) state(ctx context.Context, identity models.Identity) session.State {
	ctx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()
	return s.sessions.StateFor(ctx, identity)
}

func newProfile(id models.Identity, form SignUpForm, now time.Time) *models.Profile {
	courses := []string{}
	if c := strings.TrimSpace(form.Course); c != "" {
		courses = append(courses, c)
	}
	return &models.Profile{
		IdentityID:      id.ID,
		FirstName:       strings.TrimSpace(form.FirstName),
		LastName:        strings.TrimSpace(form.LastName),
		Email:           id.Email,
		Phone:           strings.TrimSpace(form.Phone),
		Country:         strings.TrimSpace(form.Country),
		Occupation:      strings.TrimSpace(form.Occupation),
		Role:            models.RoleStudent,
		JoinedAt:        now,
		EnrolledCourses: courses,
	}
}

// checkCredentials rejects obviously bad input before the credential store is called.
func checkCredentials(op, email, password string) error {
	if !strings.Contains(email, "@") || !validation.IsEmail(email) {
		return apperr.FieldErr(apperr.KindInvalidEmail, op, "email", "please enter a valid email address")
	}
	if len(password) < credentials.MinPasswordLength {
		return apperr.FieldErr(apperr.KindWeakPassword, op, "password", "password too short")
	}
	return nil
}
