// Package credentials is the credential store: accounts, password checks, access and
// refresh tokens, and ordered session-change notifications.
package credentials

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/sessions"
	"github.com/techfemme/academy/backend/go-services/internal/tokens"
	"github.com/techfemme/academy/backend/go-services/internal/validation"
)

// MinPasswordLength matches the hosted identity platforms the academy replaced.
const MinPasswordLength = 6

var (
	ErrMissingAccounts = errors.New("credentials: account repository required")
	ErrMissingSessions = errors.New("credentials: session service required")
	ErrMissingTokens   = errors.New("credentials: token manager required")
)

// Listener receives session changes. identity is nil on sign-out; identityID always
// names the identity the event concerns.
type Listener func(ctx context.Context, identityID string, identity *models.Identity)

// Session is what a successful sign-in hands back to the caller.
type Session struct {
	Identity     models.Identity `json:"identity"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    time.Time       `json:"expiresAt"`
}

type Config struct {
	Accounts   Repository
	Sessions   *sessions.Service
	Tokens     *tokens.Manager
	RefreshTTL time.Duration
	Logger     *zap.Logger
}

type Store struct {
	accounts   Repository
	sessions   *sessions.Service
	tokens     *tokens.Manager
	refreshTTL time.Duration
	logger     *zap.Logger
	newID      func() string

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	// notifyMu serializes deliveries so listeners see events in occurrence order
	notifyMu sync.Mutex
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.Accounts == nil {
		return nil, ErrMissingAccounts
	}
	if cfg.Sessions == nil {
		return nil, ErrMissingSessions
	}
	if cfg.Tokens == nil {
		return nil, ErrMissingTokens
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.RefreshTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{
		accounts:   cfg.Accounts,
		sessions:   cfg.Sessions,
		tokens:     cfg.Tokens,
		refreshTTL: ttl,
		logger:     logger,
		newID:      uuid.NewString,
		listeners:  make(map[int]Listener),
	}, nil
}

// OnSessionChange registers fn and returns a function that removes it.
func (s *Store) OnSessionChange(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SignUp creates an account, signs it in and announces the identity.
func (s *Store) SignUp(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.Announce(ctx, sess.Identity)
	return sess, nil
}

// Register creates an account and opens its session without telling listeners.
// Callers that write data for the new identity announce it afterwards.
func (s *Store) Register(ctx context.Context, email, password string) (*Session, error) {
	const op = "credentials.SignUp"
	email = NormalizeEmail(email)
	if err := checkForm(op, email, password); err != nil {
		return nil, err
	}
	acct := &Account{ID: s.newID(), Email: email, CreatedAt: time.Now().UTC()}
	if err := acct.SetPassword(password); err != nil {
		return nil, apperr.Wrap(err, apperr.KindWeakPassword, op, "password could not be used")
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.FieldErr(apperr.KindEmailInUse, op, "email", "this email is already registered")
		}
		return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, op, "could not create account, please try again")
	}
	s.logger.Info("account created", zap.String("identity", acct.ID))
	return s.open(ctx, op, acct.Identity())
}

// SignIn checks the password for email and opens a session.
func (s *Store) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "credentials.SignIn"
	email = NormalizeEmail(email)
	if err := checkForm(op, email, password); err != nil {
		return nil, err
	}
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, op, "could not sign in, please try again")
	}
	if acct == nil {
		return nil, apperr.FieldErr(apperr.KindAccountNotFound, op, "email", "no account found for this email")
	}
	if err := acct.CheckPassword(password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, apperr.FieldErr(apperr.KindWrongPassword, op, "password", "incorrect password")
		}
		return nil, apperr.Wrap(err, apperr.KindUnknown, op, "could not verify password")
	}
	sess, err := s.open(ctx, op, acct.Identity())
	if err != nil {
		return nil, err
	}
	s.Announce(ctx, sess.Identity)
	return sess, nil
}

// Announce tells listeners that identity is signed in.
func (s *Store) Announce(ctx context.Context, identity models.Identity) {
	s.notify(ctx, identity.ID, &identity)
}

// Refresh swaps a refresh token for a new session without notifying listeners;
// the identity did not change.
func (s *Store) Refresh(ctx context.Context, refresh string) (*Session, error) {
	const op = "credentials.Refresh"
	next, sess, err := s.sessions.Rotate(ctx, refresh, s.refreshTTL)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, op, "could not refresh session")
	}
	if sess == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, op, "session expired, please sign in again")
	}
	id := models.Identity{ID: sess.Sub, Email: sess.Email}
	access, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnknown, op, "could not issue token")
	}
	return &Session{Identity: id, AccessToken: access, RefreshToken: next, ExpiresAt: exp}, nil
}

// Restore validates a stored access token and announces the identity as signed in.
// It is the cold-start path of a client that kept its token.
func (s *Store) Restore(ctx context.Context, accessToken string) (*models.Identity, error) {
	const op = "credentials.Restore"
	id, err := s.tokens.Identity(accessToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnauthenticated, op, "session expired, please sign in again")
	}
	if revoked, err := sessions.IsAccessTokenBlacklisted(ctx, accessToken); err == nil && revoked {
		return nil, apperr.New(apperr.KindUnauthenticated, op, "session was signed out")
	}
	s.notify(ctx, id.ID, &id)
	return &id, nil
}

// SignOut ends the session: the refresh token is deleted, the access token is
// blacklisted for the rest of its lifetime, and listeners see a nil identity.
func (s *Store) SignOut(ctx context.Context, identity models.Identity, refresh, access string) error {
	const op = "credentials.SignOut"
	var firstErr error
	if refresh != "" {
		if err := s.sessions.DeleteRefresh(ctx, refresh); err != nil {
			s.logger.Warn("refresh session delete failed", zap.String("identity", identity.ID), zap.Error(err))
			firstErr = apperr.Wrap(err, apperr.KindStoreUnavailable, op, "could not end session")
		}
	}
	if access != "" {
		if claims, err := s.tokens.Validate(access); err == nil {
			if err := sessions.BlacklistAccessToken(ctx, access, s.tokens.Remaining(claims)); err != nil {
				s.logger.Warn("access token blacklist failed", zap.String("identity", identity.ID), zap.Error(err))
			}
		}
	}
	s.notify(ctx, identity.ID, nil)
	return firstErr
}

func (s *Store) open(ctx context.Context, op string, id models.Identity) (*Session, error) {
	access, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnknown, op, "could not issue token")
	}
	refresh, err := s.sessions.CreateSession(ctx, id, s.refreshTTL)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, op, "could not start session, please try again")
	}
	return &Session{Identity: id, AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// notify delivers an event to every listener, in registration order, on the caller's goroutine.
func (s *Store) notify(ctx context.Context, identityID string, identity *models.Identity) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		var arg *models.Identity
		if identity != nil {
			c := *identity
			arg = &c
		}
		fn(ctx, identityID, arg)
	}
}

func checkForm(op, email, password string) error {
	if !validation.IsEmail(email) {
		return apperr.FieldErr(apperr.KindInvalidEmail, op, "email", "please enter a valid email address")
	}
	if len(password) < MinPasswordLength {
		return apperr.FieldErr(apperr.KindWeakPassword, op, "password", "password too short")
	}
	return nil
}
