// Package editor turns an edited draft (and an optional new avatar) into a saved
// profile. The steps run strictly in order: validate, upload, merge, cache.
package editor

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/profiles"
	"github.com/techfemme/academy/backend/go-services/internal/storage"
	"github.com/techfemme/academy/backend/go-services/internal/validation"
	"github.com/techfemme/academy/backend/go-services/pkg/metrics"
)

const (
	MsgAvatarUpload = "avatar upload failed, nothing was saved"
	MsgPartialSave  = "avatar was updated but profile details were not saved"
	MsgStore        = "could not save your profile, please try again"
)

var (
	ErrMissingProfiles = errors.New("editor: profile writer required")
	ErrMissingBlobs    = errors.New("editor: blob store required")
	ErrMissingCache    = errors.New("editor: cache writer required")
)

// Draft holds the editable fields of a profile. Role and counters are never editable here.
type Draft struct {
	FirstName  string `json:"firstName" validate:"notblank"`
	LastName   string `json:"lastName" validate:"notblank"`
	Phone      string `json:"phone" validate:"notblank,phone"`
	Country    string `json:"country"`
	Occupation string `json:"occupation"`
	Email      string `json:"email"`
}

// AvatarUpload is a new avatar image to store alongside the draft.
type AvatarUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// ProfileWriter applies a partial update. It returns profiles.ErrNotFound when the record is gone.
type ProfileWriter interface {
	Update(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
}

// CacheWriter receives the merged record after a successful save.
type CacheWriter interface {
	Store(ctx context.Context, p *models.Profile) error
}

type Config struct {
	Profiles ProfileWriter
	Blobs    storage.BlobStore
	Cache    CacheWriter
	Logger   *zap.Logger
	// AvatarBaseURL prefixes stored avatar links; the avatar route serves them.
	// Defaults to "/avatars".
	AvatarBaseURL string
}

type Editor struct {
	profiles   ProfileWriter
	blobs      storage.BlobStore
	cache      CacheWriter
	logger     *zap.Logger
	avatarBase string
	now        func() time.Time
}

func New(cfg Config) (*Editor, error) {
	if cfg.Profiles == nil {
		return nil, ErrMissingProfiles
	}
	if cfg.Blobs == nil {
		return nil, ErrMissingBlobs
	}
	if cfg.Cache == nil {
		return nil, ErrMissingCache
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(cfg.AvatarBaseURL, "/")
	if base == "" {
		base = "/avatars"
	}
	return &Editor{
		profiles:   cfg.Profiles,
		blobs:      cfg.Blobs,
		cache:      cfg.Cache,
		logger:     logger,
		avatarBase: base,
		now:        time.Now,
	}, nil
}

// BeginEdit copies the editable fields of p into a draft.
func BeginEdit(p *models.Profile) Draft {
	if p == nil {
		return Draft{}
	}
	return Draft{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Phone:      p.Phone,
		Country:    p.Country,
		Occupation: p.Occupation,
		Email:      p.Email,
	}
}

// Validate checks draft against the original profile. The email is only checked
// when it differs from the stored one.
func Validate(original *models.Profile, draft Draft) error {
	const op = "editor.Validate"
	var fields []apperr.FieldError
	if err := validation.Struct(op, draft); err != nil {
		fields = append(fields, apperr.FieldsOf(err)...)
	}
	if original == nil || strings.TrimSpace(draft.Email) != original.Email {
		if !validation.IsEmail(strings.TrimSpace(draft.Email)) {
			fields = append(fields, apperr.FieldError{Field: "email", Message: "email must be a valid email address"})
		}
	}
	if len(fields) > 0 {
		return apperr.Validation(op, fields)
	}
	return nil
}

// Save persists draft for original.IdentityID and returns the merged profile.
// Nothing is written to the cache unless the merge succeeds.
func (e *Editor) Save(ctx context.Context, original *models.Profile, draft Draft, avatar *AvatarUpload) (*models.Profile, error) {
	const op = "editor.Save"
	if original == nil || original.IdentityID == "" {
		return nil, apperr.New(apperr.KindProfileMissing, op, "profile not found")
	}
	if err := Validate(original, draft); err != nil {
		metrics.ProfileSaves.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if avatar != nil && !strings.HasPrefix(avatar.ContentType, "image/") {
		metrics.ProfileSaves.WithLabelValues("invalid").Inc()
		return nil, apperr.FieldErr(apperr.KindValidation, op, "avatar", "avatar must be an image")
	}

	id := original.IdentityID
	update := draftUpdate(draft)

	if avatar != nil {
		url, err := e.uploadAvatar(ctx, id, avatar)
		if err != nil {
			e.logger.Warn("avatar upload failed", zap.String("identity", id), zap.Error(err))
			metrics.ProfileSaves.WithLabelValues("avatar_failed").Inc()
			return nil, apperr.Wrap(err, apperr.KindAvatarUpload, op, MsgAvatarUpload)
		}
		update.AvatarURL = &url
	}

	merged, err := e.profiles.Update(ctx, id, update)
	if err != nil {
		e.logger.Error("profile merge failed", zap.String("identity", id), zap.Bool("avatarCommitted", avatar != nil), zap.Error(err))
		switch {
		case avatar != nil:
			metrics.ProfileSaves.WithLabelValues("partial").Inc()
			return nil, apperr.Wrap(err, apperr.KindPartialSave, op, MsgPartialSave)
		case errors.Is(err, profiles.ErrNotFound):
			metrics.ProfileSaves.WithLabelValues("missing").Inc()
			return nil, apperr.Wrap(err, apperr.KindProfileMissing, op, "profile not found")
		default:
			metrics.ProfileSaves.WithLabelValues("store_failed").Inc()
			return nil, apperr.Wrap(err, apperr.KindStoreUnavailable, op, MsgStore)
		}
	}

	if err := e.cache.Store(ctx, merged); err != nil {
		e.logger.Warn("cache refresh after save failed", zap.String("identity", id), zap.Error(err))
	}
	metrics.ProfileSaves.WithLabelValues("saved").Inc()
	return merged, nil
}

func (e *Editor) uploadAvatar(ctx context.Context, id string, avatar *AvatarUpload) (string, error) {
	if err := e.blobs.Upload(ctx, storage.AvatarKey(id), avatar.Reader, avatar.Size, avatar.ContentType); err != nil {
		return "", err
	}
	return e.AvatarURL(id), nil
}

// AvatarURL is the stable link stored for id's avatar. The version parameter
// changes with every upload so clients drop cached images.
func (e *Editor) AvatarURL(id string) string {
	return e.avatarBase + "/" + id + "?v=" + strconv.FormatInt(e.now().Unix(), 10)
}

func draftUpdate(d Draft) models.ProfileUpdate {
	s := func(v string) *string {
		v = strings.TrimSpace(v)
		return &v
	}
	return models.ProfileUpdate{
		FirstName:  s(d.FirstName),
		LastName:   s(d.LastName),
		Phone:      s(d.Phone),
		Country:    s(d.Country),
		Occupation: s(d.Occupation),
		Email:      s(d.Email),
	}
}
