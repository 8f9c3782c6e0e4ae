package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/editor"
	"github.com/techfemme/academy/backend/go-services/internal/guard"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

// MaxAvatarBytes caps the avatar part of a profile update.
const MaxAvatarBytes = 5 << 20

// GuardFunc builds the guard middleware for a protected route.
type GuardFunc func(route guard.Route) gin.HandlerFunc

// ProfileSaver is the save step of the profile editor.
type ProfileSaver interface {
	Save(ctx context.Context, original *models.Profile, draft editor.Draft, avatar *editor.AvatarUpload) (*models.Profile, error)
}

type ProfileHandler struct {
	states middleware.StateSource
	editor ProfileSaver
	wait   time.Duration
}

// NewProfileHandler serves the signed-in identity's own profile. wait bounds how
// long GET /me waits for an in-flight resolution.
func NewProfileHandler(states middleware.StateSource, ed ProfileSaver, wait time.Duration) *ProfileHandler {
	return &ProfileHandler{states: states, editor: ed, wait: wait}
}

// Register expects rg to already run the auth middleware.
func (h *ProfileHandler) Register(rg *gin.RouterGroup, guardFor GuardFunc) {
	rg.GET("/me", h.Me)
	rg.PATCH("/me", guardFor(guard.Route{Path: "/me"}), h.Update)
}

// Me reports the session state of the caller, including loading and missing-profile states.
func (h *ProfileHandler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.wait)
	defer cancel()
	c.JSON(http.StatusOK, stateView(h.states.StateFor(ctx, *id)))
}

// Update saves the editable fields and an optional avatar. It accepts either a JSON
// body or a multipart form with a "profile" JSON part and an "avatar" file part.
// Fields missing from the JSON keep their stored values.
func (h *ProfileHandler) Update(c *gin.Context) {
	state, ok := middleware.SessionStateFrom(c)
	if !ok || state.Profile == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": guard.ReasonProfileNotFound, "redirect": guard.HomePath})
		return
	}
	original := state.Profile
	draft := editor.BeginEdit(original)

	var avatar *editor.AvatarUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if raw := c.PostForm("profile"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &draft); err != nil {
				badRequest(c, err)
				return
			}
		}
		fh, err := c.FormFile("avatar")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			badRequest(c, err)
			return
		default:
			if fh.Size > MaxAvatarBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar is too large"})
				return
			}
			f, err := fh.Open()
			if err != nil {
				badRequest(c, err)
				return
			}
			defer f.Close()
			avatar = &editor.AvatarUpload{Reader: f, Size: fh.Size, ContentType: fh.Header.Get("Content-Type")}
		}
	} else if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := h.editor.Save(c.Request.Context(), original, draft, avatar)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": saved})
}
