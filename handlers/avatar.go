package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/storage"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
)

// AvatarHandler serves stored avatars under the stable links saved on profiles.
type AvatarHandler struct {
	blobs storage.BlobStore
}

func NewAvatarHandler(blobs storage.BlobStore) *AvatarHandler {
	return &AvatarHandler{blobs: blobs}
}

// Register mounts the public avatar route. Image tags can't send a bearer token.
func (h *AvatarHandler) Register(r gin.IRoutes) {
	r.GET("/avatars/:id", h.Get)
}

func (h *AvatarHandler) Get(c *gin.Context) {
	obj, err := h.blobs.Download(c.Request.Context(), storage.AvatarKey(c.Param("id")))
	if errors.Is(err, storage.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "avatar not found"})
		return
	}
	if err != nil {
		logger.Errorf("avatar %s: %v", c.Param("id"), err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "avatar unavailable"})
		return
	}
	defer obj.Close()
	// links carry a version parameter, so a long cache lifetime is safe
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
