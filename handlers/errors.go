package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
)

// statusFor maps an error kind to the HTTP status the API answers with.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindEmailInUse:
		return http.StatusConflict
	case apperr.KindInvalidEmail, apperr.KindWeakPassword, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAccountNotFound, apperr.KindWrongPassword, apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindProfileMissing, apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindAvatarUpload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with {error, kind, fields} for err.
func writeError(c *gin.Context, err error) {
	status, body := errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(c *gin.Context, err error) (int, gin.H) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": apperr.Message(err), "kind": kind.String()}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["fields"] = fields
	}
	return status, body
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperr.KindValidation.String()})
}
