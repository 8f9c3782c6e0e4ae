package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHealthAndReady(t *testing.T) {
	g := gin.New()
	healthy := true
	RegisterHealth(g, map[string]Check{
		"profiles": func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("down")
		},
	})

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ready"`)

	healthy = false
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"redis":false`)
}

func TestStatusForKinds(t *testing.T) {
	g := gin.New()
	g.GET("/x", func(c *gin.Context) {
		writeError(c, errors.New("plain"))
	})
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), `"kind":"unknown"`)
}
