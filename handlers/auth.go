package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/accounts"
	"github.com/techfemme/academy/backend/go-services/internal/credentials"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

// AccountFlows is the sign-up, sign-in and sign-out surface of accounts.Service.
type AccountFlows interface {
	SignUp(ctx context.Context, form accounts.SignUpForm) (*accounts.Result, error)
	SignIn(ctx context.Context, email, password string) (*accounts.Result, error)
	SignOut(ctx context.Context, identity models.Identity, refresh, access string) error
}

// Refresher swaps a refresh token for a new session.
type Refresher interface {
	Refresh(ctx context.Context, refresh string) (*credentials.Session, error)
}

// SignInRequest is the credential form for POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type sessionResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	Identity     models.Identity `json:"identity"`
	State        *stateResponse  `json:"state,omitempty"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	accounts  AccountFlows
	refresher Refresher
}

func NewAuthHandler(a AccountFlows, r Refresher) *AuthHandler {
	return &AuthHandler{accounts: a, refresher: r}
}

// Register routes under /auth. Sign-out needs a bearer token, so it takes the
// auth middleware.
func (h *AuthHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/signup", h.SignUp)
	a.POST("/signin", h.SignIn)
	a.POST("/refresh", h.Refresh)
	a.POST("/signout", auth, h.SignOut)
}

// SignUp creates the account and the profile and returns the signed-in session.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var form accounts.SignUpForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.accounts.SignUp(c.Request.Context(), form)
	if err != nil && res != nil {
		// signed in without a profile; the client still gets its tokens
		logger.Warnf("sign-up for %s incomplete: %v", res.Session.Identity.ID, err)
		status, body := errorBody(c, err)
		body["session"] = newSessionResponse(res)
		c.AbortWithStatusJSON(status, body)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(res))
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(res))
}

// Refresh accepts a refresh token and returns a rotated session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.refresher.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		Identity:     sess.Identity,
	})
}

// SignOut deletes the refresh session (when given) and revokes the bearer token.
func (h *AuthHandler) SignOut(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// the body is optional
	_ = c.ShouldBindJSON(&req)

	if err := h.accounts.SignOut(c.Request.Context(), *id, req.RefreshToken, middleware.AccessTokenFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func newSessionResponse(res *accounts.Result) sessionResponse {
	st := stateView(res.State)
	return sessionResponse{
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		ExpiresAt:    res.Session.ExpiresAt,
		Identity:     res.Session.Identity,
		State:        &st,
	}
}
