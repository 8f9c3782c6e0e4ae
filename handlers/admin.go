package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/courses"
	coursesvc "github.com/techfemme/academy/backend/go-services/internal/courses/service"
	"github.com/techfemme/academy/backend/go-services/internal/editor"
	"github.com/techfemme/academy/backend/go-services/internal/guard"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/pkg/logger"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

// CourseAdmin is the course management surface.
type CourseAdmin interface {
	List(ctx context.Context) ([]*courses.Course, error)
	Create(ctx context.Context, in coursesvc.NewCourse) (*courses.Course, error)
	Delete(ctx context.Context, id string) error
}

// ProfileAdmin is the admin-only part of profiles.Service.
type ProfileAdmin interface {
	List(ctx context.Context, actor *models.Profile) ([]*models.Profile, error)
	SetRole(ctx context.Context, actor *models.Profile, id string, role models.Role) (*models.Profile, error)
	Enroll(ctx context.Context, actor *models.Profile, id string, course string) (*models.Profile, error)
}

type AdminHandler struct {
	courses  CourseAdmin
	profiles ProfileAdmin
	// live receives changed profiles so signed-in users see them without a reload
	live editor.CacheWriter
}

func NewAdminHandler(c CourseAdmin, p ProfileAdmin, live editor.CacheWriter) *AdminHandler {
	return &AdminHandler{courses: c, profiles: p, live: live}
}

// Register mounts the admin routes behind an admin-role guard.
func (h *AdminHandler) Register(rg *gin.RouterGroup, guardFor GuardFunc) {
	a := rg.Group("/admin", guardFor(guard.Route{Path: "/admin", Role: models.RoleAdmin}))
	a.GET("/courses", h.ListCourses)
	a.POST("/courses", h.CreateCourse)
	a.DELETE("/courses/:id", h.DeleteCourse)
	a.GET("/users", h.ListUsers)
	a.PUT("/users/:id/role", h.SetRole)
	a.POST("/users/:id/courses", h.Enroll)
}

func (h *AdminHandler) ListCourses(c *gin.Context) {
	list, err := h.courses.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req coursesvc.NewCourse
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *AdminHandler) DeleteCourse(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	list, err := h.profiles.List(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) SetRole(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.profiles.SetRole(c.Request.Context(), actor(c), c.Param("id"), req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), p)
	c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) Enroll(c *gin.Context) {
	var req struct {
		CourseID string `json:"courseId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.profiles.Enroll(c.Request.Context(), actor(c), c.Param("id"), req.CourseID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), p)
	c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) publish(ctx context.Context, p *models.Profile) {
	if h.live == nil || p == nil {
		return
	}
	if err := h.live.Store(ctx, p); err != nil {
		logger.Warnf("live profile refresh for %s failed: %v", p.IdentityID, err)
	}
}

func actor(c *gin.Context) *models.Profile {
	s, ok := middleware.SessionStateFrom(c)
	if !ok {
		return nil
	}
	return s.Profile
}
