package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfemme/academy/backend/go-services/internal/courses"
	"github.com/techfemme/academy/backend/go-services/internal/guard"
	"github.com/techfemme/academy/backend/go-services/pkg/middleware"
)

// CourseLister lists the course catalogue.
type CourseLister interface {
	List(ctx context.Context) ([]*courses.Course, error)
}

type counters struct {
	Streak          int     `json:"streak"`
	TotalHours      float64 `json:"totalHours"`
	Certificates    int     `json:"certificates"`
	EnrolledCourses int     `json:"enrolledCourses"`
}

type DashboardHandler struct {
	courses CourseLister
}

func NewDashboardHandler(c CourseLister) *DashboardHandler {
	return &DashboardHandler{courses: c}
}

func (h *DashboardHandler) Register(rg *gin.RouterGroup, guardFor GuardFunc) {
	rg.GET("/dashboard", guardFor(guard.Route{Path: "/dashboard"}), h.Dashboard)
}

// Dashboard returns the caller's profile, their enrolled courses resolved against
// the catalogue where possible, the active catalogue and the engagement counters.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	state, ok := middleware.SessionStateFrom(c)
	if !ok || state.Profile == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": guard.ReasonProfileNotFound, "redirect": guard.HomePath})
		return
	}
	p := state.Profile

	catalogue, err := h.courses.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	byKey := make(map[string]*courses.Course, 2*len(catalogue))
	available := make([]*courses.Course, 0, len(catalogue))
	for _, course := range catalogue {
		byKey[course.ID] = course
		byKey[course.Title] = course
		if course.Status == courses.StatusActive {
			available = append(available, course)
		}
	}
	enrolled := make([]gin.H, 0, len(p.EnrolledCourses))
	for _, key := range p.EnrolledCourses {
		entry := gin.H{"id": key, "title": key}
		if course, ok := byKey[key]; ok {
			entry = gin.H{"id": course.ID, "title": course.Title, "completion": course.Completion, "status": course.Status}
		}
		enrolled = append(enrolled, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":   p,
		"enrolled":  enrolled,
		"available": available,
		"counters": counters{
			Streak:          p.Streak,
			TotalHours:      p.TotalHours,
			Certificates:    p.Certificates,
			EnrolledCourses: len(p.EnrolledCourses),
		},
	})
}
