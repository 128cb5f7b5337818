// Package handler maps the HTTP API onto the domain services.
package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/event"
	"rollcall/internal/model"
	"rollcall/internal/roster"
)

// MsgInvalidEventID is returned when a path id is not a positive integer.
const MsgInvalidEventID = "Invalid Event ID"

// Checker reports whether a dependency is reachable.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Options tunes transport details.
type Options struct {
	// SecureCookies marks the token cookie Secure and SameSite=None.
	SecureCookies  bool
	CookieMaxAge   time.Duration
	MaxUploadBytes int64
	// Checks are reported by /healthz under their names.
	Checks map[string]Checker
}

// Handler serves the rollcall API.
type Handler struct {
	auth       *auth.Service
	events     *event.Service
	roster     *roster.Service
	attendance *attendance.Service
	opts       Options
}

// New creates a handler.
func New(a *auth.Service, e *event.Service, r *roster.Service, att *attendance.Service, opts Options) *Handler {
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = 7 * 24 * time.Hour
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{auth: a, events: e, roster: r, attendance: att, opts: opts}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.healthz)

	api := r.Group("/api")
	guard := auth.Guard(h.auth)

	authAPI := api.Group("/auth")
	authAPI.POST("/register", h.register)
	authAPI.POST("/login", h.login)
	authAPI.POST("/logout", h.logout)
	authAPI.GET("/governor", guard, h.getGovernor)

	events := api.Group("/events", guard)
	events.GET("/get", h.listEvents)
	events.POST("/create", h.createEvent)
	events.PUT("/update/:id", h.updateEvent)
	events.DELETE("/delete/:id", h.deleteEvent)

	students := api.Group("/students")
	students.GET("/get/:event_id/students", guard, h.listStudents)
	students.POST("/upload/:event_id", guard, h.uploadStudents)
	students.PUT("/assign", guard, h.assignStudent)
	students.GET("/logs/:event_id", guard, h.listLogs)
	students.POST("/authorize", h.authorizeStudent)
	students.POST("/scan", h.scanStudent)
}

func (h *Handler) healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, chk := range h.opts.Checks {
		ok := chk.Healthy(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// fail writes err as {message}. Unclassified causes are logged, never sent.
func fail(c *gin.Context, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindInternal {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), e.Cause)
	}
	c.JSON(e.Kind.Status(), gin.H{"message": e.Message})
}

func actor(c *gin.Context) model.GovernorView {
	g, _ := auth.GovernorFrom(c.Request.Context())
	return g
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": MsgInvalidEventID})
		return 0, false
	}
	return id, true
}
