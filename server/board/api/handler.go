package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bragboard/server/board/domain"
	"bragboard/server/board/realtime"
	"bragboard/server/board/service"
	commonauth "bragboard/server/common/auth"
	commonlog "bragboard/server/common/log"
	"bragboard/server/common/middleware"
)

const defaultMaxUploadBytes = 10 << 20

type ReadinessCheck func(ctx context.Context) error

type Deps struct {
	Auth           *service.AuthService
	Users          *service.UserService
	Shoutouts      *service.ShoutoutService
	Notifications  *service.NotificationService
	Admin          *service.AdminService
	Tokens         *commonauth.Service
	Hub            *realtime.Hub
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *middleware.HTTPMetrics
	Gatherer       prometheus.Gatherer
	Ready          map[string]ReadinessCheck
	MaxUploadBytes int64
}

type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{deps: deps}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.deps.Metrics != nil {
		r.Use(h.deps.Metrics.Handler())
	}
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, NewHealthResponse("ok", nil)) })
	r.GET("/health/ready", h.ready)
	if h.deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.POST("/login", h.login)
	r.POST("/token", h.login)
	r.POST("/register", h.register)

	authed := r.Group("/")
	authed.Use(middleware.AuthRequired(h.deps.Tokens))
	if h.deps.Hub != nil {
		authed.GET("/ws/notifications", h.deps.Hub.ServeWS)
	}

	api := authed.Group("/")
	api.Use(middleware.Idempotency(h.deps.Idempotency, h.deps.IdempotencyTTL))
	{
		api.GET("/users/me", h.me)
		api.PUT("/users/me", h.updateMe)
		api.POST("/users/me/picture", h.uploadPicture)
		api.GET("/users", h.listUsers)
		api.GET("/users/departments", h.listDepartments)

		api.GET("/shoutouts", h.listShoutouts)
		api.POST("/shoutouts", h.createShoutout)
		api.GET("/shoutouts/:id", h.getShoutout)
		api.PUT("/shoutouts/:id", h.updateShoutout)
		api.DELETE("/shoutouts/:id", h.deleteShoutout)
		api.POST("/shoutouts/:id/react", h.react)
		api.POST("/shoutouts/:id/comments", h.addComment)
		api.DELETE("/shoutouts/:id/comments/:commentId", h.deleteComment)
		api.POST("/shoutouts/:id/report", h.report)

		api.GET("/notifications", h.listNotifications)
		api.GET("/notifications/unread-count", h.unreadCount)
		api.PUT("/notifications/read-all", h.markAllRead)
		api.PUT("/notifications/:id/read", h.markRead)

		api.GET("/leaderboard", h.leaderboard)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRoles(string(domain.UserRoleAdmin)))
	{
		admin.GET("/stats", h.adminStats)
		admin.GET("/users", h.adminUsers)
		admin.PATCH("/users/:id/role", h.adminChangeRole)
		admin.DELETE("/users/:id", h.adminDeleteUser)
		admin.GET("/settings", h.adminSettings)
		admin.PUT("/settings", h.adminPutSettings)
		admin.GET("/reports", h.adminReports)
		admin.PUT("/reports/:id/resolve", h.adminResolveReport)
		admin.DELETE("/shoutouts/:id", h.adminDeleteShoutout)
		admin.DELETE("/comments/:id", h.adminDeleteComment)
		admin.GET("/logs", h.adminLogs)
		admin.GET("/reports/export/:kind", h.adminExport)
	}
}

func (h *Handler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	for name, check := range h.deps.Ready {
		if err := check(ctx); err != nil {
			commonlog.Warnf("event=health action=ready status=failed dependency=%s error=%v", name, err)
			c.JSON(http.StatusServiceUnavailable, NewHealthResponse("unavailable", fmt.Errorf("%s: %w", name, err)))
			return
		}
	}
	c.JSON(http.StatusOK, NewHealthResponse("ready", nil))
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and answered with a generic message.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := ErrInternal
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, ErrInvalidCredentials
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, ErrNotFound
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, ErrForbidden
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	}
	if status == http.StatusInternalServerError {
		commonlog.Errorf("event=http action=%s path=%s status=failed error=%v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, NewErrorResponse(message))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, NewErrorResponse(message))
}

func actorFromContext(c *gin.Context) (int64, domain.UserRole, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(ErrUnauthorized))
		return 0, "", false
	}
	role, _ := middleware.RoleFromContext(c)
	return userID, domain.UserRole(role), true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, ErrInvalidID)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// readUpload returns the multipart file under field, or nil when absent.
func (h *Handler) readUpload(c *gin.Context, field string) (*service.MediaInput, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	if fh.Size > h.deps.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", service.ErrInvalidInput, h.deps.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.deps.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &service.MediaInput{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}
