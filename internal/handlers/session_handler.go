package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/middleware/auth"
	"github.com/gravadigital/campus-awards-api/internal/response"
	"github.com/gravadigital/campus-awards-api/internal/services"
)

// SessionHandler covers the signed in user, the public settings and health.
type SessionHandler struct {
	users    *services.UserService
	settings *services.SettingsService
	health   func(ctx context.Context) error
	log      *log.Logger
}

func NewSessionHandler(svc *services.Services, health func(ctx context.Context) error) *SessionHandler {
	return &SessionHandler{
		users:    svc.Users,
		settings: svc.Settings,
		health:   health,
		log:      logger.Handler("session_handler"),
	}
}

// StartSession handles POST /api/session
func (h *SessionHandler) StartSession(c *gin.Context) {
	id, _ := auth.Identity(c)
	user, err := h.users.StartSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, "Failed to start session", err)
		return
	}
	response.OK(c, user)
}

// Me handles GET /api/me
func (h *SessionHandler) Me(c *gin.Context) {
	id, _ := auth.Identity(c)
	user, err := h.users.Get(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.log, "Failed to load profile", err)
		return
	}
	response.OK(c, user)
}

// GetSettings handles GET /api/settings
func (h *SessionHandler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to load settings", err)
		return
	}
	response.OK(c, s)
}

// Ping handles GET /ping
func (h *SessionHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Campus Awards API is running",
		"status":  "healthy",
	})
}

// Health handles GET /health
func (h *SessionHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.health(ctx); err != nil {
		h.log.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "storage": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "storage": "ok"})
}
