package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/response"
	"github.com/gravadigital/campus-awards-api/internal/services"
)

// AdminHandler serves results, dashboards and the voting switch.
type AdminHandler struct {
	voting     *vote.VotingService
	categories *services.CategoryService
	settings   *services.SettingsService
	stats      *services.StatsService
	log        *log.Logger
}

func NewAdminHandler(svc *services.Services) *AdminHandler {
	return &AdminHandler{
		voting:     svc.Voting,
		categories: svc.Categories,
		settings:   svc.Settings,
		stats:      svc.Stats,
		log:        logger.Handler("admin_handler"),
	}
}

type MessageRequest struct {
	Message string `json:"message"`
}

// GetAllResults handles GET /api/admin/results
func (h *AdminHandler) GetAllResults(c *gin.Context) {
	results, err := h.voting.GetAllResults(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to load results", err)
		return
	}
	response.OK(c, results)
}

// GetCategoryResults handles GET /api/admin/results/:categoryId
func (h *AdminHandler) GetCategoryResults(c *gin.Context) {
	id, ok := pathID(c, "categoryId")
	if !ok {
		return
	}
	results, err := h.voting.GetCategoryResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, "Failed to load category results", err)
		return
	}
	response.OK(c, results)
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.AdminStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to load stats", err)
		return
	}
	response.OK(c, stats)
}

// GetVotingStatistics handles GET /api/admin/stats/voting
func (h *AdminHandler) GetVotingStatistics(c *gin.Context) {
	stats, err := h.stats.VotingStatistics(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to load voting statistics", err)
		return
	}
	response.OK(c, stats)
}

// GetSetupStatus handles GET /api/admin/setup-status
func (h *AdminHandler) GetSetupStatus(c *gin.Context) {
	setups, err := h.categories.SetupStatus(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to load setup status", err)
		return
	}
	response.OK(c, setups)
}

// OpenVoting handles POST /api/admin/voting/open
func (h *AdminHandler) OpenVoting(c *gin.Context) {
	s, err := h.settings.Open(c.Request.Context())
	if err != nil {
		respondError(c, h.log, "Failed to open voting", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Voting opened", s)
}

// CloseVoting handles POST /api/admin/voting/close
func (h *AdminHandler) CloseVoting(c *gin.Context) {
	var req MessageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
			return
		}
	}
	s, err := h.settings.Close(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, h.log, "Failed to close voting", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Voting closed", s)
}

// SetAnnouncement handles PUT /api/admin/voting/announcement
func (h *AdminHandler) SetAnnouncement(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	s, err := h.settings.SetAnnouncement(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, h.log, "Failed to update announcement", err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Announcement updated", s)
}
