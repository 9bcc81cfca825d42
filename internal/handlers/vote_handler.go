package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/middleware/auth"
	"github.com/gravadigital/campus-awards-api/internal/response"
	"github.com/gravadigital/campus-awards-api/internal/services"
	"github.com/gravadigital/campus-awards-api/internal/validation"
)

type VoteHandler struct {
	voting     *vote.VotingService
	candidates *services.CandidateService
	settings   *services.SettingsService
	log        *log.Logger
}

func NewVoteHandler(svc *services.Services) *VoteHandler {
	return &VoteHandler{
		voting:     svc.Voting,
		candidates: svc.Candidates,
		settings:   svc.Settings,
		log:        logger.Handler("vote_handler"),
	}
}

type SubmitVoteRequest struct {
	CategoryID  string `json:"categoryId" binding:"required"`
	CandidateID string `json:"candidateId" binding:"required"`
}

type VoteResponse struct {
	CategoryID    string               `json:"categoryId"`
	CandidateID   string               `json:"candidateId"`
	CandidateName string               `json:"candidateName"`
	Progress      *vote.VotingProgress `json:"progress,omitempty"`
}

// SubmitVote handles POST /api/votes
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	id, ok := auth.Identity(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	if err := validation.ValidateDocumentID(req.CategoryID, "categoryId"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if err := validation.ValidateDocumentID(req.CandidateID, "candidateId"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	current, err := h.settings.EnsureOpen(c.Request.Context())
	if err != nil {
		if errors.Is(err, vote.ErrVotingClosed) {
			h.log.Debug("Vote refused while voting is closed", "user_id", id.UserID)
			response.LockedError(c, current.Message())
			return
		}
		respondError(c, h.log, "Failed to read voting settings", err)
		return
	}

	candidate, err := h.candidates.ResolveForVote(c.Request.Context(), req.CategoryID, req.CandidateID)
	if err != nil {
		respondError(c, h.log, "Vote references an unknown candidate", err)
		return
	}

	if err := h.voting.SubmitVote(c.Request.Context(), id.UserID, req.CategoryID, candidate.ID, candidate.Name); err != nil {
		respondError(c, h.log, "Vote rejected", err)
		return
	}

	progress, err := h.voting.GetUserVotingProgress(c.Request.Context(), id.UserID)
	if err != nil {
		h.log.Warn("Vote recorded but progress could not be read", "user_id", id.UserID, "error", err)
	}

	response.Created(c, "Vote submitted successfully", VoteResponse{
		CategoryID:    req.CategoryID,
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		Progress:      progress,
	})
}

// GetProgress handles GET /api/me/progress
func (h *VoteHandler) GetProgress(c *gin.Context) {
	id, _ := auth.Identity(c)
	progress, err := h.voting.GetUserVotingProgress(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.log, "Failed to load progress", err)
		return
	}
	response.OK(c, progress)
}

// GetMyVotes handles GET /api/me/votes
func (h *VoteHandler) GetMyVotes(c *gin.Context) {
	id, _ := auth.Identity(c)
	votes, err := h.voting.GetAllUserVotes(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, h.log, "Failed to load votes", err)
		return
	}
	response.OK(c, votes)
}

// GetMyVote handles GET /api/me/votes/:categoryId
func (h *VoteHandler) GetMyVote(c *gin.Context) {
	id, _ := auth.Identity(c)
	categoryID := c.Param("categoryId")
	if err := validation.ValidateDocumentID(categoryID, "categoryId"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	v, err := h.voting.GetUserVoteForCategory(c.Request.Context(), id.UserID, categoryID)
	if err != nil {
		respondError(c, h.log, "Failed to load vote", err)
		return
	}
	response.OK(c, gin.H{"hasVoted": v != nil, "vote": v})
}
