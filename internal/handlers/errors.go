package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/domain/settings"
	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/response"
	"github.com/gravadigital/campus-awards-api/internal/storage/photos"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

const alreadyVotedMessage = "You have already voted in this category"

// statusFor maps a domain error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, vote.ErrAlreadyVoted):
		return http.StatusConflict, alreadyVotedMessage
	case vote.IsTransient(err):
		return http.StatusServiceUnavailable, vote.ErrTransient.Error()
	case errors.Is(err, category.ErrOrderTaken),
		errors.Is(err, category.ErrCategoryHasCandidates),
		errors.Is(err, category.ErrCategoryFull):
		return http.StatusConflict, err.Error()
	case errors.Is(err, category.ErrNotFound),
		errors.Is(err, category.ErrCandidateNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, vote.ErrInvalidVote),
		errors.Is(err, category.ErrInvalid),
		errors.Is(err, category.ErrCandidateMismatch),
		errors.Is(err, settings.ErrInvalidMessage),
		errors.Is(err, participant.ErrMissingIdentity),
		errors.Is(err, photos.ErrUnsupportedType),
		errors.Is(err, photos.ErrTooLarge):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, vote.ErrVotingClosed):
		return http.StatusLocked, settings.DefaultClosedMessage
	case errors.Is(err, participant.ErrEmailNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, photos.ErrDisabled):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes the mapped error. Server side failures are logged with
// the cause; the client only sees the generic message.
func respondError(c *gin.Context, l *log.Logger, msg string, err error) {
	status, clientMsg := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(msg, "error", err, "path", c.FullPath())
	} else {
		l.Warn(msg, "error", err, "status", status)
	}
	response.ErrorResponseWithMessage(c, status, clientMsg)
}
