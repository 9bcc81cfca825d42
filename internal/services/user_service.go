package services

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

// UserService keeps the profile of every user who signs in.
type UserService struct {
	users  *repository.UserRepository
	policy *participant.Policy
	log    *log.Logger
}

// NewUserService creates the service.
func NewUserService(users *repository.UserRepository, policy *participant.Policy) *UserService {
	return &UserService{users: users, policy: policy, log: logger.Service("user")}
}

// StartSession admits an identity from an allowed domain and records the sign in.
func (s *UserService) StartSession(ctx context.Context, id participant.Identity) (*participant.User, error) {
	if strings.TrimSpace(id.UserID) == "" || strings.TrimSpace(id.Email) == "" {
		return nil, participant.ErrMissingIdentity
	}
	if !s.policy.IsAllowedEmail(id.Email) {
		s.log.Warn("Sign in rejected", "email", id.Email)
		return nil, participant.ErrEmailNotAllowed
	}
	return s.users.Touch(ctx, id, s.policy.RoleFor(id.Email))
}

// Get returns the stored profile.
func (s *UserService) Get(ctx context.Context, userID string) (*participant.User, error) {
	return s.users.GetByID(ctx, userID)
}
