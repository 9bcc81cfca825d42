package services

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/settings"
	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

// SettingsService toggles voting and publishes the voter facing messages.
type SettingsService struct {
	repo *repository.SettingsRepository
	log  *log.Logger
}

// NewSettingsService creates the service.
func NewSettingsService(repo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo, log: logger.Service("settings")}
}

// Get returns the current settings, persisting the defaults when absent.
func (s *SettingsService) Get(ctx context.Context) (*settings.VotingSettings, error) {
	return s.repo.Get(ctx)
}

// Open allows vote submission.
func (s *SettingsService) Open(ctx context.Context) (*settings.VotingSettings, error) {
	if err := s.repo.Open(ctx); err != nil {
		return nil, err
	}
	s.log.Info("Voting opened")
	return s.repo.Get(ctx)
}

// Close stops vote submission and shows message to voters.
func (s *SettingsService) Close(ctx context.Context, message string) (*settings.VotingSettings, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = settings.DefaultClosedMessage
	}
	if err := settings.ValidateClosedMessage(message); err != nil {
		return nil, err
	}
	if err := s.repo.Close(ctx, message); err != nil {
		return nil, err
	}
	s.log.Info("Voting closed")
	return s.repo.Get(ctx)
}

// SetAnnouncement replaces the announcement; an empty message clears it.
func (s *SettingsService) SetAnnouncement(ctx context.Context, message string) (*settings.VotingSettings, error) {
	message = strings.TrimSpace(message)
	if err := settings.ValidateAnnouncement(message); err != nil {
		return nil, err
	}
	if err := s.repo.SetAnnouncement(ctx, message); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx)
}

// EnsureOpen returns vote.ErrVotingClosed with the closed message while
// voting is closed. Settings are read on every call.
func (s *SettingsService) EnsureOpen(ctx context.Context) (*settings.VotingSettings, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen {
		return current, vote.ErrVotingClosed
	}
	return current, nil
}
