package repository

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/settings"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// SettingsRepository reads and writes the voting settings singleton.
type SettingsRepository struct {
	store document.Store
	log   *log.Logger
}

// NewSettingsRepository creates a settings repository over store
func NewSettingsRepository(store document.Store) *SettingsRepository {
	return &SettingsRepository{
		store: store,
		log:   logger.Repository("settings"),
	}
}

// Get returns the current settings, persisting the closed defaults when the
// document does not exist yet.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.VotingSettings, error) {
	snap, err := r.store.Get(ctx, settings.Ref())
	if err != nil {
		r.log.Error("Failed to read voting settings", "error", err)
		return nil, fmt.Errorf("failed to read voting settings: %w", err)
	}
	if snap.Exists() {
		return decodeSettings(snap)
	}

	var current *settings.VotingSettings
	err = r.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		snap, err := tx.Get(settings.Ref())
		if err != nil {
			return err
		}
		if snap.Exists() {
			current, err = decodeSettings(snap)
			return err
		}

		current = settings.Default()
		return tx.Set(settings.Ref(), document.Fields{
			"isOpen":              current.IsOpen,
			"openedAt":            nil,
			"closedAt":            nil,
			"closedMessage":       current.ClosedMessage,
			"announcementMessage": current.AnnouncementMessage,
			"createdAt":           document.ServerTimestamp,
			"updatedAt":           document.ServerTimestamp,
		})
	})
	if err != nil {
		r.log.Error("Failed to initialize voting settings", "error", err)
		return nil, fmt.Errorf("failed to initialize voting settings: %w", err)
	}

	r.log.Info("Voting settings initialized with defaults")
	return current, nil
}

// Open marks voting as open.
func (r *SettingsRepository) Open(ctx context.Context) error {
	return r.merge(ctx, document.Fields{
		"isOpen":   true,
		"openedAt": document.ServerTimestamp,
	})
}

// Close marks voting as closed with the message shown to voters.
func (r *SettingsRepository) Close(ctx context.Context, message string) error {
	return r.merge(ctx, document.Fields{
		"isOpen":        false,
		"closedAt":      document.ServerTimestamp,
		"closedMessage": message,
	})
}

// SetAnnouncement replaces the announcement banner.
func (r *SettingsRepository) SetAnnouncement(ctx context.Context, message string) error {
	return r.merge(ctx, document.Fields{"announcementMessage": message})
}

// merge updates the settings document, creating it from the defaults first
// when needed.
func (r *SettingsRepository) merge(ctx context.Context, updates document.Fields) error {
	updates["updatedAt"] = document.ServerTimestamp

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		snap, err := tx.Get(settings.Ref())
		if err != nil {
			return err
		}
		if snap.Exists() {
			return tx.Update(settings.Ref(), updates)
		}

		d := settings.Default()
		fields := document.Fields{
			"isOpen":              d.IsOpen,
			"openedAt":            nil,
			"closedAt":            nil,
			"closedMessage":       d.ClosedMessage,
			"announcementMessage": d.AnnouncementMessage,
			"createdAt":           document.ServerTimestamp,
		}
		for k, v := range updates {
			fields[k] = v
		}
		return tx.Set(settings.Ref(), fields)
	})
	if err != nil {
		r.log.Error("Failed to update voting settings", "error", err)
		return fmt.Errorf("failed to update voting settings: %w", err)
	}

	r.log.Info("Voting settings updated", "fields", len(updates))
	return nil
}

func decodeSettings(snap *document.Snapshot) (*settings.VotingSettings, error) {
	s := settings.Default()
	if err := snap.DataTo(s); err != nil {
		return nil, err
	}
	return s, nil
}
