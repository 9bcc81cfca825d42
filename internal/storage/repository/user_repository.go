package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// ErrUserNotFound is returned when no profile exists for a user id.
var ErrUserNotFound = errors.New("user not found")

// UserRepository stores user profiles under the users collection.
type UserRepository struct {
	store document.Store
	log   *log.Logger
}

// NewUserRepository creates a user repository over store
func NewUserRepository(store document.Store) *UserRepository {
	return &UserRepository{
		store: store,
		log:   logger.Repository("user"),
	}
}

// Touch creates the profile on first sign in and refreshes the login time
// and the provider supplied fields afterwards.
func (r *UserRepository) Touch(ctx context.Context, id participant.Identity, role string) (*participant.User, error) {
	r.log.Debug("Recording sign in", "user_id", id.UserID)

	ref := participant.Ref(id.UserID)
	var user *participant.User
	created := false

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		if !snap.Exists() {
			created = true
			user = participant.NewUser(id, role)
			fields, err := document.FromStruct(user)
			if err != nil {
				return err
			}
			fields["createdAt"] = document.ServerTimestamp
			fields["lastLogin"] = document.ServerTimestamp
			return tx.Set(ref, fields)
		}

		created = false
		user, err = decodeUser(snap)
		if err != nil {
			return err
		}
		user.DisplayName = id.DisplayName
		user.PhotoURL = id.PhotoURL
		user.Role = role
		return tx.Update(ref, document.Fields{
			"displayName": id.DisplayName,
			"photoURL":    id.PhotoURL,
			"role":        role,
			"lastLogin":   document.ServerTimestamp,
		})
	})
	if err != nil {
		r.log.Error("Failed to record sign in", "user_id", id.UserID, "error", err)
		return nil, fmt.Errorf("failed to record sign in: %w", err)
	}

	if created {
		r.log.Info("User profile created", "user_id", id.UserID, "role", role)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*participant.User, error) {
	snap, err := r.store.Get(ctx, participant.Ref(id))
	if err != nil {
		r.log.Error("Failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !snap.Exists() {
		return nil, ErrUserNotFound
	}
	return decodeUser(snap)
}

// ListIDs returns the ids of all users with a profile.
func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	snaps, err := r.store.Query(ctx, participant.UsersCollection, document.Query{})
	if err != nil {
		r.log.Error("Failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func decodeUser(snap *document.Snapshot) (*participant.User, error) {
	var u participant.User
	if err := snap.DataTo(&u); err != nil {
		return nil, err
	}
	u.ID = snap.Ref.ID
	return &u, nil
}
