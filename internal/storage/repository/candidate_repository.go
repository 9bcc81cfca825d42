package repository

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// CandidateRepository stores candidates of every category in one collection.
type CandidateRepository struct {
	store document.Store
	log   *log.Logger
}

// NewCandidateRepository creates a candidate repository over store
func NewCandidateRepository(store document.Store) *CandidateRepository {
	return &CandidateRepository{
		store: store,
		log:   logger.Repository("candidate"),
	}
}

// Create stores c with a zero vote count.
func (r *CandidateRepository) Create(ctx context.Context, c *category.Candidate) error {
	r.log.Debug("Creating candidate", "id", c.ID, "category_id", c.CategoryID, "order", c.Order)

	fields, err := document.FromStruct(c)
	if err != nil {
		return err
	}
	fields["totalVotes"] = 0
	fields["createdAt"] = document.ServerTimestamp
	fields["updatedAt"] = document.ServerTimestamp

	if err := r.store.Set(ctx, c.Ref(), fields); err != nil {
		r.log.Error("Failed to create candidate", "id", c.ID, "error", err)
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	r.log.Info("Candidate created successfully", "id", c.ID, "category_id", c.CategoryID)
	return nil
}

func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*category.Candidate, error) {
	r.log.Debug("Retrieving candidate by ID", "id", id)

	snap, err := r.store.Get(ctx, category.CandidateRef(id))
	if err != nil {
		r.log.Error("Failed to get candidate", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	if !snap.Exists() {
		return nil, category.ErrCandidateNotFound
	}
	return decodeCandidate(snap)
}

// Update writes the editable fields of c. The vote counter is never written here.
func (r *CandidateRepository) Update(ctx context.Context, c *category.Candidate) error {
	r.log.Debug("Updating candidate", "id", c.ID)

	err := r.store.Update(ctx, c.Ref(), document.Fields{
		"name":        c.Name,
		"categoryId":  c.CategoryID,
		"description": c.Description,
		"photo":       c.Photo,
		"order":       c.Order,
		"updatedAt":   document.ServerTimestamp,
	})
	if err != nil {
		if isNotFound(err) {
			return category.ErrCandidateNotFound
		}
		r.log.Error("Failed to update candidate", "id", c.ID, "error", err)
		return fmt.Errorf("failed to update candidate: %w", err)
	}

	r.log.Info("Candidate updated successfully", "id", c.ID)
	return nil
}

// SetPhoto replaces the photo URL of a candidate.
func (r *CandidateRepository) SetPhoto(ctx context.Context, id, url string) error {
	err := r.store.Update(ctx, category.CandidateRef(id), document.Fields{
		"photo":     url,
		"updatedAt": document.ServerTimestamp,
	})
	if err != nil {
		if isNotFound(err) {
			return category.ErrCandidateNotFound
		}
		r.log.Error("Failed to set candidate photo", "id", id, "error", err)
		return fmt.Errorf("failed to set candidate photo: %w", err)
	}
	return nil
}

func (r *CandidateRepository) Delete(ctx context.Context, id string) error {
	r.log.Debug("Deleting candidate", "id", id)

	if err := r.store.Delete(ctx, category.CandidateRef(id)); err != nil {
		r.log.Error("Failed to delete candidate", "id", id, "error", err)
		return fmt.Errorf("failed to delete candidate: %w", err)
	}

	r.log.Info("Candidate deleted successfully", "id", id)
	return nil
}

// ListByCategory returns the candidates of a category in display order.
func (r *CandidateRepository) ListByCategory(ctx context.Context, categoryID string) ([]*category.Candidate, error) {
	return r.query(ctx, document.Query{
		Filters: []document.Filter{document.Where("categoryId", categoryID)},
		OrderBy: "order",
	})
}

// List returns every candidate.
func (r *CandidateRepository) List(ctx context.Context) ([]*category.Candidate, error) {
	return r.query(ctx, document.Query{OrderBy: "categoryId"})
}

func (r *CandidateRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	candidates, err := r.ListByCategory(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	return len(candidates), nil
}

func (r *CandidateRepository) query(ctx context.Context, q document.Query) ([]*category.Candidate, error) {
	snaps, err := r.store.Query(ctx, category.CandidatesCollection, q)
	if err != nil {
		r.log.Error("Failed to list candidates", "error", err)
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	out := make([]*category.Candidate, 0, len(snaps))
	for _, snap := range snaps {
		c, err := decodeCandidate(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeCandidate(snap *document.Snapshot) (*category.Candidate, error) {
	var c category.Candidate
	if err := snap.DataTo(&c); err != nil {
		return nil, err
	}
	c.ID = snap.Ref.ID
	return &c, nil
}
