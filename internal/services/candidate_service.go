package services

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/photos"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

// CandidateService manages the nominees of each category.
type CandidateService struct {
	categories *repository.CategoryRepository
	candidates *repository.CandidateRepository
	photos     photos.Store
	log        *log.Logger
}

// NewCandidateService creates the service. A nil photo store disables uploads.
func NewCandidateService(categories *repository.CategoryRepository, candidates *repository.CandidateRepository, photoStore photos.Store) *CandidateService {
	return &CandidateService{
		categories: categories,
		candidates: candidates,
		photos:     photoStore,
		log:        logger.Service("candidate"),
	}
}

// CandidateRequest carries the editable fields of a candidate.
type CandidateRequest struct {
	Name        string `json:"name" binding:"required"`
	CategoryID  string `json:"categoryId"`
	Order       int    `json:"order" binding:"required"`
	Description string `json:"description"`
	Photo       string `json:"photo"`
}

// Create nominates a candidate in an existing category that still has room.
func (s *CandidateService) Create(ctx context.Context, req CandidateRequest) (*category.Candidate, error) {
	c := category.NewCandidate(req.CategoryID, req.Name, req.Description, req.Photo, req.Order)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, c.CategoryID); err != nil {
		return nil, err
	}

	siblings, err := s.candidates.ListByCategory(ctx, c.CategoryID)
	if err != nil {
		return nil, err
	}
	if len(siblings) >= category.MaxCandidatesPerCategory {
		s.log.Warn("Category is full", "category_id", c.CategoryID)
		return nil, category.ErrCategoryFull
	}
	if err := checkCandidateOrder(siblings, c.Order, ""); err != nil {
		return nil, err
	}

	if err := s.candidates.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("Candidate created", "candidate_id", c.ID, "category_id", c.CategoryID)
	return c, nil
}

// Update replaces the editable fields. The vote counter is never written.
func (s *CandidateService) Update(ctx context.Context, id string, req CandidateRequest) (*category.Candidate, error) {
	current, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Name = req.Name
	updated.Order = req.Order
	updated.Description = req.Description
	if req.Photo != "" {
		updated.Photo = req.Photo
	}
	if req.CategoryID != "" {
		updated.CategoryID = req.CategoryID
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if updated.CategoryID != current.CategoryID || updated.Order != current.Order {
		if updated.CategoryID != current.CategoryID {
			if _, err := s.categories.GetByID(ctx, updated.CategoryID); err != nil {
				return nil, err
			}
		}
		siblings, err := s.candidates.ListByCategory(ctx, updated.CategoryID)
		if err != nil {
			return nil, err
		}
		if updated.CategoryID != current.CategoryID && len(siblings) >= category.MaxCandidatesPerCategory {
			return nil, category.ErrCategoryFull
		}
		if err := checkCandidateOrder(siblings, updated.Order, id); err != nil {
			return nil, err
		}
	}

	if err := s.candidates.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.log.Info("Candidate updated", "candidate_id", id)
	return &updated, nil
}

// Delete removes a candidate.
func (s *CandidateService) Delete(ctx context.Context, id string) error {
	if _, err := s.candidates.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.candidates.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Candidate deleted", "candidate_id", id)
	return nil
}

// Get returns one candidate.
func (s *CandidateService) Get(ctx context.Context, id string) (*category.Candidate, error) {
	return s.candidates.GetByID(ctx, id)
}

// ListByCategory returns the ballot of a category in display order.
func (s *CandidateService) ListByCategory(ctx context.Context, categoryID string) ([]*category.Candidate, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.candidates.ListByCategory(ctx, categoryID)
}

// List returns every candidate.
func (s *CandidateService) List(ctx context.Context) ([]*category.Candidate, error) {
	return s.candidates.List(ctx)
}

// ResolveForVote returns the candidate when it belongs to categoryID.
func (s *CandidateService) ResolveForVote(ctx context.Context, categoryID, candidateID string) (*category.Candidate, error) {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if c.CategoryID != categoryID {
		return nil, fmt.Errorf("%w: %s is in %s", category.ErrCandidateMismatch, candidateID, c.CategoryID)
	}
	return c, nil
}

// UploadPhoto stores an image for the candidate and records its URL.
func (s *CandidateService) UploadPhoto(ctx context.Context, id string, r io.Reader, size int64, contentType string) (*category.Candidate, error) {
	if s.photos == nil {
		return nil, photos.ErrDisabled
	}
	c, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.photos.Upload(ctx, id, r, size, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.candidates.SetPhoto(ctx, id, url); err != nil {
		return nil, err
	}

	c.Photo = url
	s.log.Info("Candidate photo updated", "candidate_id", id)
	return c, nil
}

func checkCandidateOrder(siblings []*category.Candidate, order int, selfID string) error {
	for _, s := range siblings {
		if s.Order == order && s.ID != selfID {
			return fmt.Errorf("%w: position %d is held by %q", category.ErrOrderTaken, order, s.Name)
		}
	}
	return nil
}
