package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

// CategoryService manages the award categories.
type CategoryService struct {
	categories *repository.CategoryRepository
	candidates *repository.CandidateRepository
	log        *log.Logger
}

// NewCategoryService creates the service.
func NewCategoryService(categories *repository.CategoryRepository, candidates *repository.CandidateRepository) *CategoryService {
	return &CategoryService{
		categories: categories,
		candidates: candidates,
		log:        logger.Service("category"),
	}
}

// CategoryRequest carries the editable fields of a category.
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Order       int    `json:"order" binding:"required"`
	Description string `json:"description"`
}

// Create validates and stores a new category. Two concurrent creates with the
// same order can both pass the uniqueness check.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*category.Category, error) {
	c := category.NewCategory(req.Name, req.Order, req.Description)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOrder(ctx, c.Order, ""); err != nil {
		return nil, err
	}

	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("Category created", "category_id", c.ID, "order", c.Order)
	return c, nil
}

// Update replaces the editable fields of a category.
func (s *CategoryService) Update(ctx context.Context, id string, req CategoryRequest) (*category.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *c
	updated.Name = req.Name
	updated.Order = req.Order
	updated.Description = req.Description
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if updated.Order != c.Order {
		if err := s.checkOrder(ctx, updated.Order, id); err != nil {
			return nil, err
		}
	}

	if err := s.categories.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.log.Info("Category updated", "category_id", id)
	return &updated, nil
}

// Delete removes a category that has no candidates.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return err
	}

	n, err := s.candidates.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Warn("Refusing to delete category with candidates", "category_id", id, "candidates", n)
		return fmt.Errorf("%w: %d candidates", category.ErrCategoryHasCandidates, n)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Category deleted", "category_id", id)
	return nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*category.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// List returns every category in display order.
func (s *CategoryService) List(ctx context.Context) ([]*category.Category, error) {
	return s.categories.List(ctx)
}

// SetupStatus reports how many candidates each category has.
func (s *CategoryService) SetupStatus(ctx context.Context) ([]category.Setup, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	setups := make([]category.Setup, 0, len(categories))
	for _, c := range categories {
		n, err := s.candidates.CountByCategory(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		status := category.StatusFor(n)
		setups = append(setups, category.Setup{
			Category:       c,
			CandidateCount: n,
			IsComplete:     status == category.StatusReady,
			Status:         status,
		})
	}
	return setups, nil
}

func (s *CategoryService) checkOrder(ctx context.Context, order int, selfID string) error {
	existing, err := s.categories.FindByOrder(ctx, order)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: order %d belongs to %q", category.ErrOrderTaken, order, existing.Name)
	}
	return nil
}
