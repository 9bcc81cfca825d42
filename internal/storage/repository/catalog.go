package repository

import (
	"context"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
)

// Catalog exposes categories and candidates to the voting service.
type Catalog struct {
	categories *CategoryRepository
	candidates *CandidateRepository
}

// NewCatalog combines the two repositories.
func NewCatalog(categories *CategoryRepository, candidates *CandidateRepository) *Catalog {
	return &Catalog{categories: categories, candidates: candidates}
}

func (c *Catalog) CountCategories(ctx context.Context) (int, error) {
	return c.categories.Count(ctx)
}

func (c *Catalog) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	return c.categories.GetByID(ctx, id)
}

func (c *Catalog) ListCategories(ctx context.Context) ([]*category.Category, error) {
	return c.categories.List(ctx)
}

func (c *Catalog) ListCandidates(ctx context.Context, categoryID string) ([]*category.Candidate, error) {
	return c.candidates.ListByCategory(ctx, categoryID)
}
