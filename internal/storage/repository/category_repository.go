package repository

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// CategoryRepository stores categories as documents of the categories collection.
type CategoryRepository struct {
	store document.Store
	log   *log.Logger
}

// NewCategoryRepository creates a category repository over store
func NewCategoryRepository(store document.Store) *CategoryRepository {
	return &CategoryRepository{
		store: store,
		log:   logger.Repository("category"),
	}
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	r.log.Debug("Creating category", "id", c.ID, "name", c.Name, "order", c.Order)

	fields, err := document.FromStruct(c)
	if err != nil {
		return err
	}
	fields["createdAt"] = document.ServerTimestamp
	fields["updatedAt"] = document.ServerTimestamp

	if err := r.store.Set(ctx, c.Ref(), fields); err != nil {
		r.log.Error("Failed to create category", "id", c.ID, "error", err)
		return fmt.Errorf("failed to create category: %w", err)
	}

	r.log.Info("Category created successfully", "id", c.ID)
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	r.log.Debug("Retrieving category by ID", "id", id)

	snap, err := r.store.Get(ctx, category.CategoryRef(id))
	if err != nil {
		r.log.Error("Failed to get category", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if !snap.Exists() {
		return nil, category.ErrNotFound
	}
	return decodeCategory(snap)
}

// Update writes the editable fields of c.
func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	r.log.Debug("Updating category", "id", c.ID)

	err := r.store.Update(ctx, c.Ref(), document.Fields{
		"name":        c.Name,
		"order":       c.Order,
		"description": c.Description,
		"updatedAt":   document.ServerTimestamp,
	})
	if err != nil {
		if isNotFound(err) {
			return category.ErrNotFound
		}
		r.log.Error("Failed to update category", "id", c.ID, "error", err)
		return fmt.Errorf("failed to update category: %w", err)
	}

	r.log.Info("Category updated successfully", "id", c.ID)
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	r.log.Debug("Deleting category", "id", id)

	if err := r.store.Delete(ctx, category.CategoryRef(id)); err != nil {
		r.log.Error("Failed to delete category", "id", id, "error", err)
		return fmt.Errorf("failed to delete category: %w", err)
	}

	r.log.Info("Category deleted successfully", "id", id)
	return nil
}

// List returns all categories by ascending order.
func (r *CategoryRepository) List(ctx context.Context) ([]*category.Category, error) {
	snaps, err := r.store.Query(ctx, category.CategoriesCollection, document.Query{OrderBy: "order"})
	if err != nil {
		r.log.Error("Failed to list categories", "error", err)
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	out := make([]*category.Category, 0, len(snaps))
	for _, snap := range snaps {
		c, err := decodeCategory(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	r.log.Debug("Retrieved categories", "count", len(out))
	return out, nil
}

// FindByOrder returns the category using order, or nil.
func (r *CategoryRepository) FindByOrder(ctx context.Context, order int) (*category.Category, error) {
	snaps, err := r.store.Query(ctx, category.CategoriesCollection, document.Query{
		Filters: []document.Filter{document.Where("order", order)},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up category order: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return decodeCategory(snaps[0])
}

func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx, category.CategoriesCollection)
	if err != nil {
		r.log.Error("Failed to count categories", "error", err)
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}

func decodeCategory(snap *document.Snapshot) (*category.Category, error) {
	var c category.Category
	if err := snap.DataTo(&c); err != nil {
		return nil, err
	}
	c.ID = snap.Ref.ID
	return &c, nil
}
