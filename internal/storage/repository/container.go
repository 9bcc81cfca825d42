package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// Container holds every repository built over one document store.
type Container struct {
	store      document.Store
	log        *log.Logger
	categories *CategoryRepository
	candidates *CandidateRepository
	settings   *SettingsRepository
	users      *UserRepository
	catalog    *Catalog
}

// NewContainer creates the repositories over store
func NewContainer(store document.Store) *Container {
	c := &Container{
		store:      store,
		log:        logger.Repository("container"),
		categories: NewCategoryRepository(store),
		candidates: NewCandidateRepository(store),
		settings:   NewSettingsRepository(store),
		users:      NewUserRepository(store),
	}
	c.catalog = NewCatalog(c.categories, c.candidates)
	return c
}

// Store returns the underlying document store
func (c *Container) Store() document.Store {
	return c.store
}

// Categories returns the category repository
func (c *Container) Categories() *CategoryRepository {
	return c.categories
}

// Candidates returns the candidate repository
func (c *Container) Candidates() *CandidateRepository {
	return c.candidates
}

// Settings returns the settings repository
func (c *Container) Settings() *SettingsRepository {
	return c.settings
}

// Users returns the user repository
func (c *Container) Users() *UserRepository {
	return c.users
}

// Catalog returns the read model used by the voting service
func (c *Container) Catalog() *Catalog {
	return c.catalog
}

// Health checks that the store answers
func (c *Container) Health(ctx context.Context) error {
	c.log.Debug("Performing container health check...")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		c.log.Error("Document store health check failed", "error", err)
		return fmt.Errorf("document store health check failed: %w", err)
	}
	return nil
}

// Close releases the document store
func (c *Container) Close() error {
	c.log.Info("Closing repository container...")

	if err := c.store.Close(); err != nil {
		c.log.Error("Failed to close document store", "error", err)
		return fmt.Errorf("failed to close document store: %w", err)
	}
	return nil
}
