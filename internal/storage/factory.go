package storage

import (
	"context"
	"fmt"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
	"github.com/gravadigital/campus-awards-api/internal/storage/memory"
	"github.com/gravadigital/campus-awards-api/internal/storage/postgres"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypeMemory keeps documents in process memory
	StorageTypeMemory StorageType = "memory"
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"
)

// Factory provides a factory pattern for creating document stores
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// CreateStore opens the document store for the configured backend
func (f *Factory) CreateStore(ctx context.Context, cfg *config.Config) (document.Store, error) {
	log := logger.Database()
	log.Info("Opening document store", "type", f.storageType)

	switch f.storageType {
	case StorageTypeMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		return memory.New(memory.WithMaxAttempts(cfg.Storage.MaxTransactionAttempts)), nil
	case StorageTypePostgres:
		store, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypeMemory,
		StorageTypePostgres,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}
