package migrations

import (
	"fmt"
	"time"

	"github.com/gravadigital/campus-awards-api/internal/logger"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

// GetMigrations returns all available migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			ID:   "001",
			Name: "create_documents_table",
			Up:   migration001Up,
			Down: migration001Down,
		},
		{
			ID:   "002",
			Name: "create_indexes",
			Up:   migration002Up,
			Down: migration002Down,
		},
		{
			ID:   "003",
			Name: "create_constraints_and_triggers",
			Up:   migration003Up,
			Down: migration003Down,
		},
		{
			ID:   "004",
			Name: "create_views",
			Up:   migration004Up,
			Down: migration004Down,
		},
		{
			ID:   "005",
			Name: "seed_voting_settings",
			Up:   migration005Up,
			Down: migration005Down,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(db *gorm.DB) error {
	log := logger.Migration()

	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := GetMigrations()

	for _, migration := range migrations {
		if hasBeenRun(db, migration.ID) {
			log.Debug("Migration already applied, skipping", "id", migration.ID, "name", migration.Name)
			continue
		}

		log.Info("Running migration", "id", migration.ID, "name", migration.Name)

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", migration.ID, err)
			}

			return recordMigration(tx, migration.ID, migration.Name)
		})
		if err != nil {
			return err
		}

		log.Info("Successfully applied migration", "id", migration.ID)
	}

	log.Info("All migrations completed successfully")
	return nil
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(10) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

// hasBeenRun checks if a migration has already been applied
func hasBeenRun(db *gorm.DB, migrationID string) bool {
	var count int64
	db.Raw("SELECT COUNT(*) FROM schema_migrations WHERE id = ?", migrationID).Scan(&count)
	return count > 0
}

// recordMigration records that a migration has been applied
func recordMigration(db *gorm.DB, migrationID, name string) error {
	return db.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", migrationID, name).Error
}

// RollbackMigration rolls back the last applied migration
func RollbackMigration(db *gorm.DB) error {
	log := logger.Migration()

	var lastMigration struct {
		ID   string
		Name string
	}

	err := db.Raw(`
        SELECT id, name FROM schema_migrations
        ORDER BY id DESC
        LIMIT 1
    `).Scan(&lastMigration).Error
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	if lastMigration.ID == "" {
		return fmt.Errorf("no migrations to rollback")
	}

	migrations := GetMigrations()
	var targetMigration *Migration

	for _, migration := range migrations {
		if migration.ID == lastMigration.ID {
			targetMigration = &migration
			break
		}
	}

	if targetMigration == nil {
		return fmt.Errorf("migration %s not found", lastMigration.ID)
	}

	log.Info("Rolling back migration", "id", targetMigration.ID, "name", targetMigration.Name)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err = targetMigration.Down(tx); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", targetMigration.ID, err)
		}

		return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", targetMigration.ID).Error
	})
	if err != nil {
		return err
	}

	log.Info("Successfully rolled back migration", "id", targetMigration.ID)
	return nil
}

// AppliedMigration is a row of schema_migrations
type AppliedMigration struct {
	ID        string
	Name      string
	AppliedAt time.Time
}

// Status lists the applied migrations and the ones still pending
func Status(db *gorm.DB) ([]AppliedMigration, []Migration, error) {
	if err := createMigrationsTable(db); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []AppliedMigration
	if err := db.Raw("SELECT id, name, applied_at FROM schema_migrations ORDER BY id").Scan(&applied).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.ID] = true
	}

	var pending []Migration
	for _, m := range GetMigrations() {
		if !done[m.ID] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}
