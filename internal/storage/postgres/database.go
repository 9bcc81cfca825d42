package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/migrations"
)

const (
	dialAttempts = 3
	dialBackoff  = 2 * time.Second
	pingTimeout  = 5 * time.Second
)

// PoolConfig sizes the connection pool behind a Store.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PoolFor sizes the pool from the transaction retry budget. A vote keeps its
// connection across every serializable attempt, so busy stores keep more of
// them warm.
func PoolFor(cfg *config.Config) PoolConfig {
	idle := 5
	if attempts := cfg.Storage.MaxTransactionAttempts; attempts > idle {
		idle = attempts
	}
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    min(idle, 25),
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// PoolStats is a snapshot of connection pool usage.
type PoolStats struct {
	Open         int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}

// Open dials PostgreSQL, applies pending migrations and returns a document
// store whose retry budget comes from cfg. opts are applied after that.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	db, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = Disconnect(db)
		return nil, err
	}

	opts = append([]Option{WithMaxAttempts(cfg.Storage.MaxTransactionAttempts)}, opts...)
	return NewStore(db, opts...), nil
}

// Dial opens the connection pool without touching the schema.
func Dial(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	log := logger.Database()

	if err := checkSettings(cfg); err != nil {
		log.Error("Database configuration validation failed", "error", err)
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	gormCfg := &gorm.Config{
		Logger:      gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: true,
	}
	if cfg.Log.Level == "debug" {
		gormCfg.Logger = gormLogger.Default.LogMode(gormLogger.Info)
	}

	log.Debug("Connecting to database", "host", cfg.DB.Host, "port", cfg.DB.Port, "database", cfg.DB.Name)

	var db *gorm.DB
	var err error
	delay := dialBackoff
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		if db, err = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormCfg); err == nil {
			break
		}
		log.Warn("Database connection failed", "attempt", attempt, "error", err)
		if attempt == dialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", dialAttempts, err)
	}

	pool := PoolFor(cfg)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := ping(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("Connected to PostgreSQL",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open_conns", pool.MaxOpenConns,
		"max_idle_conns", pool.MaxIdleConns)
	return db, nil
}

// Migrate applies the pending schema migrations of the documents table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	log := logger.Migration()

	if err := ping(ctx, db); err != nil {
		log.Error("Database unreachable before migrations", "error", err)
		return err
	}

	start := time.Now()
	if err := migrations.RunMigrations(db.WithContext(ctx)); err != nil {
		log.Error("Database migrations failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed", "duration", time.Since(start))
	return nil
}

// Disconnect closes the pool behind db.
func Disconnect(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	stats := poolStats(db)
	logger.Database().Info("Closing database pool", "open", stats.Open, "in_use", stats.InUse, "waits", stats.WaitCount)
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func checkSettings(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	var errs []error
	for name, value := range map[string]string{
		"DB_HOST": cfg.DB.Host,
		"DB_PORT": cfg.DB.Port,
		"DB_NAME": cfg.DB.Name,
		"DB_USER": cfg.DB.User,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty", name))
		}
	}
	return errors.Join(errs...)
}

func ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func poolStats(db *gorm.DB) PoolStats {
	sqlDB, err := db.DB()
	if err != nil {
		return PoolStats{}
	}
	s := sqlDB.Stats()
	return PoolStats{
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}
