package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
	"github.com/gravadigital/campus-awards-api/internal/storage/migrations"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Store keeps every document as a JSONB row of the documents table.
// Transactions run at SERIALIZABLE isolation and are retried when
// PostgreSQL reports a serialization failure.
type Store struct {
	db          *gorm.DB
	log         *log.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts bounds how many times a failed serializable transaction is run.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(s *Store) { s.backoff = d }
}

// NewStore wraps an open connection. Migrations must already be applied.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:          db,
		log:         logger.Store("postgres"),
		maxAttempts: 5,
		backoff:     20 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTransaction runs fn inside a SERIALIZABLE transaction and flushes its
// buffered writes before committing.
func (s *Store) RunTransaction(ctx context.Context, fn document.TxFunc) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			t := &tx{db: gtx, now: s.now().UTC()}
			if err := fn(ctx, t); err != nil {
				return err
			}
			return t.flush()
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})

		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		s.log.Debug("serializable transaction aborted, retrying", "attempt", attempt, "max_attempts", s.maxAttempts, "error", err)
		if attempt < s.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
	}

	s.log.Warn("transaction gave up after serialization failures", "attempts", s.maxAttempts)
	return fmt.Errorf("%w: gave up after %d attempts", document.ErrTooMuchContention, s.maxAttempts)
}

// Get reads a single document.
func (s *Store) Get(ctx context.Context, ref document.Ref) (*document.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return getRow(s.db.WithContext(ctx), ref, false)
}

// GetAll reads several documents, grouping the lookups by collection.
func (s *Store) GetAll(ctx context.Context, refs []document.Ref) ([]*document.Snapshot, error) {
	byCollection := make(map[string][]string)
	for _, ref := range refs {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
		byCollection[ref.Collection] = append(byCollection[ref.Collection], ref.ID)
	}

	found := make(map[string]*document.Snapshot, len(refs))
	for collection, ids := range byCollection {
		var rows []migrations.Document
		err := s.db.WithContext(ctx).
			Where("collection = ? AND id = ANY(?)", collection, pq.StringArray(ids)).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to read documents in %s: %w", collection, err)
		}
		for i := range rows {
			snap, err := toSnapshot(&rows[i])
			if err != nil {
				return nil, err
			}
			found[snap.Ref.Path()] = snap
		}
	}

	out := make([]*document.Snapshot, 0, len(refs))
	for _, ref := range refs {
		if snap, ok := found[ref.Path()]; ok {
			out = append(out, snap)
		} else {
			out = append(out, document.Missing(ref))
		}
	}
	return out, nil
}

// Set writes a whole document.
func (s *Store) Set(ctx context.Context, ref document.Ref, data document.Fields) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		return tx.Set(ref, data)
	})
}

// Update patches an existing document.
func (s *Store) Update(ctx context.Context, ref document.Ref, updates document.Fields) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		return tx.Update(ref, updates)
	})
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, ref document.Ref) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		return tx.Delete(ref)
	})
}

// Query lists documents of one collection using JSONB containment for the
// equality filters.
func (s *Store) Query(ctx context.Context, collection string, q document.Query) ([]*document.Snapshot, error) {
	db := s.db.WithContext(ctx).Where("collection = ?", collection)

	if len(q.Filters) > 0 {
		match := make(map[string]any, len(q.Filters))
		for _, f := range q.Filters {
			match[f.Field] = f.Value
		}
		raw, err := json.Marshal(match)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		db = db.Where("data @> ?::jsonb", string(raw))
	}

	if q.OrderBy != "" {
		direction := "ASC"
		if q.Desc {
			direction = "DESC"
		}
		db = db.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "data #> ? " + direction + ", id ASC",
			Vars:               []any{pq.StringArray(strings.Split(q.OrderBy, "."))},
			WithoutParentheses: true,
		}})
	} else {
		db = db.Order("id ASC")
	}

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var rows []migrations.Document
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	out := make([]*document.Snapshot, 0, len(rows))
	for i := range rows {
		snap, err := toSnapshot(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&migrations.Document{}).Where("collection = ?", collection).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return int(n), nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return ping(ctx, s.db)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return Disconnect(s.db)
}

// DB exposes the underlying connection for migrations and diagnostics.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func getRow(db *gorm.DB, ref document.Ref, forUpdate bool) (*document.Snapshot, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []migrations.Document
	err := db.Where("collection = ? AND id = ?", ref.Collection, ref.ID).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return document.Missing(ref), nil
	}
	return toSnapshot(&rows[0])
}

func toSnapshot(row *migrations.Document) (*document.Snapshot, error) {
	fields, err := document.DecodeJSON([]byte(row.Data))
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", row.Collection, row.ID, err)
	}
	return document.NewSnapshot(document.Doc(row.Collection, row.ID), fields, row.Version, row.UpdatedAt), nil
}

// isRetryable reports whether PostgreSQL aborted the transaction for a
// reason that a rerun can resolve.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}

// Stats reports the connection pool usage.
func (s *Store) Stats() PoolStats {
	return poolStats(s.db)
}

var _ document.Store = (*Store)(nil)
