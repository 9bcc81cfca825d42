// Package memory is an in-process document store with optimistic concurrency
// control. It backs the test suites and single-instance deployments.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// DefaultMaxAttempts matches the retry budget of hosted document databases.
const DefaultMaxAttempts = 5

// OpKind names a buffered transaction write.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Op describes a write as it is buffered by a transaction.
type Op struct {
	Kind    OpKind
	Ref     document.Ref
	Attempt int
}

// FaultFunc can fail a buffered write; used to simulate backend failures.
type FaultFunc func(op Op) error

type entry struct {
	fields  document.Fields
	version int64
	updated time.Time
}

// Store keeps documents in nested maps keyed by collection path and id.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]map[string]*entry
	seq         int64
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	fault       FaultFunc
	log         *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts bounds how many times a conflicting transaction is run.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between conflicting attempts.
func WithBackoff(d time.Duration) Option {
	return func(s *Store) { s.backoff = d }
}

// WithClock overrides the source of server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFaultInjector installs a hook consulted on every transactional write.
func WithFaultInjector(fn FaultFunc) Option {
	return func(s *Store) { s.fault = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[string]map[string]*entry),
		maxAttempts: DefaultMaxAttempts,
		backoff:     time.Millisecond,
		now:         time.Now,
		log:         logger.Store("memory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTransaction runs fn and commits its writes atomically, retrying on
// read-set conflicts up to the configured number of attempts.
func (s *Store) RunTransaction(ctx context.Context, fn document.TxFunc) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := &tx{store: s, attempt: attempt, reads: make(map[string]int64)}
		if err := fn(ctx, t); err != nil {
			return err
		}

		err := s.commit(t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, document.ErrConflict) {
			return err
		}

		s.log.Debug("transaction conflict, retrying", "attempt", attempt, "max_attempts", s.maxAttempts)
		if attempt < s.maxAttempts && s.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
	}

	s.log.Warn("transaction gave up after conflicts", "attempts", s.maxAttempts)
	return fmt.Errorf("%w: gave up after %d attempts", document.ErrTooMuchContention, s.maxAttempts)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, version := range t.reads {
		if s.versionLocked(path) != version {
			return document.ErrConflict
		}
	}

	now := s.now().UTC()
	staged := make(map[string]*entry)
	deleted := make(map[string]bool)

	current := func(ref document.Ref) *entry {
		path := ref.Path()
		if deleted[path] {
			return nil
		}
		if e, ok := staged[path]; ok {
			return e
		}
		return s.lookupLocked(ref)
	}

	for _, w := range t.writes {
		path := w.ref.Path()
		switch w.kind {
		case OpSet:
			fields, err := document.ApplySet(w.data, now)
			if err != nil {
				return err
			}
			staged[path] = &entry{fields: fields, updated: now}
			delete(deleted, path)
		case OpUpdate:
			existing := current(w.ref)
			if existing == nil {
				return fmt.Errorf("%w: %s", document.ErrNotFound, w.ref)
			}
			fields, err := document.ApplyUpdate(existing.fields, w.data, now)
			if err != nil {
				return err
			}
			staged[path] = &entry{fields: fields, updated: now}
		case OpDelete:
			delete(staged, path)
			deleted[path] = true
		}
	}

	for _, w := range t.writes {
		path := w.ref.Path()
		if deleted[path] {
			s.removeLocked(w.ref)
			continue
		}
		if e, ok := staged[path]; ok {
			s.seq++
			e.version = s.seq
			s.putLocked(w.ref, e)
			delete(staged, path)
		}
	}

	return nil
}

// Get reads a single document outside of any transaction.
func (s *Store) Get(ctx context.Context, ref document.Ref) (*document.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(ref), nil
}

// GetAll reads several documents; missing ones come back as non-existent snapshots.
func (s *Store) GetAll(ctx context.Context, refs []document.Ref) ([]*document.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*document.Snapshot, 0, len(refs))
	for _, ref := range refs {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s.snapshotLocked(ref))
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

// Delete removes a document; deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, ref document.Ref) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		return tx.Delete(ref)
	})
}

// Query lists documents of one collection.
func (s *Store) Query(ctx context.Context, collection string, q document.Query) ([]*document.Snapshot, error) {
	s.mu.RLock()
	var out []*document.Snapshot
	for id, e := range s.docs[collection] {
		if matches(e.fields, q.Filters) {
			out = append(out, document.NewSnapshot(document.Doc(collection, id), document.Clone(e.fields), e.version, e.updated))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a, _ := document.Lookup(out[i].Fields, q.OrderBy)
			b, _ := document.Lookup(out[j].Fields, q.OrderBy)
			if c := document.Compare(a, b); c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].Ref.ID < out[j].Ref.ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs[collection]), nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close drops all documents.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]map[string]*entry)
	return nil
}

func matches(fields document.Fields, filters []document.Filter) bool {
	for _, f := range filters {
		v, ok := document.Lookup(fields, f.Field)
		if !ok || !document.Equal(v, f.Value) {
			return false
		}
	}
	return true
}

func (s *Store) lookupLocked(ref document.Ref) *entry {
	if coll, ok := s.docs[ref.Collection]; ok {
		return coll[ref.ID]
	}
	return nil
}

func (s *Store) versionLocked(path string) int64 {
	i := strings.LastIndex(path, "/")
	if e := s.lookupLocked(document.Doc(path[:i], path[i+1:])); e != nil {
		return e.version
	}
	return 0
}

func (s *Store) snapshotLocked(ref document.Ref) *document.Snapshot {
	e := s.lookupLocked(ref)
	if e == nil {
		return document.Missing(ref)
	}
	return document.NewSnapshot(ref, document.Clone(e.fields), e.version, e.updated)
}

func (s *Store) putLocked(ref document.Ref, e *entry) {
	coll, ok := s.docs[ref.Collection]
	if !ok {
		coll = make(map[string]*entry)
		s.docs[ref.Collection] = coll
	}
	coll[ref.ID] = e
}

func (s *Store) removeLocked(ref document.Ref) {
	if coll, ok := s.docs[ref.Collection]; ok {
		delete(coll, ref.ID)
		if len(coll) == 0 {
			delete(s.docs, ref.Collection)
		}
	}
}

var _ document.Store = (*Store)(nil)
