// Package document defines the transactional document store port the voting
// core is written against. Backends live in sibling packages (memory, postgres).
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Update when the target document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrReadAfterWrite is returned when a transaction reads after it has written.
	ErrReadAfterWrite = errors.New("transaction reads must happen before writes")
	// ErrConflict reports that a document read by the transaction changed before commit.
	ErrConflict = errors.New("transaction conflict")
	// ErrTooMuchContention is returned once a transaction exhausted its attempts.
	ErrTooMuchContention = errors.New("too much contention on documents")
	// ErrInvalidPath is returned for malformed references or field paths.
	ErrInvalidPath = errors.New("invalid document path")
)

// Ref addresses a single document. Collection may be a nested path such as
// "users/u1/votes".
type Ref struct {
	Collection string
	ID         string
}

// Doc builds a reference to id in collection.
func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

// Sub builds a reference to a document in a subcollection of r.
func (r Ref) Sub(collection, id string) Ref {
	return Ref{Collection: r.Path() + "/" + collection, ID: id}
}

// Path returns the slash separated path of the document.
func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

// Validate rejects empty segments and ids containing a slash.
func (r Ref) Validate() error {
	if r.ID == "" || strings.Contains(r.ID, "/") {
		return fmt.Errorf("%w: bad id %q", ErrInvalidPath, r.ID)
	}
	if r.Collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	for _, segment := range strings.Split(r.Collection, "/") {
		if segment == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, r.Collection)
		}
	}
	return nil
}

func (r Ref) String() string {
	return r.Path()
}

// Fields is the content of a document. Keys of Update calls may be dotted
// paths ("votes.c1") addressing nested maps.
type Fields map[string]any

// Snapshot is the state of a document as read at some point in time.
type Snapshot struct {
	Ref        Ref
	Fields     Fields
	Version    int64
	UpdateTime time.Time
	exists     bool
}

// NewSnapshot is used by backends to build a snapshot of an existing document.
func NewSnapshot(ref Ref, fields Fields, version int64, updated time.Time) *Snapshot {
	return &Snapshot{Ref: ref, Fields: fields, Version: version, UpdateTime: updated, exists: true}
}

// Missing is used by backends to describe an absent document.
func Missing(ref Ref) *Snapshot {
	return &Snapshot{Ref: ref}
}

// Exists reports whether the document was present when read.
func (s *Snapshot) Exists() bool {
	return s != nil && s.exists
}

// DataTo decodes the document fields into v, which should be a pointer to a
// struct with json tags.
func (s *Snapshot) DataTo(v any) error {
	if !s.Exists() {
		return fmt.Errorf("%w: %s", ErrNotFound, s.Ref)
	}
	raw, err := json.Marshal(s.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.Ref, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.Ref, err)
	}
	return nil
}

// Tx is a read-then-write unit of work. All Get calls must precede the first
// Set, Update or Delete; writes are buffered and applied atomically on commit.
type Tx interface {
	Get(ref Ref) (*Snapshot, error)
	Set(ref Ref, data Fields) error
	Update(ref Ref, updates Fields) error
	Delete(ref Ref) error
}

// TxFunc is the body of a transaction. It may be invoked several times when
// the store retries after a conflict, so it must not keep state across calls.
type TxFunc func(ctx context.Context, tx Tx) error

// Filter is an equality condition on a top level field.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Query selects documents of one collection.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is a transactional key-document database.
type Store interface {
	RunTransaction(ctx context.Context, fn TxFunc) error

	Get(ctx context.Context, ref Ref) (*Snapshot, error)
	GetAll(ctx context.Context, refs []Ref) ([]*Snapshot, error)
	Set(ctx context.Context, ref Ref, data Fields) error
	Update(ctx context.Context, ref Ref, updates Fields) error
	Delete(ctx context.Context, ref Ref) error

	Query(ctx context.Context, collection string, q Query) ([]*Snapshot, error)
	Count(ctx context.Context, collection string) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
