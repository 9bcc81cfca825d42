package memory

import (
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

type write struct {
	kind OpKind
	ref  document.Ref
	data document.Fields
}

// tx records the version of every document it reads; commit fails with
// ErrConflict when any of them moved. Blind writes (increments on documents
// that were never read) do not take part in validation.
type tx struct {
	store   *Store
	attempt int
	reads   map[string]int64
	writes  []write
}

func (t *tx) Get(ref document.Ref) (*document.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, document.ErrReadAfterWrite
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	snap := t.store.snapshotLocked(ref)
	path := ref.Path()
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = snap.Version
	}
	return snap, nil
}

func (t *tx) Set(ref document.Ref, data document.Fields) error {
	return t.buffer(OpSet, ref, data)
}

func (t *tx) Update(ref document.Ref, updates document.Fields) error {
	return t.buffer(OpUpdate, ref, updates)
}

func (t *tx) Delete(ref document.Ref) error {
	return t.buffer(OpDelete, ref, nil)
}

func (t *tx) buffer(kind OpKind, ref document.Ref, data document.Fields) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if t.store.fault != nil {
		if err := t.store.fault(Op{Kind: kind, Ref: ref, Attempt: t.attempt}); err != nil {
			return err
		}
	}
	// Sentinels are kept as-is; only the map is copied so callers may reuse it.
	copied := make(document.Fields, len(data))
	for k, v := range data {
		copied[k] = v
	}
	t.writes = append(t.writes, write{kind: kind, ref: ref, data: copied})
	return nil
}
