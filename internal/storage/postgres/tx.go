package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
	"github.com/gravadigital/campus-awards-api/internal/storage/migrations"
)

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

type write struct {
	kind writeKind
	ref  document.Ref
	data document.Fields
}

// tx reads through the open SQL transaction and buffers writes until flush.
type tx struct {
	db     *gorm.DB
	now    time.Time
	writes []write
}

func (t *tx) Get(ref document.Ref) (*document.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, document.ErrReadAfterWrite
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return getRow(t.db, ref, false)
}

func (t *tx) Set(ref document.Ref, data document.Fields) error {
	return t.buffer(writeSet, ref, data)
}

func (t *tx) Update(ref document.Ref, updates document.Fields) error {
	return t.buffer(writeUpdate, ref, updates)
}

func (t *tx) Delete(ref document.Ref) error {
	return t.buffer(writeDelete, ref, nil)
}

func (t *tx) buffer(kind writeKind, ref document.Ref, data document.Fields) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	copied := make(document.Fields, len(data))
	for k, v := range data {
		copied[k] = v
	}
	t.writes = append(t.writes, write{kind: kind, ref: ref, data: copied})
	return nil
}

func (t *tx) flush() error {
	for _, w := range t.writes {
		var err error
		switch w.kind {
		case writeSet:
			err = t.set(w.ref, w.data)
		case writeUpdate:
			err = t.update(w.ref, w.data)
		case writeDelete:
			err = t.db.Where("collection = ? AND id = ?", w.ref.Collection, w.ref.ID).Delete(&migrations.Document{}).Error
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) set(ref document.Ref, data document.Fields) error {
	fields, err := document.ApplySet(data, t.now)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ref, err)
	}

	row := migrations.Document{
		Collection: ref.Collection,
		ID:         ref.ID,
		Data:       string(raw),
		Version:    1,
		CreatedAt:  t.now,
		UpdatedAt:  t.now,
	}
	err = t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// update locks the row, applies the field paths in Go and writes the result
// back. Increments therefore serialize on the row lock.
func (t *tx) update(ref document.Ref, updates document.Fields) error {
	current, err := getRow(t.db, ref, true)
	if err != nil {
		return err
	}
	if !current.Exists() {
		return fmt.Errorf("%w: %s", document.ErrNotFound, ref)
	}

	fields, err := document.ApplyUpdate(current.Fields, updates, t.now)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ref, err)
	}

	err = t.db.Model(&migrations.Document{}).
		Where("collection = ? AND id = ?", ref.Collection, ref.ID).
		Updates(map[string]any{"data": string(raw), "updated_at": t.now}).Error
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", ref, err)
	}
	return nil
}
