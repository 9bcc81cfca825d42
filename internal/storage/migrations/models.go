package migrations

import (
	"time"
)

// Document is the single table backing the document store. Nested
// collections are flattened into the collection path, e.g. "users/u1/votes".
type Document struct {
	Collection string    `gorm:"primaryKey;type:text" json:"collection"`
	ID         string    `gorm:"primaryKey;type:text" json:"id"`
	Data       string    `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	Version    int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// AllModels returns all models for migration
func AllModels() []any {
	return []any{
		&Document{},
	}
}
