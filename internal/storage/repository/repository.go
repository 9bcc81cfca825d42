// Package repository maps the domain types onto documents of a document.Store.
package repository

import (
	"errors"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

func isNotFound(err error) bool {
	return errors.Is(err, document.ErrNotFound)
}
