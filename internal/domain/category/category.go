// Package category holds the award categories and the candidates nominated in them.
package category

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

const (
	// CategoriesCollection stores one document per category.
	CategoriesCollection = "categories"
	// CandidatesCollection stores one document per candidate across all categories.
	CandidatesCollection = "candidates"

	// MaxCandidatesPerCategory is the ballot size of a category.
	MaxCandidatesPerCategory = 3

	NameMinLength        = 3
	NameMaxLength        = 100
	DescriptionMaxLength = 1000
)

var (
	ErrNotFound              = errors.New("category not found")
	ErrCandidateNotFound     = errors.New("candidate not found")
	ErrOrderTaken            = errors.New("order is already used")
	ErrCategoryHasCandidates = errors.New("category still has candidates")
	ErrCategoryFull          = errors.New("category already has the maximum number of candidates")
	ErrCandidateMismatch     = errors.New("candidate does not belong to category")
	ErrInvalid               = errors.New("invalid input")
)

// Category is an award category users vote in once.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Order       int       `json:"order"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SetupStatus describes whether a category is ready for voting.
type SetupStatus string

const (
	StatusReady      SetupStatus = "Ready"
	StatusIncomplete SetupStatus = "Incomplete"
	StatusEmpty      SetupStatus = "Empty"
)

// Setup is the admin view of a category and its candidate count.
type Setup struct {
	Category       *Category   `json:"category"`
	CandidateCount int         `json:"candidateCount"`
	IsComplete     bool        `json:"isComplete"`
	Status         SetupStatus `json:"status"`
}

// StatusFor maps a candidate count to its setup status.
func StatusFor(candidateCount int) SetupStatus {
	switch {
	case candidateCount >= MaxCandidatesPerCategory:
		return StatusReady
	case candidateCount == 0:
		return StatusEmpty
	default:
		return StatusIncomplete
	}
}

// NewCategory creates a category with a fresh id.
func NewCategory(name string, order int, description string) *Category {
	now := time.Now().UTC()
	return &Category{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		Order:       order,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks field constraints.
func (c *Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if utf8.RuneCountInString(c.Description) > DescriptionMaxLength {
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalid, DescriptionMaxLength)
	}
	if c.Order < 1 {
		return fmt.Errorf("%w: order must be at least 1", ErrInvalid)
	}
	return nil
}

// Ref returns the document reference of the category.
func (c *Category) Ref() document.Ref {
	return CategoryRef(c.ID)
}

// CategoryRef addresses a category document.
func CategoryRef(id string) document.Ref {
	return document.Doc(CategoriesCollection, id)
}

func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < NameMinLength || n > NameMaxLength {
		return fmt.Errorf("%w: name must be between %d and %d characters", ErrInvalid, NameMinLength, NameMaxLength)
	}
	return nil
}
