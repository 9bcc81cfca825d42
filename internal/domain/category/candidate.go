package category

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// Candidate is a nominee within a category. TotalVotes is maintained by the
// vote transaction only.
type Candidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CategoryID  string    `json:"categoryId"`
	Photo       string    `json:"photo"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	TotalVotes  int64     `json:"totalVotes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewCandidate creates a candidate with no votes.
func NewCandidate(categoryID, name, description, photo string, order int) *Candidate {
	now := time.Now().UTC()
	return &Candidate{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		CategoryID:  categoryID,
		Photo:       photo,
		Description: strings.TrimSpace(description),
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks field constraints.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.CategoryID) == "" {
		return fmt.Errorf("%w: categoryId is required", ErrInvalid)
	}
	if err := validateName(c.Name); err != nil {
		return err
	}
	if utf8.RuneCountInString(c.Description) > DescriptionMaxLength {
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalid, DescriptionMaxLength)
	}
	if c.Order < 1 || c.Order > MaxCandidatesPerCategory {
		return fmt.Errorf("%w: order must be between 1 and %d", ErrInvalid, MaxCandidatesPerCategory)
	}
	if c.TotalVotes < 0 {
		return fmt.Errorf("%w: totalVotes cannot be negative", ErrInvalid)
	}
	return nil
}

// Ref returns the document reference of the candidate.
func (c *Candidate) Ref() document.Ref {
	return CandidateRef(c.ID)
}

// CandidateRef addresses a candidate document.
func CandidateRef(id string) document.Ref {
	return document.Doc(CandidatesCollection, id)
}
