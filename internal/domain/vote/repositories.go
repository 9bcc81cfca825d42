package vote

import (
	"context"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
)

// Catalog is the read side of categories and candidates the voting service needs.
type Catalog interface {
	CountCategories(ctx context.Context) (int, error)
	GetCategory(ctx context.Context, id string) (*category.Category, error)
	ListCategories(ctx context.Context) ([]*category.Category, error)
	ListCandidates(ctx context.Context, categoryID string) ([]*category.Candidate, error)
}

// Publisher receives committed votes. Publishing is best effort.
type Publisher interface {
	PublishVoteCast(ctx context.Context, event VoteCast) error
}

type nopPublisher struct{}

func (nopPublisher) PublishVoteCast(context.Context, VoteCast) error { return nil }
