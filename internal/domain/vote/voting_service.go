package vote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

// VotingService coordinates the vote transaction and exposes the progress
// and tally readers.
type VotingService struct {
	store     document.Store
	catalog   Catalog
	publisher Publisher
	log       *log.Logger
}

// NewVotingService wires the service. A nil publisher disables vote events.
func NewVotingService(store document.Store, catalog Catalog, publisher Publisher) *VotingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &VotingService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		log:       logger.Service("voting"),
	}
}

// SubmitVote records userID's vote for candidateID in categoryID. The caller
// resolves candidateName and checks that the candidate belongs to the category.
//
// The number of categories is read before the transaction starts and only
// decides whether the user's progress is complete.
func (vs *VotingService) SubmitVote(ctx context.Context, userID, categoryID, candidateID, candidateName string) error {
	if err := validateIDs(userID, categoryID, candidateID); err != nil {
		return err
	}

	vs.log.Debug("Submitting vote", "user_id", userID, "category_id", categoryID, "candidate_id", candidateID)

	categoryCount, err := vs.catalog.CountCategories(ctx)
	if err != nil {
		vs.log.Error("Failed to count categories", "error", err)
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}

	voteRef := UserVoteRef(userID, categoryID)
	progressRef := ProgressRef(userID)
	summaryRef := SummaryRef(categoryID)
	candidateRef := category.CandidateRef(candidateID)

	err = vs.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		existing, err := tx.Get(voteRef)
		if err != nil {
			return err
		}
		if existing.Exists() {
			return ErrAlreadyVoted
		}

		progressSnap, err := tx.Get(progressRef)
		if err != nil {
			return err
		}
		progress := NewVotingProgress()
		if progressSnap.Exists() {
			if err := progressSnap.DataTo(progress); err != nil {
				return err
			}
		}

		summarySnap, err := tx.Get(summaryRef)
		if err != nil {
			return err
		}

		if err := tx.Set(voteRef, document.Fields{
			"categoryId":    categoryID,
			"candidateId":   candidateID,
			"candidateName": candidateName,
			"votedAt":       document.ServerTimestamp,
		}); err != nil {
			return err
		}

		if err := tx.Update(candidateRef, document.Fields{
			"totalVotes": document.Increment(1),
			"updatedAt":  document.ServerTimestamp,
		}); err != nil {
			return err
		}

		if summarySnap.Exists() {
			err = tx.Update(summaryRef, document.Fields{
				"votes." + candidateID: document.Increment(1),
				"totalVoters":          document.Increment(1),
				"lastUpdated":          document.ServerTimestamp,
			})
		} else {
			err = tx.Set(summaryRef, document.Fields{
				"categoryId":  categoryID,
				"totalVoters": 1,
				"votes":       map[string]any{candidateID: 1},
				"lastUpdated": document.ServerTimestamp,
			})
		}
		if err != nil {
			return err
		}

		next, err := document.FromStruct(progress.Advance(categoryID, categoryCount))
		if err != nil {
			return err
		}
		return tx.Set(progressRef, next)
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyVoted):
		vs.log.Warn("Duplicate vote rejected", "user_id", userID, "category_id", categoryID)
		return ErrAlreadyVoted
	case errors.Is(err, document.ErrNotFound):
		vs.log.Warn("Vote references a missing candidate", "candidate_id", candidateID, "error", err)
		return fmt.Errorf("%w: %w", category.ErrCandidateNotFound, err)
	default:
		vs.log.Error("Vote transaction failed", "user_id", userID, "category_id", categoryID, "error", err)
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}

	vs.log.Info("Vote recorded", "user_id", userID, "category_id", categoryID, "candidate_id", candidateID)

	event := VoteCast{
		UserID:        userID,
		CategoryID:    categoryID,
		CandidateID:   candidateID,
		CandidateName: candidateName,
		OccurredAt:    time.Now().UTC(),
	}
	if err := vs.publisher.PublishVoteCast(ctx, event); err != nil {
		vs.log.Warn("Failed to publish vote event", "category_id", categoryID, "error", err)
	}
	return nil
}

// GetUserVotingProgress returns the user's progress, persisting the zero
// record the first time it is asked for.
func (vs *VotingService) GetUserVotingProgress(ctx context.Context, userID string) (*VotingProgress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidVote)
	}
	ref := ProgressRef(userID)

	snap, err := vs.store.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	if snap.Exists() {
		return decodeProgress(snap)
	}

	// Create only if still absent so a concurrent first vote is never overwritten.
	var progress *VotingProgress
	err = vs.store.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if snap.Exists() {
			progress, err = decodeProgress(snap)
			return err
		}
		progress = NewVotingProgress()
		fields, err := document.FromStruct(progress)
		if err != nil {
			return err
		}
		return tx.Set(ref, fields)
	})
	if err != nil {
		vs.log.Error("Failed to initialize progress", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to initialize progress: %w", err)
	}

	vs.log.Debug("Progress initialized", "user_id", userID)
	return progress, nil
}

// GetUserVoteForCategory returns the user's vote or nil when there is none.
func (vs *VotingService) GetUserVoteForCategory(ctx context.Context, userID, categoryID string) (*UserVote, error) {
	snap, err := vs.store.Get(ctx, UserVoteRef(userID, categoryID))
	if err != nil {
		return nil, fmt.Errorf("failed to read vote: %w", err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	return decodeVote(snap)
}

// HasUserVotedInCategory reports whether a vote exists for the pair.
func (vs *VotingService) HasUserVotedInCategory(ctx context.Context, userID, categoryID string) (bool, error) {
	v, err := vs.GetUserVoteForCategory(ctx, userID, categoryID)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// GetAllUserVotes lists the user's votes, oldest first.
func (vs *VotingService) GetAllUserVotes(ctx context.Context, userID string) ([]*UserVote, error) {
	snaps, err := vs.store.Query(ctx, UserVotesCollection(userID), document.Query{OrderBy: "votedAt"})
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	votes := make([]*UserVote, 0, len(snaps))
	for _, snap := range snaps {
		v, err := decodeVote(snap)
		if err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, nil
}

// GetCategoryResults returns the candidates of a category in display order
// with their vote counts and shares.
func (vs *VotingService) GetCategoryResults(ctx context.Context, categoryID string) (*CategoryResults, error) {
	cat, err := vs.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return vs.resultsFor(ctx, cat)
}

// GetAllResults returns the results of every category in category order.
func (vs *VotingService) GetAllResults(ctx context.Context) ([]*CategoryResults, error) {
	categories, err := vs.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	results := make([]*CategoryResults, 0, len(categories))
	for _, cat := range categories {
		r, err := vs.resultsFor(ctx, cat)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// GetSummary returns the raw tally of a category, or nil before its first vote.
func (vs *VotingService) GetSummary(ctx context.Context, categoryID string) (*VoteSummary, error) {
	snap, err := vs.store.Get(ctx, SummaryRef(categoryID))
	if err != nil {
		return nil, fmt.Errorf("failed to read vote summary: %w", err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	var summary VoteSummary
	if err := snap.DataTo(&summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (vs *VotingService) resultsFor(ctx context.Context, cat *category.Category) (*CategoryResults, error) {
	candidates, err := vs.catalog.ListCandidates(ctx, cat.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	summary, err := vs.GetSummary(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = &VoteSummary{CategoryID: cat.ID}
	}

	results := &CategoryResults{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		TotalVoters:  summary.TotalVoters,
		Candidates:   make([]CandidateResult, 0, len(candidates)),
		LastUpdated:  summary.LastUpdated,
	}
	for _, c := range candidates {
		votes := summary.Votes[c.ID]
		results.Candidates = append(results.Candidates, CandidateResult{
			ID:          c.ID,
			Name:        c.Name,
			Photo:       c.Photo,
			Description: c.Description,
			Order:       c.Order,
			Votes:       votes,
			Percentage:  Percentage(votes, summary.TotalVoters),
		})
	}
	return results, nil
}

func decodeProgress(snap *document.Snapshot) (*VotingProgress, error) {
	progress := NewVotingProgress()
	if err := snap.DataTo(progress); err != nil {
		return nil, err
	}
	if progress.CompletedCategories == nil {
		progress.CompletedCategories = []string{}
	}
	return progress, nil
}

func decodeVote(snap *document.Snapshot) (*UserVote, error) {
	var v UserVote
	if err := snap.DataTo(&v); err != nil {
		return nil, err
	}
	if v.CategoryID == "" {
		v.CategoryID = snap.Ref.ID
	}
	return &v, nil
}

func validateIDs(userID, categoryID, candidateID string) error {
	for name, id := range map[string]string{"user id": userID, "category id": categoryID, "candidate id": candidateID} {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidVote, name)
		}
		if strings.ContainsAny(id, "./") {
			return fmt.Errorf("%w: %s contains a reserved character", ErrInvalidVote, name)
		}
	}
	return nil
}
