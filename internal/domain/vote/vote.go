// Package vote records one vote per user and category and keeps the
// per-candidate counters, the per-category tallies and the per-user progress
// consistent with the recorded votes.
package vote

import (
	"errors"
	"math"
	"time"

	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

const (
	SummaryCollection = "voteSummary"
	progressDocID     = "progress"
)

var (
	// ErrAlreadyVoted is returned when the user has a vote in the category.
	ErrAlreadyVoted = errors.New("you have already voted in this category")
	// ErrTransient marks failures the caller may retry by submitting again.
	ErrTransient = errors.New("failed to submit vote, please try again")
	// ErrVotingClosed is returned by the vote gate while voting is closed.
	ErrVotingClosed = errors.New("voting is closed")
	// ErrInvalidVote is returned for empty or malformed identifiers.
	ErrInvalidVote = errors.New("invalid vote")
)

// IsTransient reports whether err may succeed when the same vote is submitted again.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// UserVote is the immutable record of a user's choice in one category.
// It is stored under the user, keyed by category id.
type UserVote struct {
	CategoryID    string    `json:"categoryId"`
	CandidateID   string    `json:"candidateId"`
	CandidateName string    `json:"candidateName"`
	VotedAt       time.Time `json:"votedAt"`
}

// VotingProgress tracks how far a user got through the ballot.
type VotingProgress struct {
	CurrentCategory     int      `json:"currentCategory"`
	CompletedCategories []string `json:"completedCategories"`
	TotalVotes          int      `json:"totalVotes"`
	IsComplete          bool     `json:"isComplete"`
}

// NewVotingProgress returns the zero record of a user who has not voted.
func NewVotingProgress() *VotingProgress {
	return &VotingProgress{CompletedCategories: []string{}}
}

// Advance returns the progress after one more vote in categoryID.
func (p *VotingProgress) Advance(categoryID string, categoryCount int) *VotingProgress {
	completed := make([]string, 0, len(p.CompletedCategories)+1)
	completed = append(completed, p.CompletedCategories...)
	completed = append(completed, categoryID)

	total := p.TotalVotes + 1
	return &VotingProgress{
		CurrentCategory:     p.CurrentCategory + 1,
		CompletedCategories: completed,
		TotalVotes:          total,
		IsComplete:          total >= categoryCount,
	}
}

// VoteSummary is the running tally of one category.
type VoteSummary struct {
	CategoryID  string           `json:"categoryId"`
	TotalVoters int64            `json:"totalVoters"`
	Votes       map[string]int64 `json:"votes"`
	LastUpdated *time.Time       `json:"lastUpdated"`
}

// CandidateResult is a candidate line of a category's results.
type CandidateResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Photo       string  `json:"photo"`
	Description string  `json:"description"`
	Order       int     `json:"order"`
	Votes       int64   `json:"votes"`
	Percentage  float64 `json:"percentage"`
}

// CategoryResults joins the ordered candidates of a category with its tally.
type CategoryResults struct {
	CategoryID   string            `json:"categoryId"`
	CategoryName string            `json:"categoryName"`
	TotalVoters  int64             `json:"totalVoters"`
	Candidates   []CandidateResult `json:"candidates"`
	LastUpdated  *time.Time        `json:"lastUpdated"`
}

// VoteCast is published after a vote committed.
type VoteCast struct {
	UserID        string    `json:"userId"`
	CategoryID    string    `json:"categoryId"`
	CandidateID   string    `json:"candidateId"`
	CandidateName string    `json:"candidateName"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Percentage returns votes as a share of voters rounded to two decimals, or
// zero when nobody voted.
func Percentage(votes, totalVoters int64) float64 {
	if totalVoters <= 0 {
		return 0
	}
	return math.Round(float64(votes)/float64(totalVoters)*100*100) / 100
}

// UserVoteRef addresses the vote of userID in categoryID.
func UserVoteRef(userID, categoryID string) document.Ref {
	return participant.Ref(userID).Sub("votes", categoryID)
}

// UserVotesCollection is the collection path holding all votes of userID.
func UserVotesCollection(userID string) string {
	return participant.Ref(userID).Path() + "/votes"
}

// ProgressRef addresses the progress record of userID.
func ProgressRef(userID string) document.Ref {
	return participant.Ref(userID).Sub("voting", progressDocID)
}

// SummaryRef addresses the tally of categoryID.
func SummaryRef(categoryID string) document.Ref {
	return document.Doc(SummaryCollection, categoryID)
}
