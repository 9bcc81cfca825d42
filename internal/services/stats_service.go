package services

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalCategories int     `json:"totalCategories"`
	TotalCandidates int     `json:"totalCandidates"`
	TotalUsers      int     `json:"totalUsers"`
	TotalVotes      int64   `json:"totalVotes"`
	CompletedUsers  int     `json:"completedUsers"`
	CompletionRate  float64 `json:"completionRate"`
	VotingOpen      bool    `json:"votingOpen"`
}

// VotingStatistics counts the users who started voting.
type VotingStatistics struct {
	TotalVoters      int     `json:"totalVoters"`
	CompletedVoters  int     `json:"completedVoters"`
	InProgressVoters int     `json:"inProgressVoters"`
	TotalCategories  int     `json:"totalCategories"`
	CompletionRate   float64 `json:"completionRate"`
}

// StatsService aggregates progress records for the admin pages.
type StatsService struct {
	repos *repository.Container
	log   *log.Logger
}

// NewStatsService creates the service.
func NewStatsService(repos *repository.Container) *StatsService {
	return &StatsService{repos: repos, log: logger.Service("stats")}
}

// AdminStats counts the catalog, the signed in users and the votes cast.
func (s *StatsService) AdminStats(ctx context.Context) (*AdminStats, error) {
	categories, err := s.repos.Categories().Count(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repos.Candidates().List(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := s.progressByUser(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.repos.Settings().Get(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AdminStats{
		TotalCategories: categories,
		TotalCandidates: len(candidates),
		TotalUsers:      len(progress),
		VotingOpen:      current.IsOpen,
	}
	for _, c := range candidates {
		stats.TotalVotes += c.TotalVotes
	}
	for _, p := range progress {
		if p != nil && p.IsComplete {
			stats.CompletedUsers++
		}
	}
	stats.CompletionRate = rate(stats.CompletedUsers, stats.TotalUsers)
	return stats, nil
}

// VotingStatistics counts users with at least one vote and those who finished.
func (s *StatsService) VotingStatistics(ctx context.Context) (*VotingStatistics, error) {
	progress, err := s.progressByUser(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.repos.Categories().Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &VotingStatistics{TotalCategories: categories}
	for _, p := range progress {
		if p == nil || p.TotalVotes == 0 {
			continue
		}
		stats.TotalVoters++
		if p.IsComplete {
			stats.CompletedVoters++
		}
	}
	stats.InProgressVoters = stats.TotalVoters - stats.CompletedVoters
	stats.CompletionRate = rate(stats.CompletedVoters, stats.TotalVoters)
	return stats, nil
}

// progressByUser maps every known user to their progress, nil when they never
// opened the ballot.
func (s *StatsService) progressByUser(ctx context.Context) (map[string]*vote.VotingProgress, error) {
	ids, err := s.repos.Users().ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]document.Ref, len(ids))
	for i, id := range ids {
		refs[i] = vote.ProgressRef(id)
	}
	snaps, err := s.repos.Store().GetAll(ctx, refs)
	if err != nil {
		s.log.Error("Failed to read progress records", "users", len(ids), "error", err)
		return nil, fmt.Errorf("failed to read progress records: %w", err)
	}

	out := make(map[string]*vote.VotingProgress, len(ids))
	for i, snap := range snaps {
		if !snap.Exists() {
			out[ids[i]] = nil
			continue
		}
		var p vote.VotingProgress
		if err := snap.DataTo(&p); err != nil {
			return nil, err
		}
		out[ids[i]] = &p
	}
	return out, nil
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
