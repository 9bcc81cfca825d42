// Package services holds the use cases behind the HTTP handlers.
package services

import (
	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/domain/vote"
	"github.com/gravadigital/campus-awards-api/internal/storage/photos"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

// Services groups every use case over one set of repositories.
type Services struct {
	Categories *CategoryService
	Candidates *CandidateService
	Settings   *SettingsService
	Stats      *StatsService
	Users      *UserService
	Voting     *vote.VotingService
}

// Options carries the optional collaborators.
type Options struct {
	Photos    photos.Store
	Publisher vote.Publisher
	Policy    *participant.Policy
}

// New wires the services.
func New(repos *repository.Container, opts Options) *Services {
	policy := opts.Policy
	if policy == nil {
		policy = participant.NewPolicy(nil, nil)
	}
	return &Services{
		Categories: NewCategoryService(repos.Categories(), repos.Candidates()),
		Candidates: NewCandidateService(repos.Categories(), repos.Candidates(), opts.Photos),
		Settings:   NewSettingsService(repos.Settings()),
		Stats:      NewStatsService(repos),
		Users:      NewUserService(repos.Users(), policy),
		Voting:     vote.NewVotingService(repos.Store(), repos.Catalog(), opts.Publisher),
	}
}
