package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campus-awards-api/internal/domain/category"
	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/domain/settings"
	"github.com/gravadigital/campus-awards-api/internal/storage/document"
	"github.com/gravadigital/campus-awards-api/internal/storage/memory"
)

func TestCategoryRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewContainer(memory.New()).Categories()

	second := category.NewCategory("Best Mentor", 2, "")
	first := category.NewCategory("Leadership", 1, "Leads by example")
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "Leads by example", list[0].Description)
	assert.False(t, list[0].CreatedAt.IsZero())

	found, err := repo.FindByOrder(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, second.ID, found.ID)

	missing, err := repo.FindByOrder(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)

	first.Name = "Leadership Award"
	require.NoError(t, repo.Update(ctx, first))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leadership Award", got.Name)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, category.ErrNotFound)

	err = repo.Update(ctx, first)
	assert.ErrorIs(t, err, category.ErrNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCandidateRepositoryNeverWritesVoteCounter(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewCandidateRepository(store)

	c := category.NewCandidate("cat-1", "Ada", "", "", 1)
	c.TotalVotes = 99
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalVotes)

	require.NoError(t, store.Update(ctx, c.Ref(), document.Fields{"totalVotes": document.Increment(4)}))

	got.Name = "Ada Lovelace"
	got.TotalVotes = 0
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, int64(4), got.TotalVotes)

	require.NoError(t, repo.SetPhoto(ctx, c.ID, "https://cdn/photo.jpg"))
	got, _ = repo.GetByID(ctx, c.ID)
	assert.Equal(t, "https://cdn/photo.jpg", got.Photo)

	assert.ErrorIs(t, repo.SetPhoto(ctx, "nope", "x"), category.ErrCandidateNotFound)
}

func TestCandidateRepositoryListsByCategoryInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepository(memory.New())

	require.NoError(t, repo.Create(ctx, category.NewCandidate("cat-1", "Third", "", "", 3)))
	require.NoError(t, repo.Create(ctx, category.NewCandidate("cat-1", "First", "", "", 1)))
	require.NoError(t, repo.Create(ctx, category.NewCandidate("cat-2", "Other", "", "", 1)))

	list, err := repo.ListByCategory(ctx, "cat-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Name)
	assert.Equal(t, "Third", list[1].Name)

	n, err := repo.CountByCategory(ctx, "cat-2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSettingsRepositoryDefaultsAndToggles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewSettingsRepository(store)

	s, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsOpen)
	assert.Equal(t, settings.DefaultClosedMessage, s.ClosedMessage)

	snap, err := store.Get(ctx, settings.Ref())
	require.NoError(t, err)
	assert.True(t, snap.Exists(), "defaults are persisted on first read")

	require.NoError(t, repo.Open(ctx))
	s, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.IsOpen)
	require.NotNil(t, s.OpenedAt)

	require.NoError(t, repo.Close(ctx, "See you next year"))
	require.NoError(t, repo.SetAnnouncement(ctx, "Results on Friday"))
	s, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsOpen)
	assert.NotNil(t, s.ClosedAt)
	assert.Equal(t, "See you next year", s.ClosedMessage)
	assert.Equal(t, "Results on Friday", s.AnnouncementMessage)
}

func TestSettingsRepositoryOpenWithoutDocument(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(memory.New())

	require.NoError(t, repo.Open(ctx))
	s, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.IsOpen)
	assert.Equal(t, settings.DefaultClosedMessage, s.ClosedMessage)
}

func TestUserRepositoryTouch(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(memory.New())
	id := participant.Identity{UserID: "u1", Email: "Stu@karunya.edu", DisplayName: "Stu"}

	u, err := repo.Touch(ctx, id, participant.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "stu@karunya.edu", u.Email)

	first, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)

	id.DisplayName = "Stu Dent"
	u, err = repo.Touch(ctx, id, participant.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Stu Dent", u.DisplayName)
	assert.True(t, u.IsAdmin())

	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)
	assert.Equal(t, "Stu Dent", again.DisplayName)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)

	_, err = repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestContainerHealth(t *testing.T) {
	c := NewContainer(memory.New())
	assert.NoError(t, c.Health(context.Background()))
	assert.NotNil(t, c.Catalog())
	assert.NoError(t, c.Close())
}
