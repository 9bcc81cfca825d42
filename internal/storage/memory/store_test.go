package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

func TestSetGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	ref := document.Doc("candidates", "c1")

	snap, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	require.NoError(t, s.Set(ctx, ref, document.Fields{"name": "Ada", "totalVotes": 0}))
	require.NoError(t, s.Update(ctx, ref, document.Fields{"totalVotes": document.Increment(1)}))

	snap, err = s.Get(ctx, ref)
	require.NoError(t, err)
	require.True(t, snap.Exists())
	assert.Equal(t, int64(1), snap.Fields["totalVotes"])
	assert.Positive(t, snap.Version)

	require.NoError(t, s.Delete(ctx, ref))
	snap, err = s.Get(ctx, ref)
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestUpdateMissingDocumentFails(t *testing.T) {
	err := New().Update(context.Background(), document.Doc("candidates", "nope"), document.Fields{"totalVotes": document.Increment(1)})
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestReadAfterWriteIsRejected(t *testing.T) {
	s := New()
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx document.Tx) error {
		if err := tx.Set(document.Doc("a", "1"), document.Fields{"x": 1}); err != nil {
			return err
		}
		_, err := tx.Get(document.Doc("a", "2"))
		return err
	})
	assert.ErrorIs(t, err, document.ErrReadAfterWrite)

	count, _ := s.Count(context.Background(), "a")
	assert.Zero(t, count)
}

func TestTransactionBodyErrorDiscardsWrites(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx document.Tx) error {
		_ = tx.Set(document.Doc("a", "1"), document.Fields{"x": 1})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, _ := s.Get(context.Background(), document.Doc("a", "1"))
	assert.False(t, snap.Exists())
}

func TestFailedCommitLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, document.Doc("a", "1"), document.Fields{"n": 1}))

	// The second write targets a missing document, so the whole commit fails.
	err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		if err := tx.Update(document.Doc("a", "1"), document.Fields{"n": document.Increment(1)}); err != nil {
			return err
		}
		return tx.Update(document.Doc("a", "missing"), document.Fields{"n": 1})
	})
	assert.ErrorIs(t, err, document.ErrNotFound)

	snap, _ := s.Get(ctx, document.Doc("a", "1"))
	assert.Equal(t, int64(1), snap.Fields["n"])
}

func TestConflictingTransactionIsRetried(t *testing.T) {
	ctx := context.Background()
	s := New(WithBackoff(0))
	ref := document.Doc("counters", "c")
	require.NoError(t, s.Set(ctx, ref, document.Fields{"n": 0}))

	attempts := 0
	err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		attempts++
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// A concurrent writer commits between our read and our commit.
			require.NoError(t, s.Set(ctx, ref, document.Fields{"n": 10}))
		}
		n := snap.Fields["n"].(int64)
		return tx.Set(ref, document.Fields{"n": n + 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	snap, _ := s.Get(ctx, ref)
	assert.Equal(t, int64(11), snap.Fields["n"])
}

func TestContentionExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	s := New(WithMaxAttempts(3), WithBackoff(0))
	ref := document.Doc("counters", "c")

	attempts := 0
	err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
		attempts++
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		require.NoError(t, s.Set(ctx, ref, document.Fields{"n": attempts}))
		return tx.Set(ref, document.Fields{"n": -1})
	})
	assert.ErrorIs(t, err, document.ErrTooMuchContention)
	assert.Equal(t, 3, attempts)
}

func TestConcurrentReadModifyWriteLosesNoUpdates(t *testing.T) {
	ctx := context.Background()
	s := New(WithMaxAttempts(1000), WithBackoff(0))
	ref := document.Doc("counters", "c")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTransaction(ctx, func(ctx context.Context, tx document.Tx) error {
				snap, err := tx.Get(ref)
				if err != nil {
					return err
				}
				var n int64
				if snap.Exists() {
					n = snap.Fields["n"].(int64)
				}
				return tx.Set(ref, document.Fields{"n": n + 1})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, _ := s.Get(ctx, ref)
	assert.Equal(t, int64(20), snap.Fields["n"])
}

func TestFaultInjectorAbortsTransaction(t *testing.T) {
	injected := errors.New("injected")
	s := New(WithFaultInjector(func(op Op) error {
		if op.Kind == OpUpdate {
			return injected
		}
		return nil
	}))

	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx document.Tx) error {
		if err := tx.Set(document.Doc("a", "1"), document.Fields{"x": 1}); err != nil {
			return err
		}
		return tx.Update(document.Doc("a", "1"), document.Fields{"x": 2})
	})
	assert.ErrorIs(t, err, injected)

	count, _ := s.Count(context.Background(), "a")
	assert.Zero(t, count)
}

func TestQueryFiltersOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, document.Doc("candidates", "a"), document.Fields{"categoryId": "x", "order": 3}))
	require.NoError(t, s.Set(ctx, document.Doc("candidates", "b"), document.Fields{"categoryId": "x", "order": 1}))
	require.NoError(t, s.Set(ctx, document.Doc("candidates", "c"), document.Fields{"categoryId": "y", "order": 2}))
	require.NoError(t, s.Set(ctx, document.Doc("candidates", "d"), document.Fields{"categoryId": "x", "order": 2}))

	got, err := s.Query(ctx, "candidates", document.Query{
		Filters: []document.Filter{document.Where("categoryId", "x")},
		OrderBy: "order",
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Ref.ID)
	assert.Equal(t, "d", got[1].Ref.ID)
	assert.Equal(t, "a", got[2].Ref.ID)

	got, err = s.Query(ctx, "candidates", document.Query{OrderBy: "order", Desc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Ref.ID)

	n, err := s.Count(ctx, "candidates")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestServerTimestampUsesClock(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))

	ref := document.Doc("settings", "voting")
	require.NoError(t, s.Set(ctx, ref, document.Fields{"openedAt": document.ServerTimestamp}))

	snap, _ := s.Get(ctx, ref)
	assert.Equal(t, fixed, snap.Fields["openedAt"])
	assert.Equal(t, fixed, snap.UpdateTime)
}

func TestGetAll(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, document.Doc("users/u1/voting", "progress"), document.Fields{"totalVotes": 1}))

	snaps, err := s.GetAll(ctx, []document.Ref{
		document.Doc("users/u1/voting", "progress"),
		document.Doc("users/u2/voting", "progress"),
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Exists())
	assert.False(t, snaps[1].Exists())
}
