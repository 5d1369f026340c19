package memory

import (
	"context"
	"testing"
	"time"

	"queueline-service/internal/domain/queue"
	xerrors "queueline-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(id, businessID string, status queue.Status, joined time.Time) *queue.Entry {
	return &queue.Entry{
		ID:            id,
		BusinessID:    businessID,
		CustomerName:  "Customer " + id,
		CustomerPhone: "5551234567",
		Status:        status,
		JoinedAt:      joined,
	}
}

func TestQueueRepository_InsertAndGet(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, now)))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "biz", got.BusinessID)
	assert.Equal(t, queue.StatusPending, got.Status)
}

func TestQueueRepository_InsertDuplicate(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now())))
	err := repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now()))

	assert.ErrorIs(t, err, xerrors.ErrDuplicateEntry)
}

func TestQueueRepository_GetMissing(t *testing.T) {
	repo := NewQueueRepository()

	_, err := repo.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestQueueRepository_ReturnsCopies(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now())))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	got.Status = queue.StatusServed

	again, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, again.Status)
}

func TestQueueRepository_ActiveOrderedByPosition(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	now := time.Now()

	b := newEntry("b", "biz", queue.StatusApproved, now)
	b.Position = 2
	a := newEntry("a", "biz", queue.StatusInService, now)
	a.Position = 1
	p := newEntry("p", "biz", queue.StatusPending, now)
	other := newEntry("x", "other", queue.StatusApproved, now)

	for _, e := range []*queue.Entry{b, a, p, other} {
		require.NoError(t, repo.Insert(ctx, e))
	}

	active, err := repo.GetActiveByBusiness(ctx, "biz")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "b", active[1].ID)
}

func TestQueueRepository_PendingOrderedByJoinedAt(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Insert(ctx, newEntry("late", "biz", queue.StatusPending, now.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, newEntry("early", "biz", queue.StatusPending, now)))
	require.NoError(t, repo.Insert(ctx, newEntry("approved", "biz", queue.StatusApproved, now)))

	pending, err := repo.GetPendingByBusiness(ctx, "biz")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].ID)
	assert.Equal(t, "late", pending[1].ID)
}

func TestQueueRepository_UpdatePartial(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now())))

	status := queue.StatusApproved
	service := 20
	at := time.Now()
	got, err := repo.Update(ctx, "a", queue.EntryUpdate{Status: &status, EstimatedServiceTime: &service, ApprovedAt: &at})
	require.NoError(t, err)

	assert.Equal(t, queue.StatusApproved, got.Status)
	assert.Equal(t, 20, got.EstimatedServiceTime)
	require.NotNil(t, got.ApprovedAt)
	assert.Equal(t, "Customer a", got.CustomerName)

	_, err = repo.Update(ctx, "missing", queue.EntryUpdate{Status: &status})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestQueueRepository_UpdateClearsWait(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	e := newEntry("a", "biz", queue.StatusApproved, time.Now())
	wait := 10
	e.EstimatedWait = &wait
	require.NoError(t, repo.Insert(ctx, e))

	got, err := repo.Update(ctx, "a", queue.EntryUpdate{ClearEstimatedWait: true})
	require.NoError(t, err)
	assert.Nil(t, got.EstimatedWait)
}

func TestQueueRepository_ApplyPlacements(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusApproved, time.Now())))
	require.NoError(t, repo.Insert(ctx, newEntry("b", "biz", queue.StatusApproved, time.Now())))

	err := repo.ApplyPlacements(ctx, "biz", []queue.Placement{
		{EntryID: "a", Position: 1, EstimatedWait: 0},
		{EntryID: "b", Position: 2, EstimatedWait: 20},
	})
	require.NoError(t, err)

	b, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Position)
	require.NotNil(t, b.EstimatedWait)
	assert.Equal(t, 20, *b.EstimatedWait)
}

func TestQueueRepository_ApplyPlacementsRejectsForeignEntry(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusApproved, time.Now())))
	require.NoError(t, repo.Insert(ctx, newEntry("x", "other", queue.StatusApproved, time.Now())))

	err := repo.ApplyPlacements(ctx, "biz", []queue.Placement{
		{EntryID: "a", Position: 1},
		{EntryID: "x", Position: 2, EstimatedWait: 5},
	})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Position)
}

func TestQueueRepository_Remove(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now())))

	removed, err := repo.Remove(ctx, "a")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	removed, err = repo.Remove(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestQueueRepository_CountServedSince(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	midnight := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	before := midnight.Add(-time.Hour)
	after := midnight.Add(time.Hour)

	old := newEntry("old", "biz", queue.StatusServed, before)
	old.ServedAt = &before
	fresh := newEntry("fresh", "biz", queue.StatusServed, after)
	fresh.ServedAt = &after
	for _, e := range []*queue.Entry{old, fresh, newEntry("p", "biz", queue.StatusPending, after)} {
		require.NoError(t, repo.Insert(ctx, e))
	}

	count, err := repo.CountServedSince(ctx, "biz", midnight)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestQueueRepository_ListPendingJoinedBefore(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Insert(ctx, newEntry("stale", "biz", queue.StatusPending, now.Add(-2*time.Hour))))
	require.NoError(t, repo.Insert(ctx, newEntry("fresh", "biz", queue.StatusPending, now)))
	require.NoError(t, repo.Insert(ctx, newEntry("old-approved", "biz", queue.StatusApproved, now.Add(-3*time.Hour))))

	stale, err := repo.ListPendingJoinedBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "stale", stale[0].ID)
}

func TestQueueRepository_WithinBusinessCommits(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now())))

	err := repo.WithinBusiness(ctx, "biz", func(ctx context.Context, reg queue.Registry) error {
		approved := queue.StatusApproved
		if _, err := reg.Update(ctx, "a", queue.EntryUpdate{Status: &approved}); err != nil {
			return err
		}
		return reg.ApplyPlacements(ctx, "biz", []queue.Placement{{EntryID: "a", Position: 1, EstimatedWait: 0}})
	})
	require.NoError(t, err)

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusApproved, a.Status)
	assert.Equal(t, 1, a.Position)
}

func TestQueueRepository_WithinBusinessRollsBackOnError(t *testing.T) {
	repo := NewQueueRepository()
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, newEntry("a", "biz", queue.StatusPending, time.Now())))
	require.NoError(t, repo.Insert(ctx, newEntry("b", "biz", queue.StatusPending, time.Now())))
	require.NoError(t, repo.Insert(ctx, newEntry("other", "biz-2", queue.StatusPending, time.Now())))

	err := repo.WithinBusiness(ctx, "biz", func(ctx context.Context, reg queue.Registry) error {
		approved := queue.StatusApproved
		if _, err := reg.Update(ctx, "a", queue.EntryUpdate{Status: &approved}); err != nil {
			return err
		}
		if _, err := reg.Remove(ctx, "b"); err != nil {
			return err
		}
		if err := reg.Insert(ctx, newEntry("c", "biz", queue.StatusPending, time.Now())); err != nil {
			return err
		}
		return reg.ApplyPlacements(ctx, "biz", []queue.Placement{{EntryID: "missing", Position: 1}})
	})
	require.ErrorIs(t, err, xerrors.ErrNotFound)

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, a.Status)

	_, err = repo.Get(ctx, "b")
	assert.NoError(t, err)

	_, err = repo.Get(ctx, "c")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	pending, err := repo.GetPendingByBusiness(ctx, "biz")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = repo.Get(ctx, "other")
	assert.NoError(t, err)
}
