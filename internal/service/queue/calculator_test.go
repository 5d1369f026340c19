package queue

import (
	"testing"
	"time"

	"queueline-service/internal/domain/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedAt(id string, at time.Time, service int) queue.Entry {
	return queue.Entry{
		ID:                   id,
		BusinessID:           "biz",
		Status:               queue.StatusApproved,
		ApprovedAt:           &at,
		EstimatedServiceTime: service,
	}
}

func TestRecompute_Empty(t *testing.T) {
	assert.Empty(t, Recompute(nil, 25))
}

func TestRecompute_SingleEntry(t *testing.T) {
	now := time.Now()
	placements := Recompute([]queue.Entry{approvedAt("a", now, 20)}, 25)

	require.Len(t, placements, 1)
	assert.Equal(t, queue.Placement{EntryID: "a", Position: 1, EstimatedWait: 0}, placements[0])
}

func TestRecompute_CumulativeWaits(t *testing.T) {
	now := time.Now()
	active := []queue.Entry{
		approvedAt("a", now, 20),
		approvedAt("b", now.Add(time.Minute), 30),
		approvedAt("c", now.Add(2*time.Minute), 0),
		approvedAt("d", now.Add(3*time.Minute), 10),
	}

	placements := Recompute(active, 15)

	require.Len(t, placements, 4)
	for i, p := range placements {
		assert.Equal(t, i+1, p.Position)
		assert.Equal(t, active[i].ID, p.EntryID)
	}
	assert.Equal(t, 0, placements[0].EstimatedWait)
	assert.Equal(t, 20, placements[1].EstimatedWait)
	assert.Equal(t, 50, placements[2].EstimatedWait)
	// c has no service time of its own and contributes the default
	assert.Equal(t, 65, placements[3].EstimatedWait)
}

func TestRecompute_NonPositiveDefault(t *testing.T) {
	now := time.Now()
	active := []queue.Entry{
		approvedAt("a", now, 0),
		approvedAt("b", now.Add(time.Second), 0),
	}

	placements := Recompute(active, 0)

	assert.Equal(t, FallbackServiceTime, placements[1].EstimatedWait)
}

func TestOrderActive_ByApprovalTime(t *testing.T) {
	now := time.Now()
	entries := []queue.Entry{
		approvedAt("c", now.Add(2*time.Minute), 10),
		approvedAt("a", now, 10),
		approvedAt("b", now.Add(time.Minute), 10),
	}

	OrderActive(entries)

	assert.Equal(t, []string{"a", "b", "c"}, ids(entries))
}

func TestOrderActive_TiesByID(t *testing.T) {
	now := time.Now()
	entries := []queue.Entry{
		approvedAt("02", now, 10),
		approvedAt("01", now, 10),
		{ID: "00", Status: queue.StatusApproved},
	}

	OrderActive(entries)

	// missing approval time sorts last
	assert.Equal(t, []string{"01", "02", "00"}, ids(entries))
}

func TestRecompute_Idempotent(t *testing.T) {
	now := time.Now()
	active := []queue.Entry{
		approvedAt("a", now, 20),
		approvedAt("b", now.Add(time.Minute), 30),
	}

	first := Recompute(active, 25)
	for i, p := range first {
		wait := p.EstimatedWait
		active[i].Position = p.Position
		active[i].EstimatedWait = &wait
	}
	second := Recompute(active, 25)

	assert.Equal(t, first, second)
}

func TestTotalServiceTime(t *testing.T) {
	now := time.Now()
	active := []queue.Entry{
		approvedAt("a", now, 20),
		approvedAt("b", now, 0),
	}

	assert.Equal(t, 45, TotalServiceTime(active, 25))
	assert.Equal(t, 0, TotalServiceTime(nil, 25))
}

func ids(entries []queue.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
