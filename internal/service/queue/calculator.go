// internal/service/queue/calculator.go
package queue

import (
	"sort"

	"queueline-service/internal/domain/queue"
)

// FallbackServiceTime is used when neither the entry nor its business carries a service time.
const FallbackServiceTime = 25

// OrderActive sorts active entries into queue order: approval time ascending,
// ties broken by id. Entry ids are ULIDs, so id order is submission order,
// not approval order: two approvals stamped with the same instant (postgres
// keeps microseconds) line up in the order the customers joined. Approval
// times are never rewritten, so the order stays stable across recomputes.
func OrderActive(entries []queue.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].ApprovedAt, entries[j].ApprovedAt
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return entries[i].ID < entries[j].ID
	})
}

// Recompute assigns 1-based positions and cumulative waits to an already
// ordered active list. It has no side effects and is O(n).
func Recompute(active []queue.Entry, defaultServiceTime int) []queue.Placement {
	if defaultServiceTime <= 0 {
		defaultServiceTime = FallbackServiceTime
	}

	placements := make([]queue.Placement, 0, len(active))
	wait := 0
	for i, e := range active {
		placements = append(placements, queue.Placement{
			EntryID:       e.ID,
			Position:      i + 1,
			EstimatedWait: wait,
		})
		wait += serviceTimeOf(e, defaultServiceTime)
	}
	return placements
}

// TotalServiceTime is the wait a newly approved entry would get at the back of the queue.
func TotalServiceTime(active []queue.Entry, defaultServiceTime int) int {
	if defaultServiceTime <= 0 {
		defaultServiceTime = FallbackServiceTime
	}
	total := 0
	for _, e := range active {
		total += serviceTimeOf(e, defaultServiceTime)
	}
	return total
}

func serviceTimeOf(e queue.Entry, fallback int) int {
	if e.EstimatedServiceTime > 0 {
		return e.EstimatedServiceTime
	}
	return fallback
}
