// internal/domain/queue/events.go
package queue

import "time"

type EventType string

const (
	EventEntryCreated        EventType = "entry_created"
	EventEntryApproved       EventType = "entry_approved"
	EventEntryServiceStarted EventType = "entry_service_started"
	EventEntryServed         EventType = "entry_served"
	EventEntryRemoved        EventType = "entry_removed"
)

// LifecycleEvent is published after a transition has been committed and the
// business queue recomputed. Snapshot reflects the state right after the mutation.
type LifecycleEvent struct {
	Type       EventType `json:"type"`
	Entry      Entry     `json:"entry"`
	Snapshot   Snapshot  `json:"snapshot"`
	OccurredAt time.Time `json:"occurredAt"`
}
