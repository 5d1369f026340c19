// internal/domain/queue/repository.go
package queue

import (
	"context"
	"time"
)

// EntryUpdate is a partial update; nil fields are left untouched.
type EntryUpdate struct {
	Status               *Status
	Position             *int
	EstimatedWait        *int
	ClearEstimatedWait   bool
	EstimatedServiceTime *int
	ApprovedAt           *time.Time
	ServiceStartedAt     *time.Time
	ServedAt             *time.Time
}

// Registry stores queue entries keyed by id with a secondary index by business.
// It never recomputes ordering or emits events.
type Registry interface {
	// Get returns xerrors.ErrNotFound when the id is unknown.
	Get(ctx context.Context, id string) (*Entry, error)
	// GetActiveByBusiness returns approved and in_service entries ordered by position.
	GetActiveByBusiness(ctx context.Context, businessID string) ([]Entry, error)
	// GetPendingByBusiness returns pending entries ordered by joinedAt.
	GetPendingByBusiness(ctx context.Context, businessID string) ([]Entry, error)
	// Insert returns xerrors.ErrDuplicateEntry when the id already exists.
	Insert(ctx context.Context, entry *Entry) error
	// Update returns xerrors.ErrNotFound when the id is unknown.
	Update(ctx context.Context, id string, upd EntryUpdate) (*Entry, error)
	// ApplyPlacements writes positions and waits for a business in one step.
	ApplyPlacements(ctx context.Context, businessID string, placements []Placement) error
	// Remove deletes the entry and reports whether it existed.
	Remove(ctx context.Context, id string) (bool, error)

	CountServedSince(ctx context.Context, businessID string, since time.Time) (int, error)
	ListPendingJoinedBefore(ctx context.Context, cutoff time.Time) ([]Entry, error)

	// WithinBusiness runs fn against a Registry whose writes are applied
	// together or not at all. Calls for the same business never interleave,
	// including across processes sharing one database.
	WithinBusiness(ctx context.Context, businessID string, fn func(ctx context.Context, reg Registry) error) error
}
