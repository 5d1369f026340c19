// internal/repository/memory/queue_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"queueline-service/internal/domain/queue"
	xerrors "queueline-service/internal/pkg/errors"
)

// Compile-time check that QueueRepository implements queue.Registry.
var _ queue.Registry = (*QueueRepository)(nil)

// QueueRepository is an in-memory queue.Registry.
// All reads return copies so callers never share state with the store.
type QueueRepository struct {
	mu         sync.RWMutex
	entries    map[string]*queue.Entry
	byBusiness map[string]map[string]struct{}

	// per-business locks held for the length of WithinBusiness
	scopeMu sync.Mutex
	scopes  map[string]*sync.Mutex
}

func NewQueueRepository() *QueueRepository {
	return &QueueRepository{
		entries:    make(map[string]*queue.Entry),
		byBusiness: make(map[string]map[string]struct{}),
		scopes:     make(map[string]*sync.Mutex),
	}
}

func (r *QueueRepository) Get(_ context.Context, id string) (*queue.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("queue entry %s: %w", id, xerrors.ErrNotFound)
	}
	out := e.Clone()
	return &out, nil
}

func (r *QueueRepository) GetActiveByBusiness(_ context.Context, businessID string) ([]queue.Entry, error) {
	active := r.collect(businessID, func(e *queue.Entry) bool { return e.Status.IsActive() })
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Position != active[j].Position {
			return active[i].Position < active[j].Position
		}
		return active[i].ID < active[j].ID
	})
	return active, nil
}

func (r *QueueRepository) GetPendingByBusiness(_ context.Context, businessID string) ([]queue.Entry, error) {
	pending := r.collect(businessID, func(e *queue.Entry) bool { return e.Status == queue.StatusPending })
	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].JoinedAt.Equal(pending[j].JoinedAt) {
			return pending[i].JoinedAt.Before(pending[j].JoinedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}

func (r *QueueRepository) Insert(_ context.Context, entry *queue.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("queue entry %s: %w", entry.ID, xerrors.ErrDuplicateEntry)
	}

	stored := entry.Clone()
	r.entries[entry.ID] = &stored

	ids, ok := r.byBusiness[entry.BusinessID]
	if !ok {
		ids = make(map[string]struct{})
		r.byBusiness[entry.BusinessID] = ids
	}
	ids[entry.ID] = struct{}{}
	return nil
}

func (r *QueueRepository) Update(_ context.Context, id string, upd queue.EntryUpdate) (*queue.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("queue entry %s: %w", id, xerrors.ErrNotFound)
	}

	applyUpdate(e, upd)
	out := e.Clone()
	return &out, nil
}

func (r *QueueRepository) ApplyPlacements(_ context.Context, businessID string, placements []queue.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Validate first so a bad batch leaves the store untouched.
	for _, p := range placements {
		e, ok := r.entries[p.EntryID]
		if !ok || e.BusinessID != businessID {
			return fmt.Errorf("placement for entry %s: %w", p.EntryID, xerrors.ErrNotFound)
		}
	}
	for _, p := range placements {
		e := r.entries[p.EntryID]
		wait := p.EstimatedWait
		e.Position = p.Position
		e.EstimatedWait = &wait
	}
	return nil
}

func (r *QueueRepository) Remove(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false, nil
	}
	delete(r.entries, id)
	if ids, ok := r.byBusiness[e.BusinessID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byBusiness, e.BusinessID)
		}
	}
	return true, nil
}

func (r *QueueRepository) CountServedSince(_ context.Context, businessID string, since time.Time) (int, error) {
	served := r.collect(businessID, func(e *queue.Entry) bool {
		return e.Status == queue.StatusServed && e.ServedAt != nil && !e.ServedAt.Before(since)
	})
	return len(served), nil
}

func (r *QueueRepository) ListPendingJoinedBefore(_ context.Context, cutoff time.Time) ([]queue.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []queue.Entry
	for _, e := range r.entries {
		if e.Status == queue.StatusPending && e.JoinedAt.Before(cutoff) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// WithinBusiness serializes fn per business. When fn fails every entry of the
// business is put back the way it was before fn ran.
func (r *QueueRepository) WithinBusiness(ctx context.Context, businessID string, fn func(ctx context.Context, reg queue.Registry) error) error {
	unlock := r.lockScope(businessID)
	defer unlock()

	saved := r.saveBusiness(businessID)
	if err := fn(ctx, r); err != nil {
		r.restoreBusiness(businessID, saved)
		return err
	}
	return nil
}

func (r *QueueRepository) lockScope(businessID string) func() {
	r.scopeMu.Lock()
	m, ok := r.scopes[businessID]
	if !ok {
		m = &sync.Mutex{}
		r.scopes[businessID] = m
	}
	r.scopeMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (r *QueueRepository) saveBusiness(businessID string) []queue.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	saved := make([]queue.Entry, 0, len(r.byBusiness[businessID]))
	for id := range r.byBusiness[businessID] {
		saved = append(saved, r.entries[id].Clone())
	}
	return saved
}

func (r *QueueRepository) restoreBusiness(businessID string, saved []queue.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.byBusiness[businessID] {
		delete(r.entries, id)
	}
	delete(r.byBusiness, businessID)
	if len(saved) == 0 {
		return
	}

	ids := make(map[string]struct{}, len(saved))
	for _, e := range saved {
		stored := e.Clone()
		r.entries[e.ID] = &stored
		ids[e.ID] = struct{}{}
	}
	r.byBusiness[businessID] = ids
}

func (r *QueueRepository) collect(businessID string, keep func(*queue.Entry) bool) []queue.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []queue.Entry{}
	for id := range r.byBusiness[businessID] {
		e := r.entries[id]
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func applyUpdate(e *queue.Entry, upd queue.EntryUpdate) {
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	if upd.Position != nil {
		e.Position = *upd.Position
	}
	if upd.ClearEstimatedWait {
		e.EstimatedWait = nil
	} else if upd.EstimatedWait != nil {
		w := *upd.EstimatedWait
		e.EstimatedWait = &w
	}
	if upd.EstimatedServiceTime != nil {
		e.EstimatedServiceTime = *upd.EstimatedServiceTime
	}
	if upd.ApprovedAt != nil {
		t := *upd.ApprovedAt
		e.ApprovedAt = &t
	}
	if upd.ServiceStartedAt != nil {
		t := *upd.ServiceStartedAt
		e.ServiceStartedAt = &t
	}
	if upd.ServedAt != nil {
		t := *upd.ServedAt
		e.ServedAt = &t
	}
}
