// internal/service/queue/service.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"queueline-service/internal/domain/business"
	"queueline-service/internal/domain/queue"
	"queueline-service/internal/metrics"
	xerrors "queueline-service/internal/pkg/errors"
	"queueline-service/internal/service/events"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const minPhoneDigits = 10

// ErrServiceSlotBusy is returned by StartService while another entry of the
// same business is already in service.
var ErrServiceSlotBusy = fmt.Errorf("%w: another customer is already in service", xerrors.ErrInvalidTransition)

// QueueService is the lifecycle controller. It is the only writer of entry
// state: every mutation runs under the business lock, recomputes the full
// active list and publishes one lifecycle event before returning.
type QueueService struct {
	registry  queue.Registry
	directory business.Directory
	publisher events.Publisher
	locks     *businessLocks
	logger    *zap.Logger

	now                func() time.Time
	newID              func() string
	defaultServiceTime int
}

type Option func(*QueueService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *QueueService) { s.now = now }
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *QueueService) { s.newID = newID }
}

// WithDefaultServiceTime sets the minutes used when a business record is
// missing or carries no average service time.
func WithDefaultServiceTime(minutes int) Option {
	return func(s *QueueService) {
		if minutes > 0 {
			s.defaultServiceTime = minutes
		}
	}
}

func NewQueueService(
	registry queue.Registry,
	directory business.Directory,
	publisher events.Publisher,
	logger *zap.Logger,
	opts ...Option,
) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QueueService{
		registry:           registry,
		directory:          directory,
		publisher:          publisher,
		locks:              newBusinessLocks(),
		logger:             logger,
		now:                time.Now,
		newID:              func() string { return ulid.Make().String() },
		defaultServiceTime: FallbackServiceTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ========== Lifecycle operations ==========

// Submit adds a pending entry. Other entries are not affected.
func (s *QueueService) Submit(ctx context.Context, req *queue.SubmitRequest) (entry *queue.Entry, err error) {
	defer func() { metrics.TrackQueueOperation("submit", err) }()

	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	biz, err := s.directory.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	if !biz.IsActive {
		return nil, xerrors.Validation("business %s is not accepting customers", biz.ID)
	}

	unlock := s.locks.Lock(biz.ID)
	defer unlock()

	e := &queue.Entry{
		ID:            s.newID(),
		BusinessID:    biz.ID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		ServiceType:   trimOptional(req.ServiceType),
		Notes:         trimOptional(req.Notes),
		Status:        queue.StatusPending,
		JoinedAt:      s.now(),
	}

	var snap queue.Snapshot
	err = s.registry.WithinBusiness(ctx, biz.ID, func(ctx context.Context, reg queue.Registry) error {
		if err := reg.Insert(ctx, e); err != nil {
			s.logger.Error("failed to insert queue entry", zap.Error(err), zap.String("business_id", biz.ID))
			return fmt.Errorf("failed to insert queue entry: %w", err)
		}
		var err error
		snap, err = s.snapshot(ctx, reg, biz.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("queue entry submitted",
		zap.String("entry_id", e.ID),
		zap.String("business_id", biz.ID),
		zap.Int("pending", len(snap.Pending)),
	)

	s.publish(queue.EventEntryCreated, *e, snap)
	return e, nil
}

// Approve moves a pending entry to the back of the active queue.
// Approval order, not submission order, decides queue order.
func (s *QueueService) Approve(ctx context.Context, id string, estimatedServiceTime *int) (entry *queue.Entry, err error) {
	defer func() { metrics.TrackQueueOperation("approve", err) }()

	if estimatedServiceTime != nil && *estimatedServiceTime <= 0 {
		return nil, xerrors.Validation("estimatedServiceTime must be positive")
	}

	return s.transition(ctx, id, queue.ActionApprove, queue.EventEntryApproved,
		func(ctx context.Context, _ queue.Registry, current *queue.Entry, now time.Time) (queue.EntryUpdate, error) {
			service := s.serviceTimeFor(ctx, current.BusinessID)
			if estimatedServiceTime != nil {
				service = *estimatedServiceTime
			}
			status := queue.StatusApproved
			return queue.EntryUpdate{
				Status:               &status,
				ApprovedAt:           &now,
				EstimatedServiceTime: &service,
			}, nil
		})
}

// StartService marks an approved entry as being served. Its position is kept
// and it still counts toward the wait of everyone behind it.
func (s *QueueService) StartService(ctx context.Context, id string) (entry *queue.Entry, err error) {
	defer func() { metrics.TrackQueueOperation("start_service", err) }()

	return s.transition(ctx, id, queue.ActionStartService, queue.EventEntryServiceStarted,
		func(ctx context.Context, reg queue.Registry, current *queue.Entry, now time.Time) (queue.EntryUpdate, error) {
			active, err := reg.GetActiveByBusiness(ctx, current.BusinessID)
			if err != nil {
				return queue.EntryUpdate{}, fmt.Errorf("failed to load active queue: %w", err)
			}
			for _, other := range active {
				if other.Status == queue.StatusInService && other.ID != current.ID {
					return queue.EntryUpdate{}, ErrServiceSlotBusy
				}
			}
			status := queue.StatusInService
			return queue.EntryUpdate{Status: &status, ServiceStartedAt: &now}, nil
		})
}

// Complete marks an in-service entry as served; everyone behind moves up.
func (s *QueueService) Complete(ctx context.Context, id string) (entry *queue.Entry, err error) {
	defer func() { metrics.TrackQueueOperation("complete", err) }()

	return s.transition(ctx, id, queue.ActionComplete, queue.EventEntryServed,
		func(_ context.Context, _ queue.Registry, _ *queue.Entry, now time.Time) (queue.EntryUpdate, error) {
			status := queue.StatusServed
			zero := 0
			return queue.EntryUpdate{
				Status:             &status,
				ServedAt:           &now,
				Position:           &zero,
				ClearEstimatedWait: true,
			}, nil
		})
}

// Remove deletes a non-terminal entry from the registry.
func (s *QueueService) Remove(ctx context.Context, id string) (removed bool, err error) {
	defer func() { metrics.TrackQueueOperation("remove", err) }()
	return s.remove(ctx, id, nil)
}

// expirePending removes the entry only while it is still pending and joined
// before cutoff. It reports false when the entry no longer qualifies.
func (s *QueueService) expirePending(ctx context.Context, id string, cutoff time.Time) (removed bool, err error) {
	defer func() { metrics.TrackQueueOperation("expire", err) }()
	return s.remove(ctx, id, func(e *queue.Entry) bool {
		return e.Status == queue.StatusPending && e.JoinedAt.Before(cutoff)
	})
}

// remove deletes id when keep is nil or accepts the entry as read under the
// business lock.
func (s *QueueService) remove(ctx context.Context, id string, keep func(*queue.Entry) bool) (bool, error) {
	current, err := s.registry.Get(ctx, id)
	if err != nil {
		return false, err
	}

	unlock := s.locks.Lock(current.BusinessID)
	defer unlock()

	var (
		snap    queue.Snapshot
		skipped bool
	)
	err = s.registry.WithinBusiness(ctx, current.BusinessID, func(ctx context.Context, reg queue.Registry) error {
		// Re-read under the lock: another operation may have won the race.
		var err error
		current, err = reg.Get(ctx, id)
		if err != nil {
			return err
		}
		if keep != nil && !keep(current) {
			skipped = true
			return nil
		}
		if !queue.CanApply(queue.ActionRemove, current.Status) {
			return invalidTransition(queue.ActionRemove, current.Status)
		}

		ok, err := reg.Remove(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to remove queue entry: %w", err)
		}
		if !ok {
			return fmt.Errorf("queue entry %s: %w", id, xerrors.ErrNotFound)
		}

		if current.Status.IsActive() {
			snap, err = s.recompute(ctx, reg, current.BusinessID)
		} else {
			snap, err = s.snapshot(ctx, reg, current.BusinessID)
		}
		return err
	})
	if err != nil {
		return false, err
	}
	if skipped {
		return false, nil
	}

	final := current.Clone()
	final.Status = queue.StatusRemoved
	final.Position = 0
	final.EstimatedWait = nil

	s.logger.Info("queue entry removed",
		zap.String("entry_id", id),
		zap.String("business_id", current.BusinessID),
		zap.String("previous_status", string(current.Status)),
	)

	s.publish(queue.EventEntryRemoved, final, snap)
	return true, nil
}

type updateBuilder func(ctx context.Context, reg queue.Registry, current *queue.Entry, now time.Time) (queue.EntryUpdate, error)

// transition applies one lifecycle action. The status write and the
// recomputed placements commit together.
func (s *QueueService) transition(
	ctx context.Context,
	id string,
	action queue.Action,
	eventType queue.EventType,
	build updateBuilder,
) (*queue.Entry, error) {
	current, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.BusinessID)
	defer unlock()

	var (
		updated *queue.Entry
		snap    queue.Snapshot
	)
	err = s.registry.WithinBusiness(ctx, current.BusinessID, func(ctx context.Context, reg queue.Registry) error {
		current, err := reg.Get(ctx, id)
		if err != nil {
			return err
		}
		if !queue.CanApply(action, current.Status) {
			return invalidTransition(action, current.Status)
		}

		upd, err := build(ctx, reg, current, s.now())
		if err != nil {
			return err
		}

		updated, err = reg.Update(ctx, id, upd)
		if err != nil {
			s.logger.Error("failed to update queue entry",
				zap.Error(err),
				zap.String("entry_id", id),
				zap.String("action", string(action)),
			)
			return fmt.Errorf("failed to update queue entry: %w", err)
		}

		snap, err = s.recompute(ctx, reg, updated.BusinessID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if placed, ok := findEntry(snap.Active, id); ok {
		updated = &placed
	}

	s.logger.Info("queue entry transitioned",
		zap.String("entry_id", id),
		zap.String("business_id", updated.BusinessID),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)),
		zap.Int("position", updated.Position),
	)

	s.publish(eventType, *updated, snap)
	return updated, nil
}

// ========== Queries ==========

func (s *QueueService) Get(ctx context.Context, id string) (*queue.Entry, error) {
	return s.registry.Get(ctx, id)
}

// GetActive returns the active queue of a business ordered by position.
func (s *QueueService) GetActive(ctx context.Context, businessID string) ([]queue.Entry, error) {
	unlock := s.locks.Lock(businessID)
	defer unlock()
	return s.registry.GetActiveByBusiness(ctx, businessID)
}

// GetPending returns entries awaiting approval ordered by join time.
func (s *QueueService) GetPending(ctx context.Context, businessID string) ([]queue.Entry, error) {
	unlock := s.locks.Lock(businessID)
	defer unlock()
	return s.registry.GetPendingByBusiness(ctx, businessID)
}

// Snapshot returns the consistent active + pending view of a business.
func (s *QueueService) Snapshot(ctx context.Context, businessID string) (queue.Snapshot, error) {
	unlock := s.locks.Lock(businessID)
	defer unlock()

	var snap queue.Snapshot
	err := s.registry.WithinBusiness(ctx, businessID, func(ctx context.Context, reg queue.Registry) error {
		var err error
		snap, err = s.snapshot(ctx, reg, businessID)
		return err
	})
	return snap, err
}

// Summary reports the queue load for business listings.
func (s *QueueService) Summary(ctx context.Context, businessID string) (queue.Summary, error) {
	active, err := s.GetActive(ctx, businessID)
	if err != nil {
		return queue.Summary{}, err
	}
	return queue.Summary{
		QueueCount:  len(active),
		CurrentWait: TotalServiceTime(active, s.serviceTimeFor(ctx, businessID)),
	}, nil
}

// Status returns one entry together with its business.
func (s *QueueService) Status(ctx context.Context, id string) (*queue.StatusResponse, error) {
	e, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	biz, err := s.directory.GetBusiness(ctx, e.BusinessID)
	if err != nil {
		s.logger.Warn("business lookup failed for queue status", zap.Error(err), zap.String("business_id", e.BusinessID))
		biz = nil
	}
	return &queue.StatusResponse{QueueItem: e, Business: biz}, nil
}

// Dashboard aggregates what a business operator sees.
func (s *QueueService) Dashboard(ctx context.Context, businessID string) (*queue.DashboardResponse, error) {
	biz, err := s.directory.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx, businessID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	served, err := s.registry.CountServedSince(ctx, businessID, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to count served entries: %w", err)
	}

	status := "INACTIVE"
	if biz.IsActive {
		status = "ACTIVE"
	}

	return &queue.DashboardResponse{
		Queue:    snap.Active,
		Pending:  snap.Pending,
		Business: biz,
		Stats: queue.DashboardStats{
			QueueLength:  len(snap.Active),
			PendingCount: len(snap.Pending),
			AvgWaitTime:  s.serviceTimeFor(ctx, businessID),
			ServedToday:  served,
			Status:       status,
		},
	}, nil
}

// ========== Internals ==========

// recompute re-derives positions and waits for the whole active list of a
// business and returns the resulting snapshot. Caller runs inside WithinBusiness.
func (s *QueueService) recompute(ctx context.Context, reg queue.Registry, businessID string) (queue.Snapshot, error) {
	active, err := reg.GetActiveByBusiness(ctx, businessID)
	if err != nil {
		return queue.Snapshot{}, fmt.Errorf("failed to load active queue: %w", err)
	}

	OrderActive(active)
	placements := Recompute(active, s.serviceTimeFor(ctx, businessID))
	if err := reg.ApplyPlacements(ctx, businessID, placements); err != nil {
		s.logger.Error("failed to apply placements", zap.Error(err), zap.String("business_id", businessID))
		return queue.Snapshot{}, fmt.Errorf("failed to apply placements: %w", err)
	}

	for i, p := range placements {
		wait := p.EstimatedWait
		active[i].Position = p.Position
		active[i].EstimatedWait = &wait
	}

	pending, err := reg.GetPendingByBusiness(ctx, businessID)
	if err != nil {
		return queue.Snapshot{}, fmt.Errorf("failed to load pending queue: %w", err)
	}

	metrics.SetQueueLengths(businessID, len(active), len(pending))
	return queue.Snapshot{BusinessID: businessID, Active: active, Pending: pending}, nil
}

// snapshot reads the current state without recomputing. Caller runs inside WithinBusiness.
func (s *QueueService) snapshot(ctx context.Context, reg queue.Registry, businessID string) (queue.Snapshot, error) {
	active, err := reg.GetActiveByBusiness(ctx, businessID)
	if err != nil {
		return queue.Snapshot{}, fmt.Errorf("failed to load active queue: %w", err)
	}
	pending, err := reg.GetPendingByBusiness(ctx, businessID)
	if err != nil {
		return queue.Snapshot{}, fmt.Errorf("failed to load pending queue: %w", err)
	}
	metrics.SetQueueLengths(businessID, len(active), len(pending))
	return queue.Snapshot{BusinessID: businessID, Active: active, Pending: pending}, nil
}

// serviceTimeFor never fails: a missing business falls back to the default.
func (s *QueueService) serviceTimeFor(ctx context.Context, businessID string) int {
	biz, err := s.directory.GetBusiness(ctx, businessID)
	if err != nil {
		if !errors.Is(err, xerrors.ErrNotFound) {
			s.logger.Warn("business lookup failed, using default service time",
				zap.Error(err),
				zap.String("business_id", businessID),
			)
		}
		return s.defaultServiceTime
	}
	if biz.AverageServiceTime <= 0 {
		return s.defaultServiceTime
	}
	return biz.AverageServiceTime
}

func (s *QueueService) publish(eventType queue.EventType, entry queue.Entry, snap queue.Snapshot) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(queue.LifecycleEvent{
		Type:       eventType,
		Entry:      entry,
		Snapshot:   snap,
		OccurredAt: s.now(),
	})
}

func validateSubmit(req *queue.SubmitRequest) error {
	if req == nil {
		return xerrors.Validation("request body is required")
	}
	if strings.TrimSpace(req.BusinessID) == "" {
		return xerrors.Validation("businessId is required")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return xerrors.Validation("customerName is required")
	}
	if countDigits(req.CustomerPhone) < minPhoneDigits {
		return xerrors.Validation("customerPhone must contain at least %d digits", minPhoneDigits)
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func invalidTransition(action queue.Action, from queue.Status) error {
	return fmt.Errorf("%w: cannot %s an entry that is %s", xerrors.ErrInvalidTransition, action, from)
}

func findEntry(entries []queue.Entry, id string) (queue.Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return queue.Entry{}, false
}
