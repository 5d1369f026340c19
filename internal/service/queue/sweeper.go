package queue

import (
	"context"
	"errors"
	"time"

	xerrors "queueline-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// PendingSweeper removes entries that stayed pending longer than ttl. Removal
// goes through the controller so each expiry publishes entry_removed.
type PendingSweeper struct {
	svc      *QueueService
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func NewPendingSweeper(svc *QueueService, ttl, interval time.Duration, logger *zap.Logger) *PendingSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingSweeper{svc: svc, ttl: ttl, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled. A zero ttl disables it.
func (s *PendingSweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("pending sweeper started", zap.Duration("ttl", s.ttl), zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pending sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("pending sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep removes every expired pending entry and returns how many it removed.
// Each entry is checked again under the business lock, so one approved or
// removed after the listing is left alone.
func (s *PendingSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.svc.now().Add(-s.ttl)
	expired, err := s.svc.registry.ListPendingJoinedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range expired {
		ok, err := s.svc.expirePending(ctx, e.ID, cutoff)
		switch {
		case err == nil && ok:
			removed++
			s.logger.Info("expired pending entry removed",
				zap.String("entry_id", e.ID),
				zap.String("business_id", e.BusinessID),
				zap.Time("joined_at", e.JoinedAt),
			)
		case err == nil, errors.Is(err, xerrors.ErrNotFound):
		case err != nil:
			s.logger.Warn("failed to expire pending entry", zap.Error(err), zap.String("entry_id", e.ID))
		}
	}
	return removed, nil
}
