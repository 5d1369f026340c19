// internal/service/notification/dispatcher.go
package notification

import (
	"context"

	"queueline-service/internal/domain/business"
	"queueline-service/internal/domain/queue"
	"queueline-service/internal/metrics"
	queueservice "queueline-service/internal/service/queue"

	"go.uber.org/zap"
)

// DefaultNearFrontMinutes is the wait at or below which an entry is told it is next.
const DefaultNearFrontMinutes = 15

// Dispatcher turns lifecycle events into customer text messages. It runs on
// its own event bus subscription; failures are logged and never reach the
// lifecycle operation that produced the event.
type Dispatcher struct {
	gateway            Gateway
	tracker            NearFrontTracker
	directory          business.Directory
	baseURL            string
	nearFrontMinutes   int
	defaultServiceTime int
	logger             *zap.Logger
}

type DispatcherConfig struct {
	BaseURL            string
	NearFrontMinutes   int
	DefaultServiceTime int
}

func NewDispatcher(
	gateway Gateway,
	tracker NearFrontTracker,
	directory business.Directory,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = NewMemoryTracker()
	}
	if cfg.NearFrontMinutes <= 0 {
		cfg.NearFrontMinutes = DefaultNearFrontMinutes
	}
	if cfg.DefaultServiceTime <= 0 {
		cfg.DefaultServiceTime = queueservice.FallbackServiceTime
	}
	return &Dispatcher{
		gateway:            gateway,
		tracker:            tracker,
		directory:          directory,
		baseURL:            cfg.BaseURL,
		nearFrontMinutes:   cfg.NearFrontMinutes,
		defaultServiceTime: cfg.DefaultServiceTime,
		logger:             logger,
	}
}

// Handle is registered as an event bus handler.
func (d *Dispatcher) Handle(ctx context.Context, event queue.LifecycleEvent) {
	biz := d.lookupBusiness(ctx, event.Entry.BusinessID)
	e := event.Entry

	switch event.Type {
	case queue.EventEntryCreated:
		rank := pendingRank(event.Snapshot.Pending, e.ID)
		wait := queueservice.TotalServiceTime(event.Snapshot.Active, d.serviceTime(biz))
		d.send(ctx, TemplateConfirmation, e,
			confirmationText(biz.Name, rank, wait, statusURL(d.baseURL, e.ID)))

	case queue.EventEntryApproved:
		d.send(ctx, TemplateApproval, e, approvalText(biz.Name, e.Position, waitOf(e)))

	case queue.EventEntryServiceStarted:
		d.send(ctx, TemplateYourTurn, e, yourTurnText(biz.Name))

	case queue.EventEntryServed, queue.EventEntryRemoved:
		if err := d.tracker.Forget(ctx, e.ID); err != nil {
			d.logger.Warn("failed to clear near-front flag", zap.Error(err), zap.String("entry_id", e.ID))
		}
	}

	d.notifyNearFront(ctx, biz, event.Snapshot.Active)
}

// notifyNearFront sends "you're next" once per entry whose wait dropped to the threshold.
func (d *Dispatcher) notifyNearFront(ctx context.Context, biz *business.Business, active []queue.Entry) {
	for _, e := range active {
		if e.Status != queue.StatusApproved || e.EstimatedWait == nil || *e.EstimatedWait > d.nearFrontMinutes {
			continue
		}
		first, err := d.tracker.MarkNotified(ctx, e.ID)
		if err != nil {
			d.logger.Warn("near-front tracker unavailable", zap.Error(err), zap.String("entry_id", e.ID))
			continue
		}
		if first {
			d.send(ctx, TemplateNearFront, e, nearFrontText(biz.Name))
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, tpl Template, e queue.Entry, text string) {
	if e.CustomerPhone == "" {
		return
	}
	err := d.gateway.Send(ctx, Message{
		Template:   tpl,
		EntryID:    e.ID,
		BusinessID: e.BusinessID,
		Phone:      e.CustomerPhone,
		Text:       text,
	})
	metrics.TrackNotification(string(tpl), err)
	if err != nil {
		d.logger.Error("notification dispatch failed",
			zap.Error(err),
			zap.String("template", string(tpl)),
			zap.String("entry_id", e.ID),
		)
	}
}

func (d *Dispatcher) lookupBusiness(ctx context.Context, id string) *business.Business {
	biz, err := d.directory.GetBusiness(ctx, id)
	if err != nil {
		d.logger.Warn("business lookup failed for notification", zap.Error(err), zap.String("business_id", id))
		return &business.Business{ID: id, Name: "Your queue"}
	}
	return biz
}

func (d *Dispatcher) serviceTime(biz *business.Business) int {
	if biz.AverageServiceTime > 0 {
		return biz.AverageServiceTime
	}
	return d.defaultServiceTime
}

func pendingRank(pending []queue.Entry, id string) int {
	for i, e := range pending {
		if e.ID == id {
			return i + 1
		}
	}
	return len(pending) + 1
}

func waitOf(e queue.Entry) int {
	if e.EstimatedWait == nil {
		return 0
	}
	return *e.EstimatedWait
}
