// internal/service/broadcast/broadcaster.go
package broadcast

import (
	"context"

	"queueline-service/internal/domain/queue"
	wstypes "queueline-service/internal/domain/websocket"
)

// Pusher delivers a message to every observer of one business.
type Pusher interface {
	BroadcastToBusiness(businessID string, msg *wstypes.WSMessage)
}

// Broadcaster forwards every lifecycle event's snapshot to live observers.
type Broadcaster struct {
	pusher Pusher
}

func NewBroadcaster(pusher Pusher) *Broadcaster {
	return &Broadcaster{pusher: pusher}
}

// Handle is registered as an event bus handler.
func (b *Broadcaster) Handle(_ context.Context, event queue.LifecycleEvent) {
	businessID := event.Snapshot.BusinessID
	if businessID == "" {
		businessID = event.Entry.BusinessID
	}
	snap := event.Snapshot
	snap.BusinessID = businessID

	b.pusher.BroadcastToBusiness(businessID, wstypes.NewMessage(
		wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate(string(event.Type), snap),
	))
}
