// internal/websocket/handler/queue.go
package handlers

import (
	"context"
	"fmt"

	"queueline-service/internal/domain/queue"
	wstypes "queueline-service/internal/domain/websocket"
	ws "queueline-service/internal/websocket"
)

// SnapshotProvider is satisfied by the queue service.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, businessID string) (queue.Snapshot, error)
}

// QueueHandler answers observer requests for the current queue state.
type QueueHandler struct {
	queues SnapshotProvider
}

func NewQueueHandler(queues SnapshotProvider) *QueueHandler {
	return &QueueHandler{queues: queues}
}

// SupportedEvents returns events this handler supports
func (h *QueueHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeQueueSnapshot}
}

// HandleMessage processes queue-related messages
func (h *QueueHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeQueueSnapshot:
		return h.SendSnapshot(ctx, client)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

// Greet sends the snapshot a new observer starts from.
func (h *QueueHandler) Greet(ctx context.Context, client *ws.Client) error {
	return h.SendSnapshot(ctx, client)
}

// SendSnapshot pushes the observer's business queue as a queue_updated message.
func (h *QueueHandler) SendSnapshot(ctx context.Context, client *ws.Client) error {
	snap, err := h.queues.Snapshot(ctx, client.BusinessID())
	if err != nil {
		return err
	}
	client.SendMessage(wstypes.NewMessage(
		wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate("snapshot", snap),
	))
	return nil
}
