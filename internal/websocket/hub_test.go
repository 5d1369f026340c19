package websocket

import (
	"context"
	"testing"
	"time"

	"queueline-service/internal/domain/queue"
	wstypes "queueline-service/internal/domain/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// racingGreeter broadcasts a newer update while the snapshot is being built,
// the way a mutation landing during registration would.
type racingGreeter struct {
	hub *Hub
}

func (g racingGreeter) Greet(_ context.Context, client *Client) error {
	g.hub.BroadcastToBusiness(client.BusinessID(), wstypes.NewMessage(wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate(string(queue.EventEntryApproved), queue.Snapshot{BusinessID: client.BusinessID()})))
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate("snapshot", queue.Snapshot{BusinessID: client.BusinessID()})))
	return nil
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	hub.SetGreeter(racingGreeter{hub: hub})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func nextMessage(t *testing.T, c *Client) *wstypes.WSMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		msg, err := wstypes.ParseMessage(raw)
		require.NoError(t, err)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message queued for client")
		return nil
	}
}

func eventOf(t *testing.T, msg *wstypes.WSMessage) string {
	t.Helper()
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	event, _ := data["event"].(string)
	return event
}

func TestHub_SnapshotPrecedesLaterBroadcasts(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, "biz")
	require.True(t, hub.RegisterClient(client))

	assert.Equal(t, wstypes.EventTypeConnected, nextMessage(t, client).Type)

	snap := nextMessage(t, client)
	assert.Equal(t, wstypes.EventTypeQueueUpdated, snap.Type)
	assert.Equal(t, "snapshot", eventOf(t, snap))

	update := nextMessage(t, client)
	assert.Equal(t, string(queue.EventEntryApproved), eventOf(t, update))
}

func TestHub_BroadcastIsScopedToBusiness(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, nil, "biz")
	require.True(t, hub.RegisterClient(client))
	for i := 0; i < 3; i++ {
		nextMessage(t, client)
	}

	hub.BroadcastToBusiness("other", wstypes.NewMessage(wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate("entry_created", queue.Snapshot{BusinessID: "other"})))
	hub.BroadcastToBusiness("biz", wstypes.NewMessage(wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate("entry_removed", queue.Snapshot{BusinessID: "biz"})))

	assert.Equal(t, "entry_removed", eventOf(t, nextMessage(t, client)))
	assert.Equal(t, 1, hub.TotalClients())
}
