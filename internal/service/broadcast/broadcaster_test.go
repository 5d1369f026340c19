package broadcast

import (
	"context"
	"testing"

	"queueline-service/internal/domain/queue"
	wstypes "queueline-service/internal/domain/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	businessIDs []string
	messages    []*wstypes.WSMessage
}

func (p *recordingPusher) BroadcastToBusiness(businessID string, msg *wstypes.WSMessage) {
	p.businessIDs = append(p.businessIDs, businessID)
	p.messages = append(p.messages, msg)
}

func TestBroadcaster_PushesSnapshot(t *testing.T) {
	p := &recordingPusher{}
	b := NewBroadcaster(p)
	wait := 0

	b.Handle(context.Background(), queue.LifecycleEvent{
		Type:  queue.EventEntryApproved,
		Entry: queue.Entry{ID: "a", BusinessID: "biz"},
		Snapshot: queue.Snapshot{
			BusinessID: "biz",
			Active:     []queue.Entry{{ID: "a", BusinessID: "biz", Position: 1, EstimatedWait: &wait}},
		},
	})

	require.Len(t, p.messages, 1)
	assert.Equal(t, "biz", p.businessIDs[0])
	assert.Equal(t, wstypes.EventTypeQueueUpdated, p.messages[0].Type)

	data, ok := p.messages[0].Data.(wstypes.QueueUpdateData)
	require.True(t, ok)
	assert.Equal(t, "entry_approved", data.Event)
	assert.Len(t, data.Active, 1)
	assert.NotNil(t, data.Pending)
}

func TestBroadcaster_FallsBackToEntryBusiness(t *testing.T) {
	p := &recordingPusher{}
	NewBroadcaster(p).Handle(context.Background(), queue.LifecycleEvent{
		Type:  queue.EventEntryRemoved,
		Entry: queue.Entry{ID: "a", BusinessID: "biz"},
	})

	require.Len(t, p.businessIDs, 1)
	assert.Equal(t, "biz", p.businessIDs[0])
}
