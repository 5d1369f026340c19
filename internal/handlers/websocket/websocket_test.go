package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"queueline-service/internal/domain/business"
	"queueline-service/internal/domain/queue"
	wstypes "queueline-service/internal/domain/websocket"
	"queueline-service/internal/repository/memory"
	queueservice "queueline-service/internal/service/queue"
	ws "queueline-service/internal/websocket"
	wshandlers "queueline-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wsFixture struct {
	server *httptest.Server
	hub    *ws.Hub
	svc    *queueservice.QueueService
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := memory.NewBusinessRepository(business.Business{ID: "biz", Name: "Salon", AverageServiceTime: 20, IsActive: true})
	svc := queueservice.NewQueueService(memory.NewQueueRepository(), dir, nil, nil)

	hub := ws.NewHub(zap.NewNop())
	snapshots := wshandlers.NewQueueHandler(svc)
	hub.RegisterHandler(snapshots)
	hub.SetGreeter(snapshots)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	h := NewWebSocketHandler(hub, dir, nil, zap.NewNop())
	r.GET("/ws", h.HandleConnection)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &wsFixture{server: srv, hub: hub, svc: svc}
}

func (f *wsFixture) dial(t *testing.T, businessID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?businessId=" + businessID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wstypes.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readTypes(t *testing.T, conn *websocket.Conn, n int) []wstypes.EventType {
	t.Helper()
	out := make([]wstypes.EventType, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, readMessage(t, conn).Type)
	}
	return out
}

func TestHandleConnection_MissingBusinessID(t *testing.T) {
	f := newWSFixture(t)

	resp, err := http.Get(f.server.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleConnection_UnknownBusiness(t *testing.T) {
	f := newWSFixture(t)

	resp, err := http.Get(f.server.URL + "/ws?businessId=nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleConnection_ReceivesConnectedAndSnapshot(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "biz")

	types := readTypes(t, conn, 2)

	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeConnected, wstypes.EventTypeQueueUpdated}, types)
}

func TestHandleConnection_BroadcastReachesOnlyThatBusiness(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "biz")
	readTypes(t, conn, 2)

	f.hub.BroadcastToBusiness("other", wstypes.NewMessage(wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate("entry_created", queue.Snapshot{BusinessID: "other"})))
	f.hub.BroadcastToBusiness("biz", wstypes.NewMessage(wstypes.EventTypeQueueUpdated,
		wstypes.NewQueueUpdate("entry_created", queue.Snapshot{BusinessID: "biz"})))

	msg := readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeQueueUpdated, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "biz", data["businessId"])
	assert.Equal(t, "entry_created", data["event"])
}

func TestHandleConnection_PingPongAndSnapshotRequest(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "biz")
	readTypes(t, conn, 2)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "queue:snapshot"}))
	msg := readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeQueueUpdated, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "snapshot", data["event"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bogus"}))
	assert.Equal(t, wstypes.EventTypeError, readMessage(t, conn).Type)
}

func TestHandleConnection_DisconnectIsPruned(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "biz")
	readTypes(t, conn, 2)
	require.Equal(t, 1, f.hub.TotalClients())

	conn.Close()

	assert.Eventually(t, func() bool { return f.hub.TotalClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
