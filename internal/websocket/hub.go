// internal/websocket/hub.go
package websocket

import (
	"context"

	wstypes "queueline-service/internal/domain/websocket"
	"queueline-service/internal/metrics"

	"go.uber.org/zap"
)

// Hub tracks observers per business and fans queue updates out to them.
// All registry mutations happen on the Run goroutine.
type Hub struct {
	// Registered clients by business ID
	clients map[string]map[*Client]bool

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	// greeter sends the initial state to a client as part of registration
	greeter Greeter

	// count is written by Run and read by TotalClients
	count chan chan int

	done   chan struct{}
	logger *zap.Logger
}

// Greeter sends the first state a newly registered client should see. It runs
// on the Run goroutine, so nothing broadcast afterwards can overtake it.
type Greeter interface {
	Greet(ctx context.Context, client *Client) error
}

type BroadcastMessage struct {
	BusinessID string
	Message    *wstypes.WSMessage
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		count:           make(chan chan int),
		done:            make(chan struct{}),
		logger:          logger,
	}
}

// RegisterHandler registers a message handler. Call before Run.
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// SetGreeter installs the registration greeter. Call before Run.
func (h *Hub) SetGreeter(greeter Greeter) {
	h.greeter = greeter
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil // Will be handled by client's default handler
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case reply := <-h.count:
			reply <- h.totalClients()
		}
	}
}

// RegisterClient hands a client to the Run loop. It reports false once the hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	if h.clients[client.businessID] == nil {
		h.clients[client.businessID] = make(map[*Client]bool)
	}
	h.clients[client.businessID][client] = true

	total := h.totalClients()
	metrics.SetWebSocketConnections(total)
	h.logger.Info("observer connected",
		zap.String("client_id", client.id),
		zap.String("business_id", client.businessID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, wstypes.ConnectedData{
		BusinessID: client.businessID,
		ClientID:   client.id,
	}))

	if h.greeter != nil {
		if err := h.greeter.Greet(client.Context(), client); err != nil {
			h.logger.Warn("initial snapshot failed",
				zap.Error(err),
				zap.String("client_id", client.id),
				zap.String("business_id", client.businessID),
			)
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.clients[client.businessID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.businessID)
	}

	total := h.totalClients()
	metrics.SetWebSocketConnections(total)
	h.logger.Info("observer disconnected",
		zap.String("client_id", client.id),
		zap.String("business_id", client.businessID),
		zap.Int("total", total),
	)
}

// deliver sends to every observer of the business and prunes the ones whose
// buffers are full.
func (h *Hub) deliver(msg *BroadcastMessage) {
	var slow []*Client
	for client := range h.clients[msg.BusinessID] {
		if !client.SendMessage(msg.Message) {
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.logger.Warn("observer too slow, disconnecting",
			zap.String("client_id", client.id),
			zap.String("business_id", client.businessID),
		)
		h.unregisterClient(client)
	}
}

// BroadcastToBusiness queues a message for every observer of the business.
// It never blocks: when the hub backlog is full the message is dropped.
func (h *Hub) BroadcastToBusiness(businessID string, msg *wstypes.WSMessage) {
	select {
	case h.broadcast <- &BroadcastMessage{BusinessID: businessID, Message: msg}:
	default:
		h.logger.Warn("broadcast backlog full, dropping update",
			zap.String("business_id", businessID),
			zap.String("type", string(msg.Type)),
		)
	}
}

// TotalClients returns the number of connected observers, or 0 once the hub stopped.
func (h *Hub) TotalClients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	for businessID, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, businessID)
	}
	metrics.SetWebSocketConnections(0)
	h.logger.Info("websocket hub stopped")
}
