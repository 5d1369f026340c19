// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"queueline-service/internal/domain/queue"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing      EventType = "ping"
	EventTypePong      EventType = "pong"
	EventTypeConnected EventType = "connected"
	EventTypeError     EventType = "error"

	// Queue events (server -> client)
	EventTypeQueueUpdated EventType = "queue_updated"

	// Queue requests (client -> server)
	EventTypeQueueSnapshot EventType = "queue:snapshot"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
}

// ConnectedData is sent once after the observer is registered.
type ConnectedData struct {
	BusinessID string `json:"businessId"`
	ClientID   string `json:"clientId"`
}

// QueueUpdateData carries the recomputed snapshot of one business queue.
type QueueUpdateData struct {
	BusinessID string        `json:"businessId"`
	Event      string        `json:"event"`
	Active     []queue.Entry `json:"active"`
	Pending    []queue.Entry `json:"pending"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewQueueUpdate builds the push payload for a snapshot.
func NewQueueUpdate(event string, snap queue.Snapshot) QueueUpdateData {
	active, pending := snap.Active, snap.Pending
	if active == nil {
		active = []queue.Entry{}
	}
	if pending == nil {
		pending = []queue.Entry{}
	}
	return QueueUpdateData{
		BusinessID: snap.BusinessID,
		Event:      event,
		Active:     active,
		Pending:    pending,
	}
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
