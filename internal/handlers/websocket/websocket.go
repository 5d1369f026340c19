// internal/handlers/websocket/websocket.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"queueline-service/internal/domain/business"
	xerrors "queueline-service/internal/pkg/errors"
	"queueline-service/internal/pkg/response"
	ws "queueline-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub       *ws.Hub
	directory business.Directory
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewWebSocketHandler accepts observers from the listed origins; an empty list allows any origin.
func NewWebSocketHandler(
	hub *ws.Hub,
	directory business.Directory,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		directory: directory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// HandleConnection subscribes an observer to one business queue.
// GET /ws?businessId=
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	businessID := strings.TrimSpace(c.Query("businessId"))
	if businessID == "" {
		response.ValidationError(c, "businessId query parameter is required", nil)
		return
	}

	if _, err := h.directory.GetBusiness(c.Request.Context(), businessID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "business not found")
			return
		}
		response.FromError(c, "failed to load business", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, businessID)
	if !h.hub.RegisterClient(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket connection statistics
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
