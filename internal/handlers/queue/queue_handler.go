// internal/handlers/queue/queue_handler.go
package queue

import (
	"errors"
	"io"
	"net/http"

	"queueline-service/internal/domain/queue"
	"queueline-service/internal/middleware"
	"queueline-service/internal/pkg/response"
	service "queueline-service/internal/service/queue"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queueService *service.QueueService
}

func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// ========== Customer Endpoints ==========

// Join submits a new pending entry
func (h *QueueHandler) Join(c *gin.Context) {
	var req queue.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	entry, err := h.queueService.Submit(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "failed to join queue", err)
		return
	}

	response.Success(c, http.StatusCreated, "joined queue", entry)
}

// GetStatus returns one entry with its business
func (h *QueueHandler) GetStatus(c *gin.Context) {
	status, err := h.queueService.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "queue item not found", err)
		return
	}

	response.Success(c, http.StatusOK, "queue status retrieved", status)
}

// GetActive lists the active queue of a business
func (h *QueueHandler) GetActive(c *gin.Context) {
	entries, err := h.queueService.GetActive(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		response.FromError(c, "failed to fetch queue", err)
		return
	}

	response.Success(c, http.StatusOK, "queue retrieved", entries)
}

// ========== Operator Endpoints ==========

// GetPending lists entries awaiting approval
func (h *QueueHandler) GetPending(c *gin.Context) {
	entries, err := h.queueService.GetPending(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		response.FromError(c, "failed to fetch pending queue", err)
		return
	}

	response.Success(c, http.StatusOK, "pending queue retrieved", entries)
}

// Approve moves a pending entry into the active queue
func (h *QueueHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	if !h.authorizeEntry(c, id) {
		return
	}

	var req queue.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationError(c, "invalid request", err)
		return
	}

	entry, err := h.queueService.Approve(c.Request.Context(), id, req.EstimatedServiceTime)
	if err != nil {
		response.FromError(c, "failed to approve customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer approved", entry)
}

// StartService marks the entry as being served
func (h *QueueHandler) StartService(c *gin.Context) {
	id := c.Param("id")
	if !h.authorizeEntry(c, id) {
		return
	}

	entry, err := h.queueService.StartService(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to start service", err)
		return
	}

	response.Success(c, http.StatusOK, "service started", entry)
}

// Serve completes service for the entry
func (h *QueueHandler) Serve(c *gin.Context) {
	id := c.Param("id")
	if !h.authorizeEntry(c, id) {
		return
	}

	entry, err := h.queueService.Complete(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to serve customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer served", entry)
}

// Remove deletes the entry from the queue
func (h *QueueHandler) Remove(c *gin.Context) {
	id := c.Param("id")
	if !h.authorizeEntry(c, id) {
		return
	}

	removed, err := h.queueService.Remove(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "failed to remove customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer removed", gin.H{"removed": removed})
}

// authorizeEntry checks the caller may manage the entry's business and
// writes the error response when not.
func (h *QueueHandler) authorizeEntry(c *gin.Context, id string) bool {
	entry, err := h.queueService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "queue item not found", err)
		return false
	}
	if !middleware.CanActOn(c, entry.BusinessID) {
		response.Forbidden(c, "not allowed to manage this business")
		return false
	}
	return true
}
