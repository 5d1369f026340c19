// internal/handlers/business/business_handler.go
package business

import (
	"net/http"

	"queueline-service/internal/domain/business"
	"queueline-service/internal/pkg/response"
	service "queueline-service/internal/service/queue"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BusinessHandler struct {
	directory    business.Directory
	queueService *service.QueueService
	logger       *zap.Logger
}

func NewBusinessHandler(directory business.Directory, queueService *service.QueueService, logger *zap.Logger) *BusinessHandler {
	return &BusinessHandler{
		directory:    directory,
		queueService: queueService,
		logger:       logger,
	}
}

// List returns active businesses with their live queue load
func (h *BusinessHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	businesses, err := h.directory.ListActive(ctx)
	if err != nil {
		response.FromError(c, "failed to fetch businesses", err)
		return
	}

	out := make([]business.WithQueue, 0, len(businesses))
	for _, b := range businesses {
		row := business.WithQueue{Business: b}
		summary, err := h.queueService.Summary(ctx, b.ID)
		if err != nil {
			h.logger.Warn("queue summary failed", zap.Error(err), zap.String("business_id", b.ID))
		} else {
			row.QueueCount = summary.QueueCount
			row.CurrentWait = summary.CurrentWait
		}
		out = append(out, row)
	}

	response.Success(c, http.StatusOK, "businesses retrieved", out)
}

// Get returns one business
func (h *BusinessHandler) Get(c *gin.Context) {
	b, err := h.directory.GetBusiness(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "business not found", err)
		return
	}

	response.Success(c, http.StatusOK, "business retrieved", b)
}

// Dashboard returns the operator view of one business
func (h *BusinessHandler) Dashboard(c *gin.Context) {
	dash, err := h.queueService.Dashboard(c.Request.Context(), c.Param("businessId"))
	if err != nil {
		response.FromError(c, "failed to fetch dashboard", err)
		return
	}

	response.Success(c, http.StatusOK, "dashboard retrieved", dash)
}
