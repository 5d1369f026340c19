// internal/domain/queue/dto.go
package queue

import "queueline-service/internal/domain/business"

// DTOs

type SubmitRequest struct {
	BusinessID    string  `json:"businessId" binding:"required"`
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone"`
	ServiceType   *string `json:"serviceType,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type ApproveRequest struct {
	EstimatedServiceTime *int `json:"estimatedServiceTime,omitempty"`
}

type StatusResponse struct {
	QueueItem *Entry             `json:"queueItem"`
	Business  *business.Business `json:"business,omitempty"`
}

type DashboardStats struct {
	QueueLength  int    `json:"queueLength"`
	PendingCount int    `json:"pendingCount"`
	AvgWaitTime  int    `json:"avgWaitTime"`
	ServedToday  int    `json:"servedToday"`
	Status       string `json:"status"`
}

type DashboardResponse struct {
	Queue    []Entry            `json:"queue"`
	Pending  []Entry            `json:"pending"`
	Business *business.Business `json:"business"`
	Stats    DashboardStats     `json:"stats"`
}

// Summary is the queue load shown in business listings.
type Summary struct {
	QueueCount  int `json:"queueCount"`
	CurrentWait int `json:"currentWait"`
}
