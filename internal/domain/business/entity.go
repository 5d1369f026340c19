// internal/domain/business/entity.go
package business

import (
	"context"
	"time"
)

type Business struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	Phone              string    `json:"phone,omitempty"`
	Address            string    `json:"address,omitempty"`
	Description        string    `json:"description,omitempty"`
	AverageServiceTime int       `json:"averageServiceTime"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Directory is the read-only view of the business catalogue.
type Directory interface {
	// GetBusiness returns xerrors.ErrNotFound when the id is unknown.
	GetBusiness(ctx context.Context, id string) (*Business, error)
	ListActive(ctx context.Context) ([]Business, error)
}

// WithQueue is a listing row: the business plus its live queue load.
type WithQueue struct {
	Business
	QueueCount  int `json:"queueCount"`
	CurrentWait int `json:"currentWait"`
}
