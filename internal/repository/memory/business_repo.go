// internal/repository/memory/business_repo.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"queueline-service/internal/domain/business"
	xerrors "queueline-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

var _ business.Directory = (*BusinessRepository)(nil)

// BusinessRepository is an in-memory business.Directory.
type BusinessRepository struct {
	mu         sync.RWMutex
	businesses map[string]business.Business
}

func NewBusinessRepository(seed ...business.Business) *BusinessRepository {
	r := &BusinessRepository{businesses: make(map[string]business.Business)}
	for _, b := range seed {
		r.Put(b)
	}
	return r
}

// SampleBusinesses is the demo catalogue loaded when no database is configured.
func SampleBusinesses() []business.Business {
	now := time.Now().UTC()
	return []business.Business{
		{
			ID:                 ulid.Make().String(),
			Name:               "Elite Hair Salon",
			Type:               "Hair Salon",
			Phone:              "+1 (555) 123-4567",
			Address:            "123 Main Street, Downtown",
			AverageServiceTime: 25,
			IsActive:           true,
			CreatedAt:          now,
		},
		{
			ID:                 ulid.Make().String(),
			Name:               "Wellness Clinic",
			Type:               "Medical Clinic",
			Phone:              "+1 (555) 987-6543",
			Address:            "456 Health Ave, Medical District",
			AverageServiceTime: 30,
			IsActive:           true,
			CreatedAt:          now,
		},
		{
			ID:                 ulid.Make().String(),
			Name:               "Quick Fix Auto",
			Type:               "Auto Repair",
			Phone:              "+1 (555) 456-7890",
			Address:            "789 Service Road, Industrial Zone",
			AverageServiceTime: 45,
			IsActive:           true,
			CreatedAt:          now,
		},
	}
}

// Put stores or replaces a business. Used for seeding and tests.
func (r *BusinessRepository) Put(b business.Business) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.businesses[b.ID] = b
}

func (r *BusinessRepository) GetBusiness(_ context.Context, id string) (*business.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.businesses[id]
	if !ok {
		return nil, fmt.Errorf("business %s: %w", id, xerrors.ErrNotFound)
	}
	return &b, nil
}

func (r *BusinessRepository) ListActive(_ context.Context) ([]business.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []business.Business{}
	for _, b := range r.businesses {
		if b.IsActive {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
