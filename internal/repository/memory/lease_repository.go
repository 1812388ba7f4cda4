package memory

import (
	"context"
	"sync"
	"time"

	"conflict-resolution-be/pkg/textstream"

	"github.com/patrickmn/go-cache"
)

// LeaseRepository grants producer leases within a single process.
type LeaseRepository struct {
	// mu makes release a compare-and-delete against Acquire.
	mu    sync.Mutex
	cache *cache.Cache
}

func NewLeaseRepository() *LeaseRepository {
	return &LeaseRepository{
		cache: cache.New(10*time.Minute, time.Minute),
	}
}

func (r *LeaseRepository) Acquire(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	token := new(byte)

	r.mu.Lock()
	defer r.mu.Unlock()
	// Add fails while an unexpired lease for id exists.
	if err := r.cache.Add(id, token, ttl); err != nil {
		return nil, textstream.ErrLeaseHeld
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if x, found := r.cache.Get(id); found && x == token {
			r.cache.Delete(id)
		}
	}, nil
}
