package station

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Configurations do not survive a restart.
type InMemoryRepository struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewInMemoryRepository creates a new in-memory station repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		configs: make(map[string]*Config),
	}
}

// Get retrieves a station configuration by station ID.
func (r *InMemoryRepository) Get(_ context.Context, stationID string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[stationID]
	if !ok {
		return nil, ErrNotFound
	}

	c := *cfg
	return &c, nil
}

// List retrieves all station configurations ordered by station ID.
func (r *InMemoryRepository) List(_ context.Context) ([]*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		c := *cfg
		items = append(items, &c)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].StationID < items[j].StationID
	})

	return items, nil
}

// Create stores a new configuration.
func (r *InMemoryRepository) Create(_ context.Context, cfg *Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[cfg.StationID]; exists {
		return ErrAlreadyConfigured
	}

	c := *cfg
	r.configs[cfg.StationID] = &c
	return nil
}

// Delete removes a configuration.
func (r *InMemoryRepository) Delete(_ context.Context, stationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[stationID]; !exists {
		return ErrNotFound
	}

	delete(r.configs, stationID)
	return nil
}
