package schedule

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps configs in process. Used when no Postgres DSN is set and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]Config
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{configs: make(map[uuid.UUID]Config)}
}

func (r *MemoryRepository) Get(_ context.Context, providerID uuid.UUID) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[providerID]
	if !ok {
		return nil, ErrProviderNotFound
	}
	out := cfg.Clone()
	return &out, nil
}

func (r *MemoryRepository) Insert(_ context.Context, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[cfg.ProviderID]; ok {
		return ErrProviderExists
	}
	r.configs[cfg.ProviderID] = cfg.Clone()
	return nil
}

func (r *MemoryRepository) Save(_ context.Context, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.configs[cfg.ProviderID]
	if !ok {
		return ErrProviderNotFound
	}
	if cur.Revision != cfg.Revision-1 {
		return ErrStaleRevision
	}
	r.configs[cfg.ProviderID] = cfg.Clone()
	return nil
}
