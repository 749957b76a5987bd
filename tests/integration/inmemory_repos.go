package integration

import (
	"context"
	"sort"
	"sync"

	"paynow-terminal-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// In-memory directory repos. The directory is read-only to the service, so
// these only need seeding plus the read paths.

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) seed(m *domain.Merchant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merchants[m.ID] = m
}

func (r *inMemoryMerchantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.merchants[id], nil
}

type inMemoryTerminalRepo struct {
	mu        sync.RWMutex
	terminals map[string]*domain.Terminal
}

func newInMemoryTerminalRepo() *inMemoryTerminalRepo {
	return &inMemoryTerminalRepo{terminals: make(map[string]*domain.Terminal)}
}

func (r *inMemoryTerminalRepo) seed(t *domain.Terminal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminals[t.ID] = t
}

func (r *inMemoryTerminalRepo) GetByID(_ context.Context, id string) (*domain.Terminal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.terminals[id], nil
}

func (r *inMemoryTerminalRepo) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.terminals))
	for id := range r.terminals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
