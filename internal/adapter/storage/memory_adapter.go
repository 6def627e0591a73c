package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

// MemoryAdapter keeps inventory, ledger and idempotency keys in process.
// Reads return copies so callers never alias stored state.
type MemoryAdapter struct {
	mu    sync.RWMutex
	items map[string]domain.Item
	txs   []domain.Transaction
	keys  map[string]time.Time
	ttl   time.Duration
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items: make(map[string]domain.Item),
		keys:  make(map[string]time.Time),
		ttl:   idempotencyKeyTTL,
	}
}

func (m *MemoryAdapter) Find(ctx context.Context, name string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[name]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *MemoryAdapter) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[item.CanonicalName] = item
	return item, nil
}

func (m *MemoryAdapter) Update(ctx context.Context, name string, patch domain.ItemPatch) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[name]
	if !ok {
		return false, nil
	}
	m.items[name] = patch.Apply(item)
	return true, nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[name]; !ok {
		return false, nil
	}
	delete(m.items, name)
	return true, nil
}

func (m *MemoryAdapter) ListAll(ctx context.Context) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CanonicalName < items[j].CanonicalName
	})
	return items, nil
}

func (m *MemoryAdapter) Append(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs = append(m.txs, tx)
	return nil
}

func (m *MemoryAdapter) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.txs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.txs[i])
	}
	return out, nil
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if expires, ok := m.keys[key]; ok && now.Before(expires) {
		return false, nil
	}
	m.keys[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	return nil
}
