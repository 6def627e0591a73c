package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

// Mock InventoryRepository
type mockInventoryRepo struct {
	mu    sync.Mutex
	items map[string]domain.Item
	// failUpdate makes Update fail like an unreachable store.
	failUpdate bool
}

func newMockInventoryRepo() *mockInventoryRepo {
	return &mockInventoryRepo{items: make(map[string]domain.Item)}
}

func (m *mockInventoryRepo) Find(ctx context.Context, name string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[name]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockInventoryRepo) Insert(ctx context.Context, item domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.CanonicalName] = item
	return item, nil
}

func (m *mockInventoryRepo) Update(ctx context.Context, name string, patch domain.ItemPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpdate {
		return false, fmt.Errorf("update %s: %w", name, domain.ErrStoreUnavailable)
	}
	item, ok := m.items[name]
	if !ok {
		return false, nil
	}
	m.items[name] = patch.Apply(item)
	return true, nil
}

func (m *mockInventoryRepo) Delete(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[name]; !ok {
		return false, nil
	}
	delete(m.items, name)
	return true, nil
}

func (m *mockInventoryRepo) ListAll(ctx context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, nil
}

// Mock Locker, one mutex per key
type mockLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newMockLocker() *mockLocker {
	return &mockLocker{locks: make(map[string]chan struct{})}
}

func (l *mockLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.idempotencySet, key)
	return nil
}

// Mock TransactionLog
type mockTransactionLog struct {
	mu  sync.Mutex
	txs []domain.Transaction
}

func (m *mockTransactionLog) Append(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, tx)
	return nil
}

func (m *mockTransactionLog) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Transaction, 0, limit)
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.txs[i])
	}
	return out, nil
}
