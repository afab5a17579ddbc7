package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process IdempotencyStore for tests and local tooling.
// TTLs are ignored.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MemoryStore) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

func (m *MemoryStore) ClaimKey(scope, id string) string {
	return buildKey(claimPrefix, scope, id)
}

func (m *MemoryStore) LockKey(name string) string {
	return buildKey(lockPrefix, name)
}

func (m *MemoryStore) RateLimitKey(scope, id string) string {
	return buildKey(rateLimitPrefix, scope, id)
}

// IncrWithTTL increments a counter stored as a decimal string.
func (m *MemoryStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, err := strconv.ParseInt(m.data[key], 10, 64)
	if err != nil && m.data[key] != "" {
		return 0, fmt.Errorf("value at %s is not a counter", key)
	}
	current++
	m.data[key] = strconv.FormatInt(current, 10)
	return current, nil
}

// Len reports how many keys are held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

var _ IdempotencyStore = (*MemoryStore)(nil)
var _ IdempotencyStore = (*Client)(nil)
