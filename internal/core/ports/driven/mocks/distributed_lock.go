package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock keeps sync locks (sync:{collection}) in memory with
// expiry, so ticket sync tests can hold, lose or inspect a run's lock.
type MockDistributedLock struct {
	mu    sync.Mutex
	locks map[string]heldLock

	// AcquireFn and ExtendFn replace the in-memory behaviour when set
	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ExtendFn  func(name string, ttl time.Duration) error
}

type heldLock struct {
	holder  string
	expires time.Time
}

func (h heldLock) live() bool {
	return time.Now().Before(h.expires)
}

// NewMockDistributedLock creates an empty MockDistributedLock
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{locks: make(map[string]heldLock)}
}

// Acquire takes name for this run unless a live entry exists.
func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.locks[name]; ok && h.live() {
		return false, nil
	}
	m.locks[name] = heldLock{holder: "this-run", expires: time.Now().Add(ttl)}
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, name)
	return nil
}

// Extend pushes the expiry of a live lock held by this run.
func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.locks[name]
	if !ok || !h.live() || h.holder != "this-run" {
		return fmt.Errorf("lock %s not held", name)
	}
	h.expires = time.Now().Add(ttl)
	m.locks[name] = h
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// IsHeld reports whether name has a live entry, whoever holds it.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.locks[name]
	return ok && h.live()
}

// SetLockHeld simulates another run holding name for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = heldLock{holder: "other-run", expires: time.Now().Add(ttl)}
}
