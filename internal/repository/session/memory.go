package session

import (
	"context"
	"sync"

	"ordercloud-storefront/internal/domain"
)

// MemoryRepo is a process-local Repository. Values do not survive a restart.
type MemoryRepo struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemory() *MemoryRepo {
	return &MemoryRepo{entries: make(map[string]Entry)}
}

func (r *MemoryRepo) Get(_ context.Context, key string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) Set(_ context.Context, key, value string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[key]
	e.Value = value
	e.Version++
	r.entries[key] = e
	return e.Version, nil
}

func (r *MemoryRepo) CompareAndSet(_ context.Context, key, value string, expectVersion int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[key]
	if e.Version != expectVersion {
		return e.Version, false, nil
	}
	e = Entry{Value: value, Version: e.Version + 1}
	r.entries[key] = e
	return e.Version, true, nil
}

func (r *MemoryRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, key)
	return nil
}
