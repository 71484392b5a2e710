package session

import "context"

// Entry is a stored value together with its monotonic version.
// An absent key has version 0.
type Entry struct {
	Value   string
	Version int64
}

// Repository is durable key/value storage scoped to shopper sessions.
type Repository interface {
	// Get returns domain.ErrNotFound with a zero Entry when the key is absent or expired.
	Get(ctx context.Context, key string) (Entry, error)
	// Set stores value unconditionally and returns the new version.
	Set(ctx context.Context, key, value string) (int64, error)
	// CompareAndSet stores value only if the current version equals expectVersion
	// and reports the new version. An expectVersion of 0 means the key must be absent.
	CompareAndSet(ctx context.Context, key, value string, expectVersion int64) (int64, bool, error)
	Delete(ctx context.Context, key string) error
}
