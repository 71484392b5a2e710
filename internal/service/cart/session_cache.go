package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"ordercloud-storefront/internal/domain"
	sessionrepo "ordercloud-storefront/internal/repository/session"
)

const orderKeySuffix = "oc_active_order_id"

type kvStore interface {
	Get(ctx context.Context, key string) (sessionrepo.Entry, error)
	Set(ctx context.Context, key, value string) (int64, error)
	CompareAndSet(ctx context.Context, key, value string, expectVersion int64) (int64, bool, error)
}

// CachedOrder is the active order pointer as read at one instant. An empty ID
// means there is no active order; Version orders successive writes.
type CachedOrder struct {
	ID      string
	Version int64
}

// SessionCache persists the active order id of each shopper session. Clearing
// writes an empty value rather than deleting, so versions never go backwards.
type SessionCache struct {
	store  kvStore
	logger *log.Logger
}

func NewSessionCache(store kvStore, logger *log.Logger) *SessionCache {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &SessionCache{store: store, logger: logger}
}

func orderKey(sessionID string) string {
	return "session:" + sessionID + ":" + orderKeySuffix
}

func (c *SessionCache) Read(ctx context.Context, sessionID string) (CachedOrder, error) {
	e, err := c.store.Get(ctx, orderKey(sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return CachedOrder{}, nil
		}
		c.logger.Printf("session cache: read session=%s error=%v", sessionID, err)
		return CachedOrder{}, err
	}
	return CachedOrder{ID: e.Value, Version: e.Version}, nil
}

func (c *SessionCache) Write(ctx context.Context, sessionID, orderID string) error {
	_, err := c.store.Set(ctx, orderKey(sessionID), orderID)
	return err
}

// Clear forgets the active order unconditionally and returns the new version.
func (c *SessionCache) Clear(ctx context.Context, sessionID string) (int64, error) {
	return c.store.Set(ctx, orderKey(sessionID), "")
}

// WriteIfUnchanged stores orderID only if nothing was written since version was read.
func (c *SessionCache) WriteIfUnchanged(ctx context.Context, sessionID, orderID string, version int64) (int64, bool, error) {
	return c.store.CompareAndSet(ctx, orderKey(sessionID), orderID, version)
}

func (c *SessionCache) ClearIfUnchanged(ctx context.Context, sessionID string, version int64) (int64, bool, error) {
	if version == 0 {
		// Nothing was ever stored, so there is nothing to clear.
		return 0, true, nil
	}
	return c.store.CompareAndSet(ctx, orderKey(sessionID), "", version)
}
