package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
	"ordercloud-storefront/internal/domain"
)

const (
	maxResolveAttempts = 3
	resolveTimeout     = 30 * time.Second
	discardTimeout     = 5 * time.Second
)

type orderStore interface {
	CreateOrder(ctx context.Context, user domain.User) (*domain.WorkingOrder, error)
	GetOrder(ctx context.Context, orderID string) (*domain.WorkingOrder, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

type identityProvider interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Resolver finds the session's working order, creating one only when the
// cached pointer is absent or no longer denotes an open order.
type Resolver struct {
	cache    *SessionCache
	orders   orderStore
	identity identityProvider
	logger   *log.Logger
	group    singleflight.Group
}

func NewResolver(cache *SessionCache, orders orderStore, identity identityProvider, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{cache: cache, orders: orders, identity: identity, logger: logger}
}

// Resolve returns the open working order of the session. Concurrent calls for
// one session share a single resolution, which outlives the caller that
// started it.
func (r *Resolver) Resolve(ctx context.Context, sessionID string) (*domain.WorkingOrder, error) {
	v, err, _ := r.group.Do(sessionID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return r.resolve(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	order := *v.(*domain.WorkingOrder)
	return &order, nil
}

func (r *Resolver) resolve(ctx context.Context, sessionID string) (*domain.WorkingOrder, error) {
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		cached, err := r.cache.Read(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("read session cache: %w", err)
		}
		version := cached.Version

		if cached.ID != "" {
			order, err := r.orders.GetOrder(ctx, cached.ID)
			switch {
			case err == nil && order.Status.Reusable():
				return order, nil
			case err == nil:
				r.logger.Printf("cart resolver: session=%s order=%s status=%s is terminal, replacing", sessionID, cached.ID, order.Status)
			case domain.IsRemoteKind(err, domain.KindNotFound, domain.KindBadRequest):
				r.logger.Printf("cart resolver: session=%s order=%s is stale, replacing: %v", sessionID, cached.ID, err)
			default:
				return nil, propagate("validate cached order", err)
			}

			v, ok, err := r.cache.ClearIfUnchanged(ctx, sessionID, version)
			if err != nil {
				return nil, fmt.Errorf("clear session cache: %w", err)
			}
			if !ok {
				continue
			}
			version = v
		}

		order, err := r.create(ctx)
		if err != nil {
			return nil, err
		}

		_, ok, err := r.cache.WriteIfUnchanged(ctx, sessionID, order.ID, version)
		if err != nil {
			r.discard(ctx, order.ID)
			return nil, fmt.Errorf("write session cache: %w", err)
		}
		if ok {
			r.logger.Printf("cart resolver: session=%s created order=%s", sessionID, order.ID)
			return order, nil
		}

		// Someone else moved the pointer while the order was being created.
		r.discard(ctx, order.ID)
		now, err := r.cache.Read(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("read session cache: %w", err)
		}
		if now.ID == "" {
			return nil, domain.ErrSessionReset
		}
	}
	return nil, domain.ErrSessionReset
}

// Active returns the cached working order if it is still open, and nil when
// the session has none. It never creates or clears anything.
func (r *Resolver) Active(ctx context.Context, sessionID string) (*domain.WorkingOrder, error) {
	cached, err := r.cache.Read(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	if cached.ID == "" {
		return nil, nil
	}
	order, err := r.orders.GetOrder(ctx, cached.ID)
	switch {
	case err == nil && order.Status.Reusable():
		return order, nil
	case err == nil, domain.IsRemoteKind(err, domain.KindNotFound, domain.KindBadRequest):
		return nil, nil
	default:
		return nil, propagate("validate cached order", err)
	}
}

func (r *Resolver) create(ctx context.Context) (*domain.WorkingOrder, error) {
	user, err := r.identity.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityUnavailable) {
			return nil, err
		}
		return nil, propagate("current user", err)
	}
	if !user.CanOwnOrders() {
		return nil, domain.ErrIdentityUnavailable
	}
	order, err := r.orders.CreateOrder(ctx, *user)
	if err != nil {
		return nil, propagate("create order", err)
	}
	return order, nil
}

// discard deletes an order that lost the race to become the working order.
func (r *Resolver) discard(ctx context.Context, orderID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := r.orders.DeleteOrder(ctx, orderID); err != nil {
		r.logger.Printf("cart resolver: discard order=%s error=%v", orderID, err)
	}
}

// propagate wraps a remote failure that must reach the caller unrecovered.
func propagate(op string, err error) error {
	switch domain.RemoteKind(err) {
	case domain.KindUnauthorized:
		return fmt.Errorf("%w: %s: %w", domain.ErrIdentityUnavailable, op, err)
	case domain.KindTransient:
		return fmt.Errorf("%w: %s: %w", domain.ErrTransient, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
