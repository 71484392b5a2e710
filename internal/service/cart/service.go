// Package cart keeps a shopper's working order consistent between the session
// cache and the remote order store.
package cart

import (
	"context"
	"fmt"
	"io"
	"log"

	"ordercloud-storefront/internal/domain"
)

// RemoteStore is the part of the remote order API the cart depends on.
type RemoteStore interface {
	orderStore
	lineItemStore
	orderSubmitter
	ListOrders(ctx context.Context) ([]domain.WorkingOrder, error)
}

type Service struct {
	cache    *SessionCache
	resolver *Resolver
	mutator  *Mutator
	checkout *Checkout
	views    *viewRegistry
	remote   RemoteStore
	logger   *log.Logger
}

func New(store kvStore, remote RemoteStore, identity identityProvider, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cache := NewSessionCache(store, logger)
	views := newViewRegistry()
	return &Service{
		cache:    cache,
		resolver: NewResolver(cache, remote, identity, logger),
		mutator:  NewMutator(remote),
		checkout: NewCheckout(cache, remote, views, logger),
		views:    views,
		remote:   remote,
		logger:   logger,
	}
}

func (s *Service) Resolve(ctx context.Context, sessionID string) (*domain.WorkingOrder, error) {
	return s.resolver.Resolve(ctx, sessionID)
}

// Load resolves the working order and rebuilds the cart from its line items.
func (s *Service) Load(ctx context.Context, sessionID string) (View, error) {
	order, err := s.resolver.Resolve(ctx, sessionID)
	if err != nil {
		return emptyView(), err
	}
	return s.reload(ctx, sessionID, order.ID)
}

func (s *Service) AddItem(ctx context.Context, sessionID, productID string) (View, error) {
	return s.mutate(ctx, sessionID, func(orderID string) error {
		_, err := s.mutator.AddItem(ctx, orderID, productID)
		return err
	})
}

func (s *Service) SetQuantity(ctx context.Context, sessionID, lineItemID, productID string, quantity int) (View, error) {
	return s.mutate(ctx, sessionID, func(orderID string) error {
		_, err := s.mutator.SetQuantity(ctx, orderID, lineItemID, productID, quantity)
		return err
	})
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, lineItemID string) (View, error) {
	return s.mutate(ctx, sessionID, func(orderID string) error {
		return s.mutator.RemoveItem(ctx, orderID, lineItemID)
	})
}

func (s *Service) Submit(ctx context.Context, sessionID, orderID string) (*SubmissionResult, error) {
	return s.checkout.Submit(ctx, sessionID, orderID)
}

// ItemCount returns the badge count. When this process has not built a view
// for the session yet, the cached order is listed if it is still open. A
// session without one counts zero and no order is created.
func (s *Service) ItemCount(ctx context.Context, sessionID string) (int, error) {
	if v, ok := s.views.current(sessionID); ok {
		return v.TotalItemCount, nil
	}
	order, err := s.resolver.Active(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if order == nil {
		return 0, nil
	}
	v, err := s.reload(ctx, sessionID, order.ID)
	if err != nil {
		return 0, err
	}
	return v.TotalItemCount, nil
}

// SubscribeItemCount streams badge counts until cancel is called.
func (s *Service) SubscribeItemCount(sessionID string) (<-chan int, func()) {
	return s.views.subscribe(sessionID)
}

// Reset forgets the session's working order, as on logout. The remote order is kept.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	_, err := s.cache.Clear(ctx, sessionID)
	s.views.clear(sessionID)
	s.views.drop(sessionID)
	if err != nil {
		return fmt.Errorf("clear session cache: %w", err)
	}
	return nil
}

// mutate runs op against the working order and always finishes with a full
// reload, also when op failed.
func (s *Service) mutate(ctx context.Context, sessionID string, op func(orderID string) error) (View, error) {
	order, err := s.resolver.Resolve(ctx, sessionID)
	if err != nil {
		return emptyView(), err
	}
	opErr := op(order.ID)
	view, err := s.reload(ctx, sessionID, order.ID)
	if opErr != nil {
		if err != nil {
			s.logger.Printf("cart: reload after failed mutation session=%s order=%s error=%v", sessionID, order.ID, err)
		}
		return view, opErr
	}
	return view, err
}

func (s *Service) reload(ctx context.Context, sessionID, orderID string) (View, error) {
	ticket := s.views.begin(sessionID)
	items, err := s.mutator.ListItems(ctx, orderID)
	if err != nil {
		v, _ := s.views.current(sessionID)
		return v, err
	}
	view := BuildView(items)
	view.OrderID = orderID
	if !s.views.apply(sessionID, ticket, view) {
		// Superseded by a newer rebuild or a clear.
		v, _ := s.views.current(sessionID)
		return v, nil
	}
	return view, nil
}
