package cart

import (
	"context"
	"fmt"

	"ordercloud-storefront/internal/domain"
)

// History lists the shopper's placed orders.
func (s *Service) History(ctx context.Context) ([]domain.WorkingOrder, error) {
	orders, err := s.remote.ListOrders(ctx)
	if err != nil {
		return nil, propagate("list orders", err)
	}
	if orders == nil {
		orders = []domain.WorkingOrder{}
	}
	return orders, nil
}

// OrderDetails returns a placed order with its line items.
func (s *Service) OrderDetails(ctx context.Context, orderID string) (*domain.OrderDetails, error) {
	order, err := s.remote.GetOrder(ctx, orderID)
	if err != nil {
		if domain.IsRemoteKind(err, domain.KindNotFound) {
			return nil, fmt.Errorf("%w: order %s: %w", domain.ErrNotFound, orderID, err)
		}
		return nil, propagate("get order", err)
	}
	items, err := s.mutator.ListItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &domain.OrderDetails{Order: *order, LineItems: items}, nil
}
