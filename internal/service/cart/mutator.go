package cart

import (
	"context"
	"fmt"
	"strings"

	"ordercloud-storefront/internal/domain"
)

type lineItemStore interface {
	ListLineItems(ctx context.Context, orderID string) ([]domain.LineItem, error)
	AddLineItem(ctx context.Context, orderID, productID string, quantity int) (*domain.LineItem, error)
	UpdateLineItem(ctx context.Context, orderID, lineItemID, productID string, quantity int) (*domain.LineItem, error)
	DeleteLineItem(ctx context.Context, orderID, lineItemID string) error
}

// Mutator changes the line items of a resolved working order.
type Mutator struct {
	items lineItemStore
}

func NewMutator(items lineItemStore) *Mutator {
	return &Mutator{items: items}
}

func (m *Mutator) ListItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	items, err := m.items.ListLineItems(ctx, orderID)
	if err != nil {
		return nil, propagate("list line items", err)
	}
	return items, nil
}

// AddItem adds one unit of productID. Merging with an existing line is left to the remote store.
func (m *Mutator) AddItem(ctx context.Context, orderID, productID string) (*domain.LineItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", domain.ErrMutationRejected)
	}
	li, err := m.items.AddLineItem(ctx, orderID, productID, 1)
	if err != nil {
		return nil, rejected("add line item", err)
	}
	return li, nil
}

// SetQuantity updates a line item. Quantities below one remove it.
func (m *Mutator) SetQuantity(ctx context.Context, orderID, lineItemID, productID string, quantity int) (*domain.LineItem, error) {
	if quantity < 1 {
		return nil, m.RemoveItem(ctx, orderID, lineItemID)
	}
	lineItemID = strings.TrimSpace(lineItemID)
	productID = strings.TrimSpace(productID)
	if lineItemID == "" {
		return nil, fmt.Errorf("%w: line item id required", domain.ErrMutationRejected)
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", domain.ErrMutationRejected)
	}
	li, err := m.items.UpdateLineItem(ctx, orderID, lineItemID, productID, quantity)
	if err != nil {
		return nil, rejected("update line item", err)
	}
	return li, nil
}

func (m *Mutator) RemoveItem(ctx context.Context, orderID, lineItemID string) error {
	lineItemID = strings.TrimSpace(lineItemID)
	if lineItemID == "" {
		return fmt.Errorf("%w: line item id required", domain.ErrMutationRejected)
	}
	if err := m.items.DeleteLineItem(ctx, orderID, lineItemID); err != nil {
		return rejected("delete line item", err)
	}
	return nil
}

// rejected wraps a failed mutation. Failures with a definite answer from the
// remote store become domain.ErrMutationRejected.
func rejected(op string, err error) error {
	switch domain.RemoteKind(err) {
	case domain.KindTransient, domain.KindUnauthorized:
		return propagate(op, err)
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrMutationRejected, op, err)
	}
}
