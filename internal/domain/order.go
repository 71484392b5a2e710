package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order as seen by the storefront.
type OrderStatus string

const (
	// OrderStatusOpen marks an unsubmitted order that may serve as the working cart.
	OrderStatusOpen      OrderStatus = "Open"
	OrderStatusSubmitted OrderStatus = "Submitted"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCanceled  OrderStatus = "Canceled"
	OrderStatusUnknown   OrderStatus = "Unknown"
)

// Reusable reports whether an order in this status can keep accumulating line items.
func (s OrderStatus) Reusable() bool {
	return s == OrderStatusOpen
}

// WorkingOrder is an order owned by the remote store.
type WorkingOrder struct {
	ID             string          `json:"id"`
	Status         OrderStatus     `json:"status"`
	OwnerUserID    string          `json:"ownerUserId"`
	OwnerCompanyID string          `json:"ownerCompanyId"`
	Total          decimal.Decimal `json:"total"`
	LineItemCount  int             `json:"lineItemCount"`
	CreatedAt      time.Time       `json:"createdAt"`
	SubmittedAt    *time.Time      `json:"submittedAt,omitempty"`
}

// LineItem is one product entry of an order. Prices are authoritative from the remote store.
type LineItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderDetails bundles an order with its line items for history views.
type OrderDetails struct {
	Order     WorkingOrder `json:"order"`
	LineItems []LineItem   `json:"lineItems"`
}
