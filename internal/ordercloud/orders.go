package ordercloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"ordercloud-storefront/internal/domain"
)

type ocOrder struct {
	ID            string          `json:"ID"`
	FromUserID    string          `json:"FromUserID"`
	FromCompanyID string          `json:"FromCompanyID"`
	Status        string          `json:"Status"`
	LineItemCount int             `json:"LineItemCount"`
	Total         decimal.Decimal `json:"Total"`
	DateCreated   *time.Time      `json:"DateCreated"`
	DateSubmitted *time.Time      `json:"DateSubmitted"`
}

type createOrderRequest struct {
	FromCompanyID string `json:"FromCompanyID"`
	FromUserID    string `json:"FromUserID"`
}

type listMeta struct {
	Page       int `json:"Page"`
	PageSize   int `json:"PageSize"`
	TotalCount int `json:"TotalCount"`
	TotalPages int `json:"TotalPages"`
}

type orderList struct {
	Items []ocOrder `json:"Items"`
	Meta  listMeta  `json:"Meta"`
}

// statusFromRemote maps the remote Status field, the single authoritative
// submission signal, onto domain statuses.
func statusFromRemote(s string) domain.OrderStatus {
	switch s {
	case "Unsubmitted":
		return domain.OrderStatusOpen
	case "Open", "AwaitingApproval":
		return domain.OrderStatusSubmitted
	case "Completed":
		return domain.OrderStatusCompleted
	case "Canceled", "Declined":
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusUnknown
	}
}

func (o ocOrder) toDomain() *domain.WorkingOrder {
	out := &domain.WorkingOrder{
		ID:             o.ID,
		Status:         statusFromRemote(o.Status),
		OwnerUserID:    o.FromUserID,
		OwnerCompanyID: o.FromCompanyID,
		Total:          o.Total,
		LineItemCount:  o.LineItemCount,
		SubmittedAt:    o.DateSubmitted,
	}
	if o.DateCreated != nil {
		out.CreatedAt = *o.DateCreated
	}
	return out
}

// CreateOrder creates a new unsubmitted order owned by user.
func (c *Client) CreateOrder(ctx context.Context, user domain.User) (*domain.WorkingOrder, error) {
	var out ocOrder
	err := c.doJSON(ctx, http.MethodPost, c.ordersPath(), nil, createOrderRequest{
		FromCompanyID: user.CompanyID,
		FromUserID:    user.ID,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if out.ID == "" {
		return nil, &domain.RemoteError{Kind: domain.KindTransient, Message: "create order returned no ID"}
	}
	return out.toDomain(), nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.WorkingOrder, error) {
	var out ocOrder
	if err := c.doJSON(ctx, http.MethodGet, c.ordersPath(orderID), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if out.ID == "" {
		return nil, &domain.RemoteError{Kind: domain.KindTransient, Message: "get order " + orderID + " returned no ID"}
	}
	return out.toDomain(), nil
}

func (c *Client) SubmitOrder(ctx context.Context, orderID string) (*domain.WorkingOrder, error) {
	var out ocOrder
	if err := c.doJSON(ctx, http.MethodPost, c.ordersPath(orderID, "submit"), nil, struct{}{}, &out); err != nil {
		return nil, fmt.Errorf("submit order %s: %w", orderID, err)
	}
	return out.toDomain(), nil
}

// DeleteOrder removes an unsubmitted order.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.ordersPath(orderID), nil, nil, nil); err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}
	return nil
}

// ListOrders returns the shopper's submitted and completed orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]domain.WorkingOrder, error) {
	var result []domain.WorkingOrder
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("Status", "Open|Completed")
		q.Set("sortBy", "!DateSubmitted")
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(pageSize))

		var list orderList
		if err := c.doJSON(ctx, http.MethodGet, c.ordersPath(), q, nil, &list); err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		for _, o := range list.Items {
			result = append(result, *o.toDomain())
		}
		if list.Meta.TotalPages <= page || len(list.Items) == 0 {
			break
		}
	}
	return result, nil
}
