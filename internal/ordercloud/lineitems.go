package ordercloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"ordercloud-storefront/internal/domain"
)

// pageSize is the largest page the API serves.
const pageSize = 100

type ocLineItem struct {
	ID        string          `json:"ID"`
	ProductID string          `json:"ProductID"`
	Quantity  int             `json:"Quantity"`
	UnitPrice decimal.Decimal `json:"UnitPrice"`
	LineTotal decimal.Decimal `json:"LineTotal"`
	Product   *struct {
		ID   string `json:"ID"`
		Name string `json:"Name"`
	} `json:"Product"`
}

type lineItemWrite struct {
	ProductID string `json:"ProductID"`
	Quantity  int    `json:"Quantity"`
}

type lineItemList struct {
	Items []ocLineItem `json:"Items"`
	Meta  listMeta     `json:"Meta"`
}

func (li ocLineItem) toDomain(orderID string) domain.LineItem {
	out := domain.LineItem{
		ID:        li.ID,
		OrderID:   orderID,
		ProductID: li.ProductID,
		Quantity:  li.Quantity,
		UnitPrice: li.UnitPrice,
		LineTotal: li.LineTotal,
	}
	if li.Product != nil {
		if out.ProductID == "" {
			out.ProductID = li.Product.ID
		}
		out.ProductName = li.Product.Name
	}
	if out.ProductName == "" {
		out.ProductName = out.ProductID
	}
	return out
}

// ListLineItems reads every page of the order's line items.
func (c *Client) ListLineItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	items := []domain.LineItem{}
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(pageSize))

		var list lineItemList
		if err := c.doJSON(ctx, http.MethodGet, c.ordersPath(orderID, "lineitems"), q, nil, &list); err != nil {
			return nil, fmt.Errorf("list line items %s: %w", orderID, err)
		}
		for _, li := range list.Items {
			items = append(items, li.toDomain(orderID))
		}
		if list.Meta.TotalPages <= page || len(list.Items) == 0 {
			break
		}
	}
	return items, nil
}

func (c *Client) AddLineItem(ctx context.Context, orderID, productID string, quantity int) (*domain.LineItem, error) {
	var out ocLineItem
	err := c.doJSON(ctx, http.MethodPost, c.ordersPath(orderID, "lineitems"), nil, lineItemWrite{
		ProductID: productID,
		Quantity:  quantity,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("add line item %s/%s: %w", orderID, productID, err)
	}
	li := out.toDomain(orderID)
	return &li, nil
}

// UpdateLineItem replaces quantity and product of a line item. The product is
// required on every update so the store can revalidate price and availability.
func (c *Client) UpdateLineItem(ctx context.Context, orderID, lineItemID, productID string, quantity int) (*domain.LineItem, error) {
	var out ocLineItem
	err := c.doJSON(ctx, http.MethodPut, c.ordersPath(orderID, "lineitems", lineItemID), nil, lineItemWrite{
		ProductID: productID,
		Quantity:  quantity,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("update line item %s/%s: %w", orderID, lineItemID, err)
	}
	li := out.toDomain(orderID)
	return &li, nil
}

func (c *Client) DeleteLineItem(ctx context.Context, orderID, lineItemID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.ordersPath(orderID, "lineitems", lineItemID), nil, nil, nil); err != nil {
		return fmt.Errorf("delete line item %s/%s: %w", orderID, lineItemID, err)
	}
	return nil
}
