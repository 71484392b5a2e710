package cart

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"ordercloud-storefront/internal/domain"
)

type orderSubmitter interface {
	SubmitOrder(ctx context.Context, orderID string) (*domain.WorkingOrder, error)
}

// SubmissionResult describes an accepted order.
type SubmissionResult struct {
	OrderID     string             `json:"orderId"`
	Status      domain.OrderStatus `json:"status"`
	Total       decimal.Decimal    `json:"total"`
	SubmittedAt time.Time          `json:"submittedAt"`
}

// Checkout submits working orders and retires them from the session.
type Checkout struct {
	cache  *SessionCache
	orders orderSubmitter
	views  *viewRegistry
	logger *log.Logger
	now    func() time.Time
}

func NewCheckout(cache *SessionCache, orders orderSubmitter, views *viewRegistry, logger *log.Logger) *Checkout {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Checkout{cache: cache, orders: orders, views: views, logger: logger, now: time.Now}
}

// Submit places the session's working order. An empty orderID means the cached
// one. Submission never creates an order.
func (c *Checkout) Submit(ctx context.Context, sessionID, orderID string) (*SubmissionResult, error) {
	cached, err := c.cache.Read(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	if cached.ID == "" {
		return nil, domain.ErrNoActiveOrder
	}
	if orderID != "" && orderID != cached.ID {
		return nil, fmt.Errorf("%w: order %s is not the working order", domain.ErrNoActiveOrder, orderID)
	}

	order, err := c.orders.SubmitOrder(ctx, cached.ID)
	if err != nil {
		c.logger.Printf("checkout: submit session=%s order=%s error=%v", sessionID, cached.ID, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}

	if _, ok, err := c.cache.ClearIfUnchanged(ctx, sessionID, cached.Version); err != nil {
		c.logger.Printf("checkout: clear session=%s order=%s error=%v", sessionID, cached.ID, err)
	} else if !ok {
		c.logger.Printf("checkout: session=%s moved on from order=%s before clear", sessionID, cached.ID)
	}
	if c.views != nil {
		c.views.clear(sessionID)
	}

	res := &SubmissionResult{
		OrderID:     cached.ID,
		Status:      order.Status,
		Total:       order.Total,
		SubmittedAt: c.now().UTC(),
	}
	if order.SubmittedAt != nil {
		res.SubmittedAt = *order.SubmittedAt
	}
	return res, nil
}
