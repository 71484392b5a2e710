package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"ordercloud-storefront/internal/domain"
)

// fakeRemote is an in-memory remote order store and identity provider.
type fakeRemote struct {
	mu     sync.Mutex
	orders map[string]*domain.WorkingOrder
	items  map[string][]domain.LineItem
	prices map[string]decimal.Decimal

	nextOrder int
	nextLine  int

	user    *domain.User
	userErr error

	getErr    error
	createErr error
	addErr    error
	updateErr error
	listErr   error
	submitErr error

	// onCreate runs after an order is created, before it is returned.
	onCreate func(orderID string)

	createCalls int
	updateCalls int
	deleteCalls int
	deleted     []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		orders: make(map[string]*domain.WorkingOrder),
		items:  make(map[string][]domain.LineItem),
		prices: map[string]decimal.Decimal{},
		user:   &domain.User{ID: "u1", CompanyID: "c1"},
	}
}

func notFound(what string) error {
	return &domain.RemoteError{Kind: domain.KindNotFound, StatusCode: 404, Code: "NotFound", Message: what + " not found"}
}

func (f *fakeRemote) seedOrder(id string, status domain.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id] = &domain.WorkingOrder{ID: id, Status: status, OwnerUserID: "u1", OwnerCompanyID: "c1"}
}

func (f *fakeRemote) price(productID string) decimal.Decimal {
	if p, ok := f.prices[productID]; ok {
		return p
	}
	return decimal.NewFromInt(10)
}

func (f *fakeRemote) CurrentUser(_ context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return nil, f.userErr
	}
	if f.user == nil {
		return nil, domain.ErrIdentityUnavailable
	}
	u := *f.user
	return &u, nil
}

func (f *fakeRemote) CreateOrder(ctx context.Context, user domain.User) (*domain.WorkingOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.RemoteError{Kind: domain.KindTransient, Err: err}
	}
	f.mu.Lock()
	f.createCalls++
	if f.createErr != nil {
		f.mu.Unlock()
		return nil, f.createErr
	}
	f.nextOrder++
	o := &domain.WorkingOrder{
		ID:             fmt.Sprintf("O%d", f.nextOrder),
		Status:         domain.OrderStatusOpen,
		OwnerUserID:    user.ID,
		OwnerCompanyID: user.CompanyID,
	}
	f.orders[o.ID] = o
	hook := f.onCreate
	f.mu.Unlock()

	if hook != nil {
		hook(o.ID)
	}
	out := *o
	return &out, nil
}

func (f *fakeRemote) GetOrder(_ context.Context, orderID string) (*domain.WorkingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, notFound("order " + orderID)
	}
	out := *o
	return &out, nil
}

func (f *fakeRemote) DeleteOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, orderID)
	delete(f.orders, orderID)
	delete(f.items, orderID)
	return nil
}

func (f *fakeRemote) SubmitOrder(_ context.Context, orderID string) (*domain.WorkingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, notFound("order " + orderID)
	}
	o.Status = domain.OrderStatusSubmitted
	total := decimal.Zero
	for _, li := range f.items[orderID] {
		total = total.Add(li.LineTotal)
	}
	o.Total = total
	out := *o
	return &out, nil
}

func (f *fakeRemote) ListOrders(_ context.Context) ([]domain.WorkingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WorkingOrder
	for _, o := range f.orders {
		if o.Status == domain.OrderStatusSubmitted || o.Status == domain.OrderStatusCompleted {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeRemote) ListLineItems(_ context.Context, orderID string) ([]domain.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if _, ok := f.orders[orderID]; !ok {
		return nil, notFound("order " + orderID)
	}
	return append([]domain.LineItem(nil), f.items[orderID]...), nil
}

func (f *fakeRemote) AddLineItem(_ context.Context, orderID, productID string, quantity int) (*domain.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	if _, ok := f.orders[orderID]; !ok {
		return nil, notFound("order " + orderID)
	}
	items := f.items[orderID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
			out := items[i]
			return &out, nil
		}
	}
	f.nextLine++
	unit := f.price(productID)
	li := domain.LineItem{
		ID:          fmt.Sprintf("L%d", f.nextLine),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: "Product " + productID,
		Quantity:    quantity,
		UnitPrice:   unit,
		LineTotal:   unit.Mul(decimal.NewFromInt(int64(quantity))),
	}
	f.items[orderID] = append(items, li)
	return &li, nil
}

func (f *fakeRemote) UpdateLineItem(_ context.Context, orderID, lineItemID, productID string, quantity int) (*domain.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	items := f.items[orderID]
	for i := range items {
		if items[i].ID == lineItemID {
			items[i].ProductID = productID
			items[i].Quantity = quantity
			items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
			out := items[i]
			return &out, nil
		}
	}
	return nil, notFound("line item " + lineItemID)
}

func (f *fakeRemote) DeleteLineItem(_ context.Context, orderID, lineItemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	items := f.items[orderID]
	for i := range items {
		if items[i].ID == lineItemID {
			f.items[orderID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return notFound("line item " + lineItemID)
}

func (f *fakeRemote) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}
