package cart

import (
	"sync"

	"github.com/shopspring/decimal"
	"ordercloud-storefront/internal/domain"
)

// ViewLine is the display projection of one line item.
type ViewLine struct {
	LineItemID  string          `json:"lineItemId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// View is the cart as shown to the shopper. It is rebuilt in full from the
// remote line items and never patched.
type View struct {
	OrderID        string          `json:"orderId,omitempty"`
	Lines          []ViewLine      `json:"lines"`
	TotalItemCount int             `json:"totalItemCount"`
	CartTotal      decimal.Decimal `json:"cartTotal"`
}

func emptyView() View {
	return View{Lines: []ViewLine{}, CartTotal: decimal.Zero}
}

// BuildView projects line items in the order the remote store returned them.
func BuildView(items []domain.LineItem) View {
	v := emptyView()
	for _, li := range items {
		v.Lines = append(v.Lines, ViewLine{
			LineItemID:  li.ID,
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			LineTotal:   li.LineTotal,
		})
		v.TotalItemCount += li.Quantity
		v.CartTotal = v.CartTotal.Add(li.LineTotal)
	}
	return v
}

// viewTicket identifies one rebuild. A rebuild may only be applied when no
// clear happened since it began and no later rebuild was applied first.
type viewTicket struct {
	epoch uint64
	seq   uint64
}

type sessionView struct {
	epoch   uint64
	nextSeq uint64
	applied uint64
	loaded  bool
	view    View
	subs    map[uint64]chan int
}

type viewRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionView
	epochs   uint64
	subIDs   uint64
}

func newViewRegistry() *viewRegistry {
	return &viewRegistry{sessions: make(map[string]*sessionView)}
}

func (r *viewRegistry) get(sessionID string) *sessionView {
	sv, ok := r.sessions[sessionID]
	if !ok {
		r.epochs++
		sv = &sessionView{epoch: r.epochs, view: emptyView(), subs: make(map[uint64]chan int)}
		r.sessions[sessionID] = sv
	}
	return sv
}

func (r *viewRegistry) begin(sessionID string) viewTicket {
	r.mu.Lock()
	defer r.mu.Unlock()
	sv := r.get(sessionID)
	sv.nextSeq++
	return viewTicket{epoch: sv.epoch, seq: sv.nextSeq}
}

func (r *viewRegistry) apply(sessionID string, t viewTicket, v View) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sv := r.get(sessionID)
	if t.epoch != sv.epoch || t.seq <= sv.applied {
		return false
	}
	sv.applied = t.seq
	sv.loaded = true
	sv.view = v
	sv.notify()
	return true
}

// clear empties the view and invalidates every rebuild still in flight.
func (r *viewRegistry) clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sv := r.get(sessionID)
	r.epochs++
	sv.epoch = r.epochs
	sv.applied = 0
	sv.nextSeq = 0
	sv.loaded = false
	sv.view = emptyView()
	sv.notify()
}

// drop releases a session nobody is watching. Tickets issued before the drop
// stay invalid because epochs are never reused.
func (r *viewRegistry) drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sv, ok := r.sessions[sessionID]; ok && len(sv.subs) == 0 {
		delete(r.sessions, sessionID)
	}
}

func (r *viewRegistry) current(sessionID string) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sv, ok := r.sessions[sessionID]
	if !ok {
		return emptyView(), false
	}
	return sv.view, sv.loaded
}

// subscribe streams the item count of a session. The current count is
// delivered first; slow readers only ever see the latest count.
func (r *viewRegistry) subscribe(sessionID string) (<-chan int, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sv := r.get(sessionID)
	r.subIDs++
	id := r.subIDs
	ch := make(chan int, 1)
	ch <- sv.view.TotalItemCount
	sv.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			cur, ok := r.sessions[sessionID]
			if !ok {
				return
			}
			delete(cur.subs, id)
			if len(cur.subs) == 0 && !cur.loaded {
				delete(r.sessions, sessionID)
			}
		})
	}
	return ch, cancel
}

func (sv *sessionView) notify() {
	n := sv.view.TotalItemCount
	for _, ch := range sv.subs {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}
