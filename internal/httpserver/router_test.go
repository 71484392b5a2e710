package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"ordercloud-storefront/internal/domain"
	"ordercloud-storefront/internal/ordercloud"
	cartsvc "ordercloud-storefront/internal/service/cart"
	sessionsvc "ordercloud-storefront/internal/service/session"
)

const testSID = "0b6f7c8e-2f44-4d0e-9c55-3f0f4b1f0a11"

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubSessions struct {
	token      string
	lookupErr  error
	loginErr   error
	loggedOut  string
	lastLookup string
}

func (s *stubSessions) Login(_ context.Context, _, _ string) (string, time.Time, error) {
	if s.loginErr != nil {
		return "", time.Time{}, s.loginErr
	}
	return testSID, time.Now().Add(time.Hour), nil
}

func (s *stubSessions) Lookup(_ context.Context, sid string) (string, error) {
	s.lastLookup = sid
	return s.token, s.lookupErr
}

func (s *stubSessions) Logout(_ context.Context, sid string) error {
	s.loggedOut = sid
	return nil
}

type stubCart struct {
	view      cartsvc.View
	err       error
	submitRes *cartsvc.SubmissionResult
	count     int
	counts    chan int
	orders    []domain.WorkingOrder
	details   *domain.OrderDetails

	lastSession   string
	lastToken     string
	lastProduct   string
	lastLineItem  string
	lastQuantity  int
	lastSubmitted string
	resetCalls    int
}

func (s *stubCart) record(ctx context.Context, sid string) {
	s.lastSession = sid
	s.lastToken, _ = ordercloud.AccessTokenFrom(ctx)
}

func (s *stubCart) Load(ctx context.Context, sid string) (cartsvc.View, error) {
	s.record(ctx, sid)
	return s.view, s.err
}

func (s *stubCart) AddItem(ctx context.Context, sid, productID string) (cartsvc.View, error) {
	s.record(ctx, sid)
	s.lastProduct = productID
	return s.view, s.err
}

func (s *stubCart) SetQuantity(ctx context.Context, sid, lineItemID, productID string, qty int) (cartsvc.View, error) {
	s.record(ctx, sid)
	s.lastLineItem = lineItemID
	s.lastProduct = productID
	s.lastQuantity = qty
	return s.view, s.err
}

func (s *stubCart) RemoveItem(ctx context.Context, sid, lineItemID string) (cartsvc.View, error) {
	s.record(ctx, sid)
	s.lastLineItem = lineItemID
	return s.view, s.err
}

func (s *stubCart) Submit(ctx context.Context, sid, orderID string) (*cartsvc.SubmissionResult, error) {
	s.record(ctx, sid)
	s.lastSubmitted = orderID
	return s.submitRes, s.err
}

func (s *stubCart) ItemCount(ctx context.Context, sid string) (int, error) {
	s.record(ctx, sid)
	return s.count, s.err
}

func (s *stubCart) SubscribeItemCount(_ string) (<-chan int, func()) {
	return s.counts, func() {}
}

func (s *stubCart) Reset(_ context.Context, sid string) error {
	s.resetCalls++
	s.lastSession = sid
	return nil
}

func (s *stubCart) History(ctx context.Context) ([]domain.WorkingOrder, error) {
	s.record(ctx, "")
	return s.orders, s.err
}

func (s *stubCart) OrderDetails(ctx context.Context, _ string) (*domain.OrderDetails, error) {
	s.record(ctx, "")
	return s.details, s.err
}

type stubIdentity struct {
	user *domain.User
	err  error
}

func (s *stubIdentity) CurrentUser(_ context.Context) (*domain.User, error) {
	return s.user, s.err
}

func newTestRouter(t *testing.T, sessions *stubSessions, cart *stubCart) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(logDiscard(), Deps{
		Sessions:       sessions,
		Cart:           cart,
		Identity:       &stubIdentity{user: &domain.User{ID: "u1", CompanyID: "c1"}},
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func sessionRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Session "+testSID)
	return req
}

func TestBuildRouter_RequiresServices(t *testing.T) {
	if _, err := buildRouter(logDiscard(), Deps{}); err == nil {
		t.Fatalf("expected error for missing services")
	}
}

func TestSessionMiddleware_AttachesToken(t *testing.T) {
	sessions := &stubSessions{token: "tok-1"}
	cart := &stubCart{view: cartsvc.View{}}
	router := newTestRouter(t, sessions, cart)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, sessionRequest(http.MethodGet, "/cart", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if cart.lastSession != testSID || cart.lastToken != "tok-1" {
		t.Fatalf("session not propagated: session=%q token=%q", cart.lastSession, cart.lastToken)
	}
}

func TestSessionMiddleware_Cookie(t *testing.T) {
	sessions := &stubSessions{token: "tok-1"}
	router := newTestRouter(t, sessions, &stubCart{})

	req := httptest.NewRequest(http.MethodGet, "/cart/count", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: testSID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || sessions.lastLookup != testSID {
		t.Fatalf("expected cookie session, got %d lookup=%q", rec.Code, sessions.lastLookup)
	}
}

func TestSessionMiddleware_Missing(t *testing.T) {
	router := newTestRouter(t, &stubSessions{}, &stubCart{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionMiddleware_Expired(t *testing.T) {
	router := newTestRouter(t, &stubSessions{lookupErr: domain.ErrInvalidSession}, &stubCart{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, sessionRequest(http.MethodGet, "/cart", ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionMiddleware_StoreDown(t *testing.T) {
	router := newTestRouter(t, &stubSessions{lookupErr: errors.New("dial tcp: refused")}, &stubCart{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, sessionRequest(http.MethodGet, "/cart", ""))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t, &stubSessions{}, &stubCart{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReady_StoreUnreachable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", readyHandler(failingPinger{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, &stubSessions{}, &stubCart{})

	req := httptest.NewRequest(http.MethodOptions, "/cart/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q (status %d)", got, rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{sessionsvc.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrIdentityUnavailable, http.StatusUnauthorized},
		{domain.ErrInvalidSession, http.StatusUnauthorized},
		{domain.ErrNoActiveOrder, http.StatusConflict},
		{domain.ErrSessionReset, http.StatusConflict},
		{domain.ErrMutationRejected, http.StatusUnprocessableEntity},
		{domain.ErrTransient, http.StatusServiceUnavailable},
		{domain.ErrSubmissionFailed, http.StatusBadGateway},
		{domain.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
