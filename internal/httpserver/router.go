package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"ordercloud-storefront/internal/domain"
	cartsvc "ordercloud-storefront/internal/service/cart"
)

type sessionService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Lookup(ctx context.Context, sessionID string) (string, error)
	Logout(ctx context.Context, sessionID string) error
}

type cartService interface {
	Load(ctx context.Context, sessionID string) (cartsvc.View, error)
	AddItem(ctx context.Context, sessionID, productID string) (cartsvc.View, error)
	SetQuantity(ctx context.Context, sessionID, lineItemID, productID string, quantity int) (cartsvc.View, error)
	RemoveItem(ctx context.Context, sessionID, lineItemID string) (cartsvc.View, error)
	Submit(ctx context.Context, sessionID, orderID string) (*cartsvc.SubmissionResult, error)
	ItemCount(ctx context.Context, sessionID string) (int, error)
	SubscribeItemCount(sessionID string) (<-chan int, func())
	Reset(ctx context.Context, sessionID string) error
	History(ctx context.Context) ([]domain.WorkingOrder, error)
	OrderDetails(ctx context.Context, orderID string) (*domain.OrderDetails, error)
}

type identityService interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Deps are the services behind the HTTP surface.
type Deps struct {
	Sessions       sessionService
	Cart           cartService
	Identity       identityService
	Ready          Pinger
	AllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Cart == nil || deps.Identity == nil {
		return nil, errors.New("httpserver: sessions, cart and identity are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	auth := &authHandler{sessions: deps.Sessions, cart: deps.Cart, identity: deps.Identity, logger: logger}
	router.POST("/auth/login", auth.login)

	shopper := router.Group("/", sessionMiddleware(deps.Sessions))
	shopper.POST("/auth/logout", auth.logout)
	shopper.GET("/me", auth.me)

	cart := &cartHandler{svc: deps.Cart, logger: logger, upgrader: newUpgrader(deps.AllowedOrigins)}
	shopper.GET("/cart", cart.get)
	shopper.POST("/cart/items", cart.addItem)
	shopper.PUT("/cart/items/:lineItemId", cart.setQuantity)
	shopper.DELETE("/cart/items/:lineItemId", cart.removeItem)
	shopper.POST("/cart/submit", cart.submit)
	shopper.GET("/cart/count", cart.count)
	shopper.GET("/cart/count/stream", cart.countStream)
	shopper.GET("/cart/count/ws", cart.countSocket)

	shopper.GET("/orders", cart.history)
	shopper.GET("/orders/:id", cart.orderDetails)

	return router, nil
}
