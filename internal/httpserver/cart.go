package httpserver

import (
	"io"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const socketWriteTimeout = 10 * time.Second

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type setQuantityRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

type submitRequest struct {
	OrderID string `json:"orderId"`
}

type countMessage struct {
	Count int `json:"count"`
}

type cartHandler struct {
	svc      cartService
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
		},
	}
}

func (h *cartHandler) get(c *gin.Context) {
	view, err := h.svc.Load(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, h.logger, "load cart", err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	view, err := h.svc.AddItem(c.Request.Context(), sessionID(c), req.ProductID)
	if err != nil {
		writeError(c, h.logger, "add item", err, gin.H{"cart": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandler) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId and quantity are required"})
		return
	}
	view, err := h.svc.SetQuantity(c.Request.Context(), sessionID(c), c.Param("lineItemId"), req.ProductID, *req.Quantity)
	if err != nil {
		writeError(c, h.logger, "set quantity", err, gin.H{"cart": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandler) removeItem(c *gin.Context) {
	view, err := h.svc.RemoveItem(c.Request.Context(), sessionID(c), c.Param("lineItemId"))
	if err != nil {
		writeError(c, h.logger, "remove item", err, gin.H{"cart": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *cartHandler) submit(c *gin.Context) {
	var req submitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	res, err := h.svc.Submit(c.Request.Context(), sessionID(c), req.OrderID)
	if err != nil {
		writeError(c, h.logger, "submit", err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *cartHandler) count(c *gin.Context) {
	n, err := h.svc.ItemCount(c.Request.Context(), sessionID(c))
	if err != nil {
		writeError(c, h.logger, "count", err, nil)
		return
	}
	c.JSON(http.StatusOK, countMessage{Count: n})
}

// countStream pushes the badge count as server-sent events until the client goes away.
func (h *cartHandler) countStream(c *gin.Context) {
	sid := sessionID(c)
	if _, err := h.svc.ItemCount(c.Request.Context(), sid); err != nil {
		writeError(c, h.logger, "count stream", err, nil)
		return
	}
	counts, cancel := h.svc.SubscribeItemCount(sid)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case n, ok := <-counts:
			if !ok {
				return false
			}
			c.SSEvent("count", countMessage{Count: n})
			return true
		}
	})
}

// countSocket is the websocket flavour of countStream.
func (h *cartHandler) countSocket(c *gin.Context) {
	sid := sessionID(c)
	if _, err := h.svc.ItemCount(c.Request.Context(), sid); err != nil {
		writeError(c, h.logger, "count socket", err, nil)
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("http: count socket upgrade session=%s error=%v", sid, err)
		return
	}
	defer conn.Close()

	counts, cancel := h.svc.SubscribeItemCount(sid)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case n, ok := <-counts:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
			if err := conn.WriteJSON(countMessage{Count: n}); err != nil {
				return
			}
		}
	}
}

func (h *cartHandler) history(c *gin.Context) {
	orders, err := h.svc.History(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "history", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *cartHandler) orderDetails(c *gin.Context) {
	details, err := h.svc.OrderDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "order details", err, nil)
		return
	}
	c.JSON(http.StatusOK, details)
}
