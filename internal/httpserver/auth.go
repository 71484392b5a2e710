package httpserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type authHandler struct {
	sessions sessionService
	cart     cartService
	identity identityService
	logger   *log.Logger
}

func (h *authHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	sid, expiresAt, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, "login", err, nil)
		return
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sid, maxAge, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, loginResponse{SessionID: sid, ExpiresAt: expiresAt})
}

// logout retires the working order pointer together with the session token.
func (h *authHandler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	sid := sessionID(c)
	if err := h.cart.Reset(ctx, sid); err != nil {
		h.logger.Printf("http: logout reset cart session=%s error=%v", sid, err)
	}
	if err := h.sessions.Logout(ctx, sid); err != nil {
		writeError(c, h.logger, "logout", err, nil)
		return
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Status(http.StatusNoContent)
}

func (h *authHandler) me(c *gin.Context) {
	user, err := h.identity.CurrentUser(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "me", err, nil)
		return
	}
	c.JSON(http.StatusOK, user)
}
