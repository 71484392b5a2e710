package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"ordercloud-storefront/internal/domain"
	sessionsvc "ordercloud-storefront/internal/service/session"
)

// statusFor maps a service error to an HTTP status and an actionable message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, sessionsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, domain.ErrInvalidSession), errors.Is(err, domain.ErrIdentityUnavailable):
		return http.StatusUnauthorized, "session expired, please log in again"
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway, "order could not be submitted, please retry"
	case errors.Is(err, domain.ErrNoActiveOrder):
		return http.StatusConflict, "there is no active cart"
	case errors.Is(err, domain.ErrSessionReset):
		return http.StatusConflict, "your session changed, please retry"
	case errors.Is(err, domain.ErrMutationRejected):
		return http.StatusUnprocessableEntity, "cart change rejected, please refresh"
	case errors.Is(err, domain.ErrTransient):
		return http.StatusServiceUnavailable, "store unavailable, please retry"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c *gin.Context, logger *log.Logger, op string, err error, extra gin.H) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Printf("http: %s session=%s status=%d error=%v", op, sessionID(c), status, err)
	}
	body := gin.H{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
