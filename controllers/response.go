package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/middlewares"
	"storefront-service/services"
)

const genericServerError = "internal server error"

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindEmptyCart, services.KindInvalidInput,
		services.KindInvalidShippingInfo, services.KindInsufficientStock:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the failure envelope. Messages of server-side failures
// are replaced with a generic one; the detail goes to the log.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Kind: services.KindUnexpected, Err: err}
	}
	status := statusFor(se.Kind)
	body := gin.H{"success": false, "error": se.Message}
	if se.Kind == services.KindBusy {
		c.Header("Retry-After", "5")
	} else if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"path", c.FullPath(),
			"kind", se.Kind.String(),
			"request_id", c.GetString(middlewares.ContextRequestID),
			"error", err)
		body["error"] = genericServerError
	}
	if len(se.Fields) > 0 {
		body["fields"] = se.Fields
	}
	if len(se.Shortages) > 0 {
		body["shortages"] = se.Shortages
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
