// Package handlers implements the HTTP endpoints: the chat and thread JSON
// API and the server-rendered assessment form.
//
// Every JSON error goes through fail, which writes the ErrorResponse
// envelope and logs 5xx responses with the request-scoped logger.
//
// Example error response:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "bad_request",
//	  "message": "Message is required",
//	  "detail": "Message is required"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/intelligentbasedhms/hms-gateway/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all JSON endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"bad_request"`
	// Human-readable message
	Message string `json:"message" example:"Message is required"`
	// Detail repeats Message for clients that only read {"detail": ...}
	Detail string `json:"detail" example:"Message is required"`
}

// fail aborts the request with the error envelope. Server errors are logged.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Detail:    msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is fail for callers outside the package, such as router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
