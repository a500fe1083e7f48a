package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request's UUID.
const RequestIDKey = "request_id"

// RequestID injects a UUID per request, stored in the context and echoed
// in the X-Request-ID response header for traceability across logs and
// clients.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
