package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID is echoed on every response so clients can correlate
	// their traffic with the attempt audit trail.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin context key holding the request id.
	ContextKeyRequestID = "request_id"
)

// RequestID assigns each request a UUID unless the client supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(ContextKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)

		c.Next()
	}
}
