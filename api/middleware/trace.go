package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/validation"
)

const TraceIDHeader = "X-Trace-ID"

// TraceID gives every request an id that follows it into logs, bus
// notifications and NATS headers. A caller-supplied id is kept when it is a
// plain identifier; anything else is replaced.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || validation.ValidateIdentifier(traceID) != nil {
			traceID = uuid.NewString()
		}

		c.Header(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Next()
	}
}
