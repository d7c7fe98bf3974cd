package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// The API serves only JSON and a websocket stream, so nothing may be framed,
// scripted or cached by intermediaries.
const contentSecurityPolicy = "default-src 'none'; connect-src 'self' ws: wss:; frame-ancestors 'none'"

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Referrer-Policy", "no-referrer")
		// Simulation state changes every tick.
		h.Set("Cache-Control", "no-store")

		c.Next()
	}
}

// RequestSizeLimit caps request bodies. Oversized declared lengths are
// refused up front; chunked bodies fail when the reader passes maxBytes.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds %d bytes", maxBytes),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		c.Next()
	}
}
