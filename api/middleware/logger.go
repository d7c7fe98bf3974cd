package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/OldStager01/dcsim/internal/logger"
)

// quietPrefixes are polled by health checks and scrapers and log at debug.
var quietPrefixes = []string{"/health", "/metrics"}

// RequestLogger writes one entry per request. Entries carry the matched route
// and, for per-server routes and filtered websocket streams, the server id.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		})
		if serverID := requestServerID(c); serverID != "" {
			entry = entry.WithField("server_id", serverID)
		}
		if query := c.Request.URL.RawQuery; query != "" {
			entry = entry.WithField("query", query)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("server error")
		case status >= 400:
			entry.Warn("client error")
		case isQuiet(c.Request.URL.Path):
			entry.Debug("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

func requestServerID(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.Query("server_id")
}

func isQuiet(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
