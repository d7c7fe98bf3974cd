package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckFunc reports whether one dependency is usable.
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	check CheckFunc

	// Required checks fail readiness; the rest only mark the service degraded.
	required bool
}

type HealthHandler struct {
	checks map[string]healthCheck
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: make(map[string]healthCheck)}
}

// AddCheck registers a named dependency check. Not safe after serving starts.
func (h *HealthHandler) AddCheck(name string, check CheckFunc, required bool) *HealthHandler {
	h.checks[name] = healthCheck{check: check, required: required}
	return h
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// run evaluates every check and returns the overall status.
func (h *HealthHandler) run(ctx context.Context) (string, map[string]string) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	status := "healthy"
	for _, name := range names {
		hc := h.checks[name]
		if err := hc.check(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
			if hc.required {
				status = "unhealthy"
			} else if status == "healthy" {
				status = "degraded"
			}
			continue
		}
		results[name] = "healthy"
	}
	return status, results
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, checks := h.run(ctx)

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: timestamp(),
		Checks:    checks,
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if status, _ := h.run(ctx); status == "unhealthy" {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: timestamp(),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: timestamp(),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: timestamp(),
	})
}
