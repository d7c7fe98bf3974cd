package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/simulator"
	"github.com/OldStager01/dcsim/pkg/config"
	"github.com/OldStager01/dcsim/pkg/models"
	"github.com/OldStager01/dcsim/pkg/validation"
)

type EventHandler struct {
	sim    Simulation
	tick   TickFunc
	limits limits
}

func NewEventHandler(sim Simulation, tick TickFunc, cfg *config.APIConfig) *EventHandler {
	return &EventHandler{sim: sim, tick: tick, limits: limits{config: cfg}}
}

func (h *EventHandler) Active(c *gin.Context) {
	if h.tick != nil {
		h.tick()
	}
	events := h.sim.ListActiveEvents()

	c.JSON(http.StatusOK, gin.H{
		"events":    events,
		"count":     len(events),
		"timestamp": timestamp(),
	})
}

// History godoc
// @Summary Event history
// @Description The newest events in chronological order (oldest first), bounded by limit
// @Tags Events
// @Produce json
// @Param limit query int false "Maximum number of events"
// @Success 200 {object} map[string]interface{} "Event history"
// @Router /api/events/history [get]
func (h *EventHandler) History(c *gin.Context) {
	limit := h.limits.parseLimit(c)
	events := h.sim.ListEventHistory(limit)

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	})
}

type InjectEventRequest struct {
	ServerID string `json:"server_id" binding:"required" example:"srv3"`
	Type     string `json:"type" binding:"required" example:"cpu_spike"`
	Severity string `json:"severity" example:"high"`
}

// Inject godoc
// @Summary Inject event
// @Description Start a fault event on a chosen server. Severity defaults to the most severe the type allows.
// @Tags Events
// @Accept json
// @Produce json
// @Param request body InjectEventRequest true "Event to inject"
// @Success 201 {object} models.SimulationEvent "Created event"
// @Failure 400 {object} map[string]interface{} "Invalid request, with allowed_severities for a bad severity"
// @Failure 404 {object} map[string]string "Server not found"
// @Failure 409 {object} map[string]string "Server cannot take another event"
// @Router /api/events [post]
func (h *EventHandler) Inject(c *gin.Context) {
	var req InjectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateIdentifier(req.ServerID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.sim.Inject(req.ServerID, models.EventType(req.Type), models.Severity(req.Severity))
	if err != nil {
		switch {
		case errors.Is(err, simulator.ErrServerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		case errors.Is(err, simulator.ErrUnknownEventType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, simulator.ErrInvalidSeverity):
			allowed, _ := simulator.Severities(models.EventType(req.Type))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "allowed_severities": allowed})
		case errors.Is(err, simulator.ErrServerOffline), errors.Is(err, simulator.ErrTooManyEvents):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.ErrorCtxf(c.Request.Context(), "Failed to inject event: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to inject event"})
		}
		return
	}

	logger.WithEvent(event.ID, string(event.Type), event.ServerID).Info("Event injected via API")
	c.JSON(http.StatusCreated, event)
}
