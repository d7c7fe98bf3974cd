package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/dcsim/internal/predictor"
	"github.com/OldStager01/dcsim/pkg/models"
	"github.com/OldStager01/dcsim/pkg/validation"
)

type SimulationHandler struct {
	sim  Simulation
	tick TickFunc
}

// NewSimulationHandler serves live simulator state. A non-nil tick runs
// before every read.
func NewSimulationHandler(sim Simulation, tick TickFunc) *SimulationHandler {
	return &SimulationHandler{sim: sim, tick: tick}
}

func (h *SimulationHandler) advance() {
	if h.tick != nil {
		h.tick()
	}
}

// ListServers godoc
// @Summary List servers
// @Description Current state of every simulated server, including rack and active events
// @Tags Servers
// @Produce json
// @Success 200 {object} map[string]interface{} "List of servers"
// @Router /api/servers [get]
func (h *SimulationHandler) ListServers(c *gin.Context) {
	h.advance()
	servers := h.sim.ListServers()

	c.JSON(http.StatusOK, gin.H{
		"servers":   servers,
		"count":     len(servers),
		"timestamp": timestamp(),
	})
}

// GetServer godoc
// @Summary Get server
// @Tags Servers
// @Produce json
// @Param id path string true "Server ID"
// @Success 200 {object} models.ServerState "Server state"
// @Failure 400 {object} map[string]string "Invalid server ID"
// @Failure 404 {object} map[string]string "Server not found"
// @Router /api/servers/{id} [get]
func (h *SimulationHandler) GetServer(c *gin.Context) {
	serverID := c.Param("id")
	if err := validation.ValidateIdentifier(serverID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.advance()
	server, ok := h.sim.GetServer(serverID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	c.JSON(http.StatusOK, server)
}

// ListSensors returns the flat sensor roster, or buckets keyed by sensor
// type when called with ?group=type.
func (h *SimulationHandler) ListSensors(c *gin.Context) {
	h.advance()
	sensors := h.sim.ListSensors()

	switch c.Query("group") {
	case "":
		c.JSON(http.StatusOK, gin.H{
			"sensors":   sensors,
			"count":     len(sensors),
			"timestamp": timestamp(),
		})
	case "type":
		c.JSON(http.StatusOK, gin.H{
			"sensors":   models.SensorsByType(sensors),
			"count":     len(sensors),
			"timestamp": timestamp(),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "group must be 'type'"})
	}
}

func (h *SimulationHandler) Stats(c *gin.Context) {
	h.advance()
	c.JSON(http.StatusOK, h.sim.Stats())
}

type RealtimeResponse struct {
	Servers    []models.ServerState `json:"servers"`
	Sensors    []models.SensorState `json:"sensors"`
	Stats      models.Stats         `json:"stats"`
	AIInsights predictor.Insights   `json:"aiInsights"`
	Timestamp  string               `json:"timestamp"`
}

// Realtime bundles everything a dashboard refresh needs into one payload.
func (h *SimulationHandler) Realtime(c *gin.Context) {
	h.advance()
	servers := h.sim.ListServers()
	sensors := h.sim.ListSensors()

	c.JSON(http.StatusOK, RealtimeResponse{
		Servers:    servers,
		Sensors:    sensors,
		Stats:      h.sim.Stats(),
		AIInsights: predictor.ComputeInsights(servers, sensors),
		Timestamp:  timestamp(),
	})
}
