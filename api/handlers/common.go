package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/dcsim/pkg/config"
	"github.com/OldStager01/dcsim/pkg/models"
)

// Simulation is the read and inject surface of the simulator the API serves.
type Simulation interface {
	ListServers() []models.ServerState
	GetServer(serverID string) (models.ServerState, bool)
	ListSensors() []models.SensorState
	ListActiveEvents() []models.SimulationEvent
	ListEventHistory(limit int) []models.SimulationEvent
	Stats() models.Stats
	Inject(serverID string, eventType models.EventType, severity models.Severity) (*models.SimulationEvent, error)
}

// TickFunc advances the simulation one step before a read.
type TickFunc func() *models.SimulationEvent

type limits struct {
	config *config.APIConfig
}

func (l limits) defaultLimit() int {
	if l.config != nil && l.config.DefaultLimit > 0 {
		return l.config.DefaultLimit
	}
	return 50
}

func (l limits) maxLimit() int {
	if l.config != nil && l.config.MaxLimit > 0 {
		return l.config.MaxLimit
	}
	return 500
}

func (l limits) parseLimit(c *gin.Context) int {
	maxLimit := l.maxLimit()
	limit := l.defaultLimit()
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}
	return limit
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
