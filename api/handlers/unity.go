package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/simulator"
	"github.com/OldStager01/dcsim/internal/unity"
)

// UnityBridge is the command and telemetry channel to the Unity scene.
type UnityBridge interface {
	Execute(ctx context.Context, cmd unity.Command) (*unity.CommandResult, error)
	RecordServerUpdate(update unity.ServerUpdate) error
	RecordSensorUpdate(update unity.SensorUpdate) error
	RecordAIDecision(decision unity.AIDecision) error
	Recommend() unity.Recommendation
	Queue() []unity.Message
}

// CommandRecorder counts applied Unity commands.
type CommandRecorder interface {
	IncUnityCommand(command string)
}

type UnityHandler struct {
	sim      Simulation
	bridge   UnityBridge
	recorder CommandRecorder
}

func NewUnityHandler(sim Simulation, bridge UnityBridge, recorder CommandRecorder) *UnityHandler {
	return &UnityHandler{sim: sim, bridge: bridge, recorder: recorder}
}

func (h *UnityHandler) Servers(c *gin.Context) {
	servers := h.sim.ListServers()
	c.JSON(http.StatusOK, gin.H{
		"type":      unity.MessageMetrics,
		"servers":   servers,
		"timestamp": timestamp(),
	})
}

func (h *UnityHandler) UpdateServer(c *gin.Context) {
	var update unity.ServerUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bridge.RecordServerUpdate(update); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "timestamp": timestamp()})
}

func (h *UnityHandler) Sensors(c *gin.Context) {
	sensors := h.sim.ListSensors()
	c.JSON(http.StatusOK, gin.H{
		"type":      unity.MessageSensorUpdate,
		"sensors":   sensors,
		"timestamp": timestamp(),
	})
}

func (h *UnityHandler) UpdateSensor(c *gin.Context) {
	var update unity.SensorUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bridge.RecordSensorUpdate(update); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "timestamp": timestamp()})
}

// Command godoc
// @Summary Send a command to the simulation
// @Tags Unity
// @Accept json
// @Produce json
// @Param request body unity.Command true "Command"
// @Success 200 {object} unity.CommandResult "Applied command"
// @Failure 400 {object} map[string]string "Invalid command"
// @Failure 404 {object} map[string]string "Target server not found"
// @Failure 409 {object} map[string]string "Target server cannot accept the command"
// @Router /api/unity/commands [post]
func (h *UnityHandler) Command(c *gin.Context) {
	var cmd unity.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.bridge.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if h.recorder != nil {
		h.recorder.IncUnityCommand(string(cmd.Command))
	}
	c.JSON(http.StatusOK, result)
}

func (h *UnityHandler) Queue(c *gin.Context) {
	queue := h.bridge.Queue()
	c.JSON(http.StatusOK, gin.H{
		"messages":  queue,
		"count":     len(queue),
		"timestamp": timestamp(),
	})
}

func (h *UnityHandler) Recommendation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"recommendation": h.bridge.Recommend(),
		"timestamp":      timestamp(),
	})
}

func (h *UnityHandler) RecordDecision(c *gin.Context) {
	var decision unity.AIDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.bridge.RecordAIDecision(decision); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "timestamp": timestamp()})
}

func (h *UnityHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, unity.ErrMissingCommand),
		errors.Is(err, unity.ErrInvalidCommand),
		errors.Is(err, unity.ErrMissingTarget),
		errors.Is(err, unity.ErrMissingField),
		errors.Is(err, unity.ErrInvalidParameter),
		errors.Is(err, unity.ErrInvalidSensor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, unity.ErrUnknownServer), errors.Is(err, simulator.ErrServerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, simulator.ErrServerOffline):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.ErrorCtxf(c.Request.Context(), "Unity request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unity request failed"})
	}
}
