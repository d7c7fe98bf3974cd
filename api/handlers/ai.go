package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/predictor"
)

// PredictionRecorder counts served predictions by model and source.
type PredictionRecorder interface {
	IncPrediction(model, source string)
}

type AIHandler struct {
	predictor predictor.Predictor
	recorder  PredictionRecorder
}

func NewAIHandler(p predictor.Predictor, recorder PredictionRecorder) *AIHandler {
	return &AIHandler{predictor: p, recorder: recorder}
}

type modelInfo struct {
	Type        predictor.ModelType `json:"type"`
	Description string              `json:"description"`
}

var modelDescriptions = map[predictor.ModelType]string{
	predictor.ModelAnomaly:      "Flags abnormal sensor and utilisation readings",
	predictor.ModelMaintenance:  "Estimates failure risk and days until maintenance",
	predictor.ModelOptimization: "Suggests load and cooling changes to lower PUE",
}

func (h *AIHandler) Models(c *gin.Context) {
	models := make([]modelInfo, 0, len(predictor.Models()))
	for _, m := range predictor.Models() {
		models = append(models, modelInfo{Type: m, Description: modelDescriptions[m]})
	}
	c.JSON(http.StatusOK, gin.H{
		"models":    models,
		"timestamp": timestamp(),
	})
}

// Predict godoc
// @Summary Run a prediction model
// @Description Uses the remote model service when reachable and the built-in heuristics otherwise
// @Tags AI
// @Accept json
// @Produce json
// @Param request body predictor.Request true "Model type and input"
// @Success 200 {object} predictor.Prediction "Prediction"
// @Failure 400 {object} map[string]string "Invalid model or input"
// @Router /api/ai/predict [post]
func (h *AIHandler) Predict(c *gin.Context) {
	var req predictor.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ModelType == "" || len(req.InputData) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "modelType and inputData are required"})
		return
	}

	prediction, err := h.predictor.Predict(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, predictor.ErrUnknownModel), errors.Is(err, predictor.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, predictor.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "prediction timed out"})
		default:
			logger.ErrorCtxf(c.Request.Context(), "Prediction failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		}
		return
	}

	if h.recorder != nil {
		h.recorder.IncPrediction(string(prediction.ModelType), prediction.Source)
	}
	c.JSON(http.StatusOK, prediction)
}
