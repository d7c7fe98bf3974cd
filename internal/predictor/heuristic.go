package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Heuristic thresholds and the fixed PUE figures the dashboard reports.
const (
	anomalyTempThreshold      = 30.0
	anomalyCriticalTemp       = 35.0
	anomalyVibrationThreshold = 2.0
	anomalyCPUThreshold       = 90.0

	overloadedCPU = 80.0
	idleCPU       = 20.0

	currentPUE   = 1.42
	optimizedPUE = 1.28
)

// HeuristicPredictor scores inputs with fixed rules instead of a trained model.
type HeuristicPredictor struct {
	jitter func() float64
	now    func() time.Time
}

type HeuristicConfig struct {
	// Jitter returns a value in [0,1) used to spread confidence scores.
	Jitter func() float64

	Now func() time.Time
}

func NewHeuristicPredictor(cfg HeuristicConfig) *HeuristicPredictor {
	if cfg.Jitter == nil {
		cfg.Jitter = rand.Float64
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HeuristicPredictor{jitter: cfg.Jitter, now: cfg.Now}
}

func (h *HeuristicPredictor) Predict(_ context.Context, req Request) (*Prediction, error) {
	switch req.ModelType {
	case ModelAnomaly:
		var in AnomalyInput
		if err := decodeInput(req.InputData, &in); err != nil {
			return nil, err
		}
		return h.Anomaly(in), nil
	case ModelMaintenance:
		var in MaintenanceInput
		if err := decodeInput(req.InputData, &in); err != nil {
			return nil, err
		}
		return h.Maintenance(in), nil
	case ModelOptimization:
		var in OptimizationInput
		if err := decodeInput(req.InputData, &in); err != nil {
			return nil, err
		}
		return h.Optimization(in), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, req.ModelType)
	}
}

func (h *HeuristicPredictor) HealthCheck(context.Context) error {
	return nil
}

func (h *HeuristicPredictor) Close() error {
	return nil
}

func decodeInput(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: inputData is required", ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (h *HeuristicPredictor) confidence(base, spread float64) int {
	return int(math.Round((base + h.jitter()*spread) * 100))
}

func (h *HeuristicPredictor) prediction(model ModelType, confidence int) *Prediction {
	return &Prediction{
		ModelType:  model,
		Source:     SourceHeuristic,
		Confidence: confidence,
		Timestamp:  h.now(),
	}
}

func status(abnormal bool) string {
	if abnormal {
		return "abnormal"
	}
	return "normal"
}

func (h *HeuristicPredictor) Anomaly(in AnomalyInput) *Prediction {
	hot := in.Temperature > anomalyTempThreshold
	shaking := in.Vibration > anomalyVibrationThreshold
	busy := in.CPUUsage > anomalyCPUThreshold
	isAnomaly := hot || shaking || busy

	result := &AnomalyResult{
		IsAnomaly: isAnomaly,
		Severity:  "normal",
		Details: map[string]string{
			"temperature": status(hot),
			"vibration":   status(shaking),
			"cpu":         status(busy),
		},
		Recommendation: "System operating normally",
	}
	if isAnomaly {
		result.Severity = "warning"
		if in.Temperature > anomalyCriticalTemp {
			result.Severity = "critical"
		}
		result.Recommendation = "Check the cooling system and workload distribution"
	}

	p := h.prediction(ModelAnomaly, h.confidence(0.75, 0.2))
	p.Anomaly = result
	return p
}

// FailureRisk weighs error count, uptime in years and average temperature.
func FailureRisk(in MaintenanceInput) float64 {
	return in.ErrorCount*0.3 + (in.UptimeHours/8760)*0.4 + (in.TemperatureAvg/50)*0.3
}

func (h *HeuristicPredictor) Maintenance(in MaintenanceInput) *Prediction {
	risk := FailureRisk(in)

	result := &MaintenanceResult{
		ServerID:             in.ServerID,
		NeedsMaintenance:     risk > 0.5,
		DaysUntilMaintenance: 30,
		RiskLevel:            "low",
		FailureRisk:          math.Round(risk*1000) / 1000,
		PredictedIssues:      []string{},
		Recommendation:       "No maintenance needed right now",
	}
	switch {
	case risk > 0.7:
		result.DaysUntilMaintenance = 7
		result.RiskLevel = "high"
	case risk > 0.5:
		result.DaysUntilMaintenance = 14
		result.RiskLevel = "medium"
	}

	if risk > 0.7 {
		result.PredictedIssues = append(result.PredictedIssues, "Hard drive failure")
	}
	if in.ErrorCount > 10 {
		result.PredictedIssues = append(result.PredictedIssues, "Memory faults")
	}
	if in.TemperatureAvg > 35 {
		result.PredictedIssues = append(result.PredictedIssues, "Cooling problems")
	}
	if result.NeedsMaintenance {
		result.Recommendation = fmt.Sprintf("Schedule maintenance within %d days", result.DaysUntilMaintenance)
	}

	p := h.prediction(ModelMaintenance, h.confidence(0.8, 0.15))
	p.Maintenance = result
	return p
}

func (h *HeuristicPredictor) Optimization(in OptimizationInput) *Prediction {
	var overloaded, idle []OptimizationServer
	for _, s := range in.Servers {
		switch {
		case s.CPUUsage > overloadedCPU:
			overloaded = append(overloaded, s)
		case s.CPUUsage < idleCPU:
			idle = append(idle, s)
		}
	}

	canOptimize := len(overloaded) > 0 && len(idle) > 0
	result := &OptimizationResult{
		CanOptimize:  canOptimize,
		Suggestions:  []Suggestion{},
		CurrentPUE:   currentPUE,
		OptimizedPUE: currentPUE,
	}
	if canOptimize {
		result.OptimizedPUE = optimizedPUE
		result.EnergySavingPercent = 18
		result.Suggestions = []Suggestion{
			{
				Type:           "load_balancing",
				Action:         fmt.Sprintf("Move workload from %s to %s", overloaded[0].Name, idle[0].Name),
				ExpectedSaving: "15-20% CPU utilization",
				Priority:       "high",
			},
			{
				Type:           "cooling_optimization",
				Action:         "Reduce CRAC unit output in Zone A by 10%",
				ExpectedSaving: "8% energy consumption",
				Priority:       "medium",
			},
			{
				Type:           "consolidation",
				Action:         fmt.Sprintf("Power down %d idle servers", len(idle)),
				ExpectedSaving: "12% power usage",
				Priority:       "medium",
			},
		}
	}

	p := h.prediction(ModelOptimization, h.confidence(0.85, 0.1))
	p.Optimization = result
	return p
}
