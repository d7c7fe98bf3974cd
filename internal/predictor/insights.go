package predictor

import (
	"math"

	"github.com/OldStager01/dcsim/pkg/models"
)

// Insights summarises what the heuristic models make of the current fleet.
type Insights struct {
	AnomalyDetected        bool    `json:"anomalyDetected"`
	PredictiveAlerts       int     `json:"predictiveAlerts"`
	OptimizationsSuggested int     `json:"optimizationsSuggested"`
	ConfidenceScore        float64 `json:"confidenceScore"`
}

// ComputeInsights runs the heuristic models over live server and sensor state.
// The result depends only on its inputs.
func ComputeInsights(servers []models.ServerState, sensors []models.SensorState) Insights {
	var insights Insights

	vibration := 0.0
	for _, s := range sensors {
		if s.Type == models.SensorVibration && s.Value > vibration {
			vibration = s.Value
		}
	}

	opt := OptimizationInput{Servers: make([]OptimizationServer, 0, len(servers))}
	healthSum := 0.0
	for _, s := range servers {
		healthSum += s.HealthScore
		if s.Status == models.ServerStatusOffline {
			insights.AnomalyDetected = true
			continue
		}

		if s.Temperature > anomalyTempThreshold || s.CPU > anomalyCPUThreshold {
			insights.AnomalyDetected = true
		}

		risk := FailureRisk(MaintenanceInput{
			ErrorCount:     float64(len(s.ActiveEvents)),
			TemperatureAvg: s.Temperature,
		})
		if risk > 0.5 || s.Status == models.ServerStatusCritical {
			insights.PredictiveAlerts++
		}

		opt.Servers = append(opt.Servers, OptimizationServer{
			Name:        s.Name,
			CPUUsage:    s.CPU,
			MemoryUsage: s.Memory,
			Temperature: s.Temperature,
		})
	}
	if vibration > anomalyVibrationThreshold {
		insights.AnomalyDetected = true
	}

	h := NewHeuristicPredictor(HeuristicConfig{Jitter: func() float64 { return 0 }})
	insights.OptimizationsSuggested = len(h.Optimization(opt).Optimization.Suggestions)

	// Confidence tracks fleet health: 85 for a dead fleet, 95 for a perfect one.
	avgHealth := 0.0
	if len(servers) > 0 {
		avgHealth = healthSum / float64(len(servers))
	}
	insights.ConfidenceScore = math.Round((85+avgHealth/10)*10) / 10

	return insights
}
