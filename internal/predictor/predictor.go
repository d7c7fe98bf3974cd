package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrUnknownModel     = errors.New("unknown model type")
	ErrInvalidInput     = errors.New("invalid prediction input")
	ErrPredictionFailed = errors.New("prediction failed")
	ErrTimeout          = errors.New("prediction timeout")
	ErrInvalidResponse  = errors.New("invalid response from prediction service")
)

type ModelType string

const (
	ModelAnomaly      ModelType = "anomaly"
	ModelMaintenance  ModelType = "maintenance"
	ModelOptimization ModelType = "optimization"
)

func Models() []ModelType {
	return []ModelType{ModelAnomaly, ModelMaintenance, ModelOptimization}
}

func (m ModelType) Valid() bool {
	switch m {
	case ModelAnomaly, ModelMaintenance, ModelOptimization:
		return true
	}
	return false
}

const (
	SourceHeuristic = "heuristic"
	SourceRemote    = "remote"
)

// Request is the body of a prediction call.
type Request struct {
	ModelType ModelType       `json:"modelType"`
	InputData json.RawMessage `json:"inputData"`
}

type AnomalyInput struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Power       float64 `json:"power"`
	Vibration   float64 `json:"vibration"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
}

type MaintenanceInput struct {
	ServerID       string  `json:"server_id"`
	UptimeHours    float64 `json:"uptime_hours"`
	ErrorCount     float64 `json:"error_count"`
	TemperatureAvg float64 `json:"temperature_avg"`
	CPUUsageAvg    float64 `json:"cpu_usage_avg"`
	MemoryUsageAvg float64 `json:"memory_usage_avg"`
}

type OptimizationServer struct {
	Name        string  `json:"name"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	Temperature float64 `json:"temperature"`
}

type OptimizationInput struct {
	Servers []OptimizationServer `json:"servers"`
}

type AnomalyResult struct {
	IsAnomaly      bool              `json:"isAnomaly"`
	Severity       string            `json:"severity"`
	Details        map[string]string `json:"details"`
	Recommendation string            `json:"recommendation"`
}

type MaintenanceResult struct {
	ServerID             string   `json:"server_id"`
	NeedsMaintenance     bool     `json:"needsMaintenance"`
	DaysUntilMaintenance int      `json:"daysUntilMaintenance"`
	RiskLevel            string   `json:"riskLevel"`
	FailureRisk          float64  `json:"failureRisk"`
	PredictedIssues      []string `json:"predictedIssues"`
	Recommendation       string   `json:"recommendation"`
}

type Suggestion struct {
	Type           string `json:"type"`
	Action         string `json:"action"`
	ExpectedSaving string `json:"expectedSaving"`
	Priority       string `json:"priority"`
}

type OptimizationResult struct {
	CanOptimize         bool         `json:"canOptimize"`
	Suggestions         []Suggestion `json:"suggestions"`
	CurrentPUE          float64      `json:"currentPUE"`
	OptimizedPUE        float64      `json:"optimizedPUE"`
	EnergySavingPercent int          `json:"energySavingPercent"`
}

// Prediction carries exactly one of the model results.
type Prediction struct {
	ModelType    ModelType           `json:"modelType"`
	Source       string              `json:"source"`
	Confidence   int                 `json:"confidence"`
	Timestamp    time.Time           `json:"timestamp"`
	Anomaly      *AnomalyResult      `json:"anomaly,omitempty"`
	Maintenance  *MaintenanceResult  `json:"maintenance,omitempty"`
	Optimization *OptimizationResult `json:"optimization,omitempty"`
}

// Predictor defines the interface for prediction backends
type Predictor interface {
	// Predict runs the requested model over the input
	Predict(ctx context.Context, req Request) (*Prediction, error)

	// HealthCheck verifies the backend is usable
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the backend
	Close() error
}
