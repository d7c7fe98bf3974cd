package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/dcsim/internal/resilience"
	"github.com/OldStager01/dcsim/pkg/models"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestHeuristic() *HeuristicPredictor {
	return NewHeuristicPredictor(HeuristicConfig{
		Jitter: func() float64 { return 0.5 },
		Now:    func() time.Time { return fixedNow },
	})
}

func request(t *testing.T, model ModelType, input interface{}) Request {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	return Request{ModelType: model, InputData: raw}
}

func TestHeuristic_Anomaly(t *testing.T) {
	tests := []struct {
		name     string
		input    AnomalyInput
		anomaly  bool
		severity string
	}{
		{"normal", AnomalyInput{Temperature: 24, Vibration: 0.5, CPUUsage: 40}, false, "normal"},
		{"hot", AnomalyInput{Temperature: 31, CPUUsage: 40}, true, "warning"},
		{"very hot", AnomalyInput{Temperature: 36, CPUUsage: 40}, true, "critical"},
		{"vibration", AnomalyInput{Temperature: 24, Vibration: 2.5}, true, "warning"},
		{"cpu", AnomalyInput{Temperature: 24, CPUUsage: 95}, true, "warning"},
	}

	h := newTestHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := h.Predict(context.Background(), request(t, ModelAnomaly, tt.input))
			require.NoError(t, err)
			require.NotNil(t, p.Anomaly)
			assert.Equal(t, tt.anomaly, p.Anomaly.IsAnomaly)
			assert.Equal(t, tt.severity, p.Anomaly.Severity)
			assert.Equal(t, SourceHeuristic, p.Source)
			assert.Equal(t, 85, p.Confidence)
			assert.Equal(t, fixedNow, p.Timestamp)
		})
	}
}

func TestHeuristic_Maintenance(t *testing.T) {
	tests := []struct {
		name  string
		input MaintenanceInput
		days  int
		risk  string
		needs bool
	}{
		{"healthy", MaintenanceInput{ServerID: "srv-1", UptimeHours: 100, TemperatureAvg: 25}, 30, "low", false},
		{"medium", MaintenanceInput{ServerID: "srv-2", ErrorCount: 1, TemperatureAvg: 40}, 14, "medium", true},
		{"high", MaintenanceInput{ServerID: "srv-3", ErrorCount: 12, UptimeHours: 8760, TemperatureAvg: 40}, 7, "high", true},
	}

	h := newTestHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := h.Predict(context.Background(), request(t, ModelMaintenance, tt.input))
			require.NoError(t, err)
			require.NotNil(t, p.Maintenance)
			assert.Equal(t, tt.days, p.Maintenance.DaysUntilMaintenance)
			assert.Equal(t, tt.risk, p.Maintenance.RiskLevel)
			assert.Equal(t, tt.needs, p.Maintenance.NeedsMaintenance)
			assert.Equal(t, tt.input.ServerID, p.Maintenance.ServerID)
		})
	}

	p := h.Maintenance(MaintenanceInput{ErrorCount: 12, UptimeHours: 8760, TemperatureAvg: 40})
	assert.Contains(t, p.Maintenance.PredictedIssues, "Hard drive failure")
	assert.Contains(t, p.Maintenance.PredictedIssues, "Memory faults")
	assert.Contains(t, p.Maintenance.PredictedIssues, "Cooling problems")
}

func TestHeuristic_Optimization(t *testing.T) {
	h := newTestHeuristic()

	p := h.Optimization(OptimizationInput{Servers: []OptimizationServer{
		{Name: "Server-001", CPUUsage: 88},
		{Name: "Server-002", CPUUsage: 12},
		{Name: "Server-003", CPUUsage: 50},
	}})
	require.NotNil(t, p.Optimization)
	assert.True(t, p.Optimization.CanOptimize)
	assert.Len(t, p.Optimization.Suggestions, 3)
	assert.Equal(t, "Move workload from Server-001 to Server-002", p.Optimization.Suggestions[0].Action)
	assert.Equal(t, 1.28, p.Optimization.OptimizedPUE)

	p = h.Optimization(OptimizationInput{Servers: []OptimizationServer{{Name: "a", CPUUsage: 50}}})
	assert.False(t, p.Optimization.CanOptimize)
	assert.Empty(t, p.Optimization.Suggestions)
	assert.Equal(t, p.Optimization.CurrentPUE, p.Optimization.OptimizedPUE)
}

func TestHeuristic_InvalidRequests(t *testing.T) {
	h := newTestHeuristic()

	_, err := h.Predict(context.Background(), Request{ModelType: "weather", InputData: json.RawMessage(`{}`)})
	assert.True(t, errors.Is(err, ErrUnknownModel))

	_, err = h.Predict(context.Background(), Request{ModelType: ModelAnomaly})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = h.Predict(context.Background(), Request{ModelType: ModelAnomaly, InputData: json.RawMessage(`"hot"`)})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func remoteServer(t *testing.T, handler http.HandlerFunc) *HTTPPredictor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPPredictor(HTTPPredictorConfig{Endpoint: srv.URL + "/", Timeout: time.Second})
}

func TestHTTPPredictor_Predict(t *testing.T) {
	p := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ModelAnomaly, req.ModelType)

		_ = json.NewEncoder(w).Encode(Prediction{
			ModelType:  ModelAnomaly,
			Confidence: 97,
			Anomaly:    &AnomalyResult{IsAnomaly: true, Severity: "critical"},
		})
	})

	pred, err := p.Predict(context.Background(), request(t, ModelAnomaly, AnomalyInput{Temperature: 40}))
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, pred.Source)
	assert.Equal(t, 97, pred.Confidence)
	assert.False(t, pred.Timestamp.IsZero())
}

func TestHTTPPredictor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    ErrPredictionFailed,
		},
		{
			name:    "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			want:    ErrInvalidInput,
		},
		{
			name:    "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not json")) },
			want:    ErrInvalidResponse,
		},
		{
			name: "wrong model",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Prediction{ModelType: ModelOptimization})
			},
			want: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := remoteServer(t, tt.handler)
			_, err := p.Predict(context.Background(), request(t, ModelAnomaly, AnomalyInput{}))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestHTTPPredictor_HealthCheck(t *testing.T) {
	p := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, p.HealthCheck(context.Background()))
	assert.NoError(t, p.Close())
}

func TestResilientPredictor_FallsBackToHeuristic(t *testing.T) {
	var calls int32
	remote := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rp := NewResilientPredictor(ResilientPredictorConfig{
		Remote:        remote,
		Fallback:      newTestHeuristic(),
		MaxFailures:   2,
		Timeout:       time.Minute,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 3; i++ {
		p, err := rp.Predict(context.Background(), request(t, ModelAnomaly, AnomalyInput{Temperature: 36}))
		require.NoError(t, err)
		assert.Equal(t, SourceHeuristic, p.Source)
		assert.Equal(t, "critical", p.Anomaly.Severity)
	}

	// Two failed Execute calls open the breaker; the third never reaches the remote.
	assert.Equal(t, resilience.StateOpen, rp.CircuitState())
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestResilientPredictor_UsesRemote(t *testing.T) {
	remote := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Prediction{ModelType: ModelMaintenance, Confidence: 91})
	})
	rp := NewResilientPredictor(ResilientPredictorConfig{Remote: remote, Fallback: newTestHeuristic()})

	p, err := rp.Predict(context.Background(), request(t, ModelMaintenance, MaintenanceInput{ServerID: "srv-1"}))
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, p.Source)
	assert.Equal(t, 91, p.Confidence)
}

func TestResilientPredictor_RejectsBadInputWithoutRemote(t *testing.T) {
	var calls int32
	remote := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	rp := NewResilientPredictor(ResilientPredictorConfig{Remote: remote})

	_, err := rp.Predict(context.Background(), Request{ModelType: ModelAnomaly})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = rp.Predict(context.Background(), Request{ModelType: "weather"})
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestResilientPredictor_RemoteRejectionKeepsBreakerClosed(t *testing.T) {
	var calls int32
	remote := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})
	rp := NewResilientPredictor(ResilientPredictorConfig{
		Remote:        remote,
		Fallback:      newTestHeuristic(),
		MaxFailures:   1,
		Timeout:       time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 3; i++ {
		p, err := rp.Predict(context.Background(), request(t, ModelAnomaly, AnomalyInput{Temperature: 36}))
		require.NoError(t, err)
		assert.Equal(t, SourceHeuristic, p.Source)
	}

	assert.Equal(t, resilience.StateClosed, rp.CircuitState())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "rejections are not retried")
}

func TestResilientPredictor_NoRemote(t *testing.T) {
	rp := NewResilientPredictor(ResilientPredictorConfig{Fallback: newTestHeuristic()})
	p, err := rp.Predict(context.Background(), request(t, ModelOptimization, OptimizationInput{}))
	require.NoError(t, err)
	assert.Equal(t, SourceHeuristic, p.Source)
	assert.NoError(t, rp.HealthCheck(context.Background()))
	assert.NoError(t, rp.Close())
}

func TestComputeInsights(t *testing.T) {
	calm := []models.ServerState{
		{Name: "Server-001", CPU: 40, Temperature: 24, HealthScore: 90, Status: models.ServerStatusOnline},
		{Name: "Server-002", CPU: 50, Temperature: 25, HealthScore: 90, Status: models.ServerStatusOnline},
	}
	in := ComputeInsights(calm, []models.SensorState{{Type: models.SensorVibration, Value: 0.4}})
	assert.False(t, in.AnomalyDetected)
	assert.Zero(t, in.PredictiveAlerts)
	assert.Zero(t, in.OptimizationsSuggested)
	assert.Equal(t, 94.0, in.ConfidenceScore)

	stressed := []models.ServerState{
		{Name: "Server-001", CPU: 96, Temperature: 38, HealthScore: 25, Status: models.ServerStatusCritical,
			ActiveEvents: []models.SimulationEvent{{ID: "evt-1"}, {ID: "evt-2"}}},
		{Name: "Server-002", CPU: 10, Temperature: 22, HealthScore: 95, Status: models.ServerStatusOnline},
		{Name: "Server-003", HealthScore: 0, Status: models.ServerStatusOffline},
	}
	in = ComputeInsights(stressed, nil)
	assert.True(t, in.AnomalyDetected)
	assert.Equal(t, 1, in.PredictiveAlerts)
	assert.Equal(t, 3, in.OptimizationsSuggested)
	assert.Equal(t, 89.0, in.ConfidenceScore)

	assert.Equal(t, 85.0, ComputeInsights(nil, nil).ConfidenceScore)
}
