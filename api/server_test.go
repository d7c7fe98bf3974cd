package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/dcsim/internal/linebot"
	"github.com/OldStager01/dcsim/internal/metrics"
	"github.com/OldStager01/dcsim/internal/predictor"
	"github.com/OldStager01/dcsim/internal/simulator"
	"github.com/OldStager01/dcsim/internal/unity"
	"github.com/OldStager01/dcsim/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App:        config.AppConfig{Mode: "development"},
		Simulation: config.SimulationConfig{TickOnRead: true},
		API: config.APIConfig{
			Port:         8080,
			RateLimit:    600,
			RateBurst:    50,
			DefaultLimit: 50,
			MaxLimit:     500,
		},
	}
}

func newTestServer(t *testing.T, withLine bool) (*Server, *simulator.Runner) {
	t.Helper()
	store := simulator.NewStore(simulator.Config{
		EventProbability: 0,
		Clock:            simulator.NewManualClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
		Rand:             simulator.NewRand(3),
	})
	store.Initialize()
	runner := simulator.NewRunner(store, simulator.RunnerConfig{Interval: time.Hour})

	deps := Dependencies{
		Store:     store,
		Runner:    runner,
		Predictor: predictor.NewResilientPredictor(predictor.ResilientPredictorConfig{}),
		Unity:     unity.NewBridge(store, runner, unity.BridgeConfig{}),
		Metrics:   metrics.New(),
	}
	if withLine {
		client := linebot.NewClient(linebot.ClientConfig{})
		formatter := linebot.NewFormatter(store, time.UTC)
		deps.LineClient = client
		deps.Bot = linebot.NewBot(linebot.BotConfig{ChannelSecret: "secret"}, client, formatter)
	}

	s := NewServer(testConfig(), deps)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		runner.Stop()
	})
	return s, runner
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Routes(t *testing.T) {
	s, runner := newTestServer(t, false)

	for _, path := range []string{
		"/health/live",
		"/health/ready",
		"/api/servers",
		"/api/servers/srv1",
		"/api/sensors?group=type",
		"/api/stats",
		"/api/realtime",
		"/api/events/active",
		"/api/events/history",
		"/api/ai/predict",
		"/api/unity/queue",
		"/api/unity/ai-decisions",
	} {
		w := get(s, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Trace-ID"), path)
	}
	assert.Greater(t, runner.Ticks(), uint64(0), "reads tick the simulation")

	assert.Equal(t, http.StatusNotFound, get(s, "/api/line/webhook").Code, "LINE routes only exist when configured")
}

func TestServer_HealthDegradedWhenRunnerStopped(t *testing.T) {
	s, runner := newTestServer(t, false)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	w := get(s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["simulator"])

	runner.Start()
	w = get(s, "/health")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, false)
	get(s, "/api/servers")

	w := get(s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `dcsim_http_requests_total{endpoint="/api/servers",method="GET",status="200"} 1`))
}

func TestServer_LineWebhookAnswersOK(t *testing.T) {
	s, _ := newTestServer(t, true)

	body := `{"events":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/line/webhook", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", "forged")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/line/broadcast", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no access token configured")
}
