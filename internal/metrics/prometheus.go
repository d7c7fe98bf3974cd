package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

const namespace = "dcsim"

type Metrics struct {
	registry *prometheus.Registry

	// Simulation
	ServerCPU         *prometheus.GaugeVec
	ServerMemory      *prometheus.GaugeVec
	ServerTemperature *prometheus.GaugeVec
	ServerDisk        *prometheus.GaugeVec
	ServerNetwork     *prometheus.GaugeVec
	ServerHealth      *prometheus.GaugeVec
	ServerStatus      *prometheus.GaugeVec
	SensorValue       *prometheus.GaugeVec
	ActiveEvents      prometheus.Gauge
	EventsGenerated   *prometheus.CounterVec
	EventsResolved    *prometheus.CounterVec
	ServerResets      prometheus.Counter
	TicksTotal        prometheus.Counter

	// Surfaces
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
	LineMessagesTotal   *prometheus.CounterVec
	UnityCommandsTotal  *prometheus.CounterVec
	PredictionsTotal    *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics set.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a metrics set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	serverGauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"server_id", "rack"})
	}

	return &Metrics{
		registry: reg,

		ServerCPU:         serverGauge("server_cpu_percent", "Simulated CPU utilisation per server"),
		ServerMemory:      serverGauge("server_memory_percent", "Simulated memory utilisation per server"),
		ServerTemperature: serverGauge("server_temperature_celsius", "Simulated server inlet temperature"),
		ServerDisk:        serverGauge("server_disk_percent", "Simulated disk utilisation per server"),
		ServerNetwork:     serverGauge("server_network_mbps", "Simulated network throughput per server"),
		ServerHealth:      serverGauge("server_health_score", "Simulated health score per server"),
		ServerStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_status",
			Help:      "1 for the server's current status, 0 otherwise",
		}, []string{"server_id", "status"}),
		SensorValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_value",
			Help:      "Current sensor reading in the sensor's unit",
		}, []string{"sensor_id", "type", "location"}),
		ActiveEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_events",
			Help:      "Number of unresolved simulation events",
		}),
		EventsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_generated_total",
			Help:      "Simulation events generated",
		}, []string{"type", "severity"}),
		EventsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_resolved_total",
			Help:      "Simulation events resolved by their timer",
		}, []string{"type"}),
		ServerResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_resets_total",
			Help:      "Servers reset by operator commands",
		}),
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Simulation ticks, background and on-read",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		LineMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_messages_total",
			Help:      "LINE messages handled, by kind and outcome",
		}, []string{"kind", "outcome"}),
		UnityCommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unity_commands_total",
			Help:      "Unity commands accepted, by command",
		}, []string{"command"}),
		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by model and source",
		}, []string{"model", "source"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveServers refreshes the per-server gauges from a snapshot.
func (m *Metrics) ObserveServers(servers []models.ServerState) {
	active := 0
	for _, s := range servers {
		m.ServerCPU.WithLabelValues(s.ID, s.Rack).Set(s.CPU)
		m.ServerMemory.WithLabelValues(s.ID, s.Rack).Set(s.Memory)
		m.ServerTemperature.WithLabelValues(s.ID, s.Rack).Set(s.Temperature)
		m.ServerDisk.WithLabelValues(s.ID, s.Rack).Set(s.Disk)
		m.ServerNetwork.WithLabelValues(s.ID, s.Rack).Set(s.Network)
		m.ServerHealth.WithLabelValues(s.ID, s.Rack).Set(s.HealthScore)
		for _, status := range []models.ServerStatus{
			models.ServerStatusOnline,
			models.ServerStatusWarning,
			models.ServerStatusCritical,
			models.ServerStatusOffline,
		} {
			v := 0.0
			if s.Status == status {
				v = 1
			}
			m.ServerStatus.WithLabelValues(s.ID, string(status)).Set(v)
		}
		active += len(s.ActiveEvents)
	}
	m.ActiveEvents.Set(float64(active))
}

func (m *Metrics) ObserveSensors(sensors []models.SensorState) {
	for _, s := range sensors {
		m.SensorValue.WithLabelValues(s.ID, string(s.Type), s.Location).Set(s.Value)
	}
}

// EventGenerated, EventResolved and ServerReset let Metrics observe the store directly.
func (m *Metrics) EventGenerated(event models.SimulationEvent) {
	m.EventsGenerated.WithLabelValues(string(event.Type), string(event.Severity)).Inc()
}

func (m *Metrics) EventResolved(event models.SimulationEvent) {
	m.EventsResolved.WithLabelValues(string(event.Type)).Inc()
}

func (m *Metrics) ServerReset(models.ServerState) {
	m.ServerResets.Inc()
}

func (m *Metrics) IncTick() {
	m.TicksTotal.Inc()
}

func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) IncLineMessage(kind, outcome string) {
	m.LineMessagesTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncUnityCommand(command string) {
	m.UnityCommandsTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) IncPrediction(model, source string) {
	m.PredictionsTotal.WithLabelValues(model, source).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on its own port.
func StartServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
	return srv
}
