package models

import "time"

type EventType string

const (
	EventCPUSpike            EventType = "cpu_spike"
	EventMemoryLeak          EventType = "memory_leak"
	EventDiskFull            EventType = "disk_full"
	EventCoolingFailure      EventType = "cooling_failure"
	EventPowerSurge          EventType = "power_surge"
	EventNetworkCongestion   EventType = "network_congestion"
	EventHardwareFailure     EventType = "hardware_failure"
	EventTemperatureSpike    EventType = "temperature_spike"
	EventVibrationAlert      EventType = "vibration_alert"
	EventMaintenanceRequired EventType = "maintenance_required"
	EventWorkloadSurge       EventType = "workload_surge"
	EventAIOptimization      EventType = "ai_optimization"
	EventAnomaly             EventType = "anomaly"
)

// AllEventTypes lists the fault catalog in a fixed order so uniform picks are reproducible.
func AllEventTypes() []EventType {
	return []EventType{
		EventCPUSpike,
		EventMemoryLeak,
		EventDiskFull,
		EventCoolingFailure,
		EventPowerSurge,
		EventNetworkCongestion,
		EventHardwareFailure,
		EventTemperatureSpike,
		EventVibrationAlert,
		EventMaintenanceRequired,
		EventWorkloadSurge,
		EventAIOptimization,
		EventAnomaly,
	}
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank orders severities from 1 (low) to 4 (critical); unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Impact holds the per-metric deltas an event applies. Nil fields are untouched.
type Impact struct {
	CPU         *float64 `json:"cpu,omitempty"`
	Memory      *float64 `json:"memory,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	HealthScore *float64 `json:"health_score,omitempty"`
	Disk        *float64 `json:"disk,omitempty"`
	Network     *float64 `json:"network,omitempty"`
}

// Delta returns a pointer to v, for building Impact literals.
func Delta(v float64) *float64 {
	return &v
}

func (i Impact) IsZero() bool {
	return i.CPU == nil && i.Memory == nil && i.Temperature == nil &&
		i.HealthScore == nil && i.Disk == nil && i.Network == nil
}

type SimulationEvent struct {
	ID          string     `json:"id"`
	Type        EventType  `json:"type"`
	ServerID    string     `json:"server_id"`
	ServerName  string     `json:"server_name"`
	Severity    Severity   `json:"severity"`
	Title       string     `json:"title"`
	TitleTh     string     `json:"title_th,omitempty"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
	DurationMS  int64      `json:"duration_ms"`
	Impact      Impact     `json:"impact"`
	AIResponse  string     `json:"ai_response,omitempty"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func (e *SimulationEvent) Duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}

// ResolvesAt is the instant the event is scheduled to auto-resolve.
func (e *SimulationEvent) ResolvesAt() time.Time {
	return e.Timestamp.Add(e.Duration())
}
