package models

type ServerStatus string

const (
	ServerStatusOnline   ServerStatus = "online"
	ServerStatusWarning  ServerStatus = "warning"
	ServerStatusCritical ServerStatus = "critical"
	ServerStatusOffline  ServerStatus = "offline"
)

// Metric bounds enforced on every server mutation.
const (
	MinTemperature = 18.0
	MaxTemperature = 45.0
	MaxPercent     = 100.0
)

// ServerState is a point-in-time view of one simulated machine.
type ServerState struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Rack         string            `json:"rack"`
	CPU          float64           `json:"cpu"`
	Memory       float64           `json:"memory"`
	Temperature  float64           `json:"temperature"`
	Disk         float64           `json:"disk"`
	Network      float64           `json:"network"`
	HealthScore  float64           `json:"health_score"`
	Status       ServerStatus      `json:"status"`
	ActiveEvents []SimulationEvent `json:"active_events"`
}

// IsServing reports whether the machine still takes workload (online or degraded).
func (s *ServerState) IsServing() bool {
	return s.Status == ServerStatusOnline || s.Status == ServerStatusWarning
}

// ClassifyServer derives a status from metrics. hardwareFailure overrides everything.
func ClassifyServer(healthScore, cpu, temperature float64, hardwareFailure bool) ServerStatus {
	switch {
	case hardwareFailure:
		return ServerStatusOffline
	case healthScore < 30 || cpu > 95 || temperature > 38:
		return ServerStatusCritical
	case healthScore < 60 || cpu > 80 || temperature > 32:
		return ServerStatusWarning
	default:
		return ServerStatusOnline
	}
}

// IsHealthy is the bar a server must clear before it is put back online
// after its last event resolves.
func IsHealthy(healthScore, cpu, temperature float64) bool {
	return healthScore > 70 && cpu < 70 && temperature < 30
}
