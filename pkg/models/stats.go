package models

import "math"

// Stats aggregates the roster into the dashboard summary figures.
type Stats struct {
	TotalServers    int     `json:"total_servers"`
	OnlineServers   int     `json:"online_servers"`
	WarningServers  int     `json:"warning_servers"`
	CriticalServers int     `json:"critical_servers"`
	OfflineServers  int     `json:"offline_servers"`
	ServingServers  int     `json:"serving_servers"`
	AvgCPU          float64 `json:"avg_cpu"`
	AvgMemory       float64 `json:"avg_memory"`
	AvgTemperature  float64 `json:"avg_temperature"`
	AvgHealth       float64 `json:"avg_health"`
	PowerKW         float64 `json:"power_kw"`
	PUE             float64 `json:"pue"`
	ActiveEvents    int     `json:"active_events"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
}

// ITPowerShare is the share of facility power that reaches the servers.
const ITPowerShare = 0.72

// ComputeStats derives Stats from snapshots. Average temperature comes from the
// temperature sensors when present, otherwise from the servers.
func ComputeStats(servers []ServerState, sensors []SensorState, activeEvents int) Stats {
	stats := Stats{
		TotalServers: len(servers),
		ActiveEvents: activeEvents,
	}

	var totalCPU, totalMemory, totalTemp, totalHealth float64
	for _, s := range servers {
		if s.IsServing() {
			stats.ServingServers++
		}
		switch s.Status {
		case ServerStatusOnline:
			stats.OnlineServers++
		case ServerStatusWarning:
			stats.WarningServers++
		case ServerStatusCritical:
			stats.CriticalServers++
		case ServerStatusOffline:
			stats.OfflineServers++
		}
		totalCPU += s.CPU
		totalMemory += s.Memory
		totalTemp += s.Temperature
		totalHealth += s.HealthScore
	}

	if n := float64(len(servers)); n > 0 {
		stats.AvgCPU = round1(totalCPU / n)
		stats.AvgMemory = round1(totalMemory / n)
		stats.AvgTemperature = round1(totalTemp / n)
		stats.AvgHealth = round1(totalHealth / n)
	}

	var sensorTemp float64
	var tempCount int
	for _, s := range sensors {
		switch s.Type {
		case SensorTemperature:
			sensorTemp += s.Value
			tempCount++
		case SensorPower:
			stats.PowerKW = round1(s.Value)
		}
	}
	if tempCount > 0 {
		stats.AvgTemperature = round1(sensorTemp / float64(tempCount))
	}

	if stats.PowerKW > 0 {
		stats.PUE = math.Round(1/ITPowerShare*100) / 100
		// Hotter rooms need more cooling per IT watt.
		if stats.AvgTemperature > 27 {
			stats.PUE = math.Round((stats.PUE+(stats.AvgTemperature-27)*0.02)*100) / 100
		}
	}

	return stats
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
