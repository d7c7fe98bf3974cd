package simulator

import (
	"math"

	"github.com/OldStager01/dcsim/pkg/models"
)

// Floors and ceilings applied when an event's impact is reversed.
const (
	resolveCPUFloor    = 20.0
	resolveMemoryFloor = 30.0
	resolveTempFloor   = 20.0
	resolveTempCeiling = 35.0
	healthRecovery     = 0.5
	healthRecoveryCap  = 95.0
)

func applyImpact(rec *serverRecord, event *models.SimulationEvent) {
	st := &rec.state
	impact := event.Impact

	if impact.CPU != nil {
		st.CPU = clamp(st.CPU+*impact.CPU, 0, models.MaxPercent)
	}
	if impact.Memory != nil {
		st.Memory = clamp(st.Memory+*impact.Memory, 0, models.MaxPercent)
	}
	if impact.Temperature != nil {
		st.Temperature = clamp(st.Temperature+*impact.Temperature, models.MinTemperature, models.MaxTemperature)
	}
	if impact.HealthScore != nil {
		st.HealthScore = clamp(st.HealthScore+*impact.HealthScore, 0, models.MaxPercent)
	}
	if impact.Disk != nil {
		st.Disk = clamp(st.Disk+*impact.Disk, 0, models.MaxPercent)
	}
	if impact.Network != nil {
		st.Network = math.Max(0, st.Network+*impact.Network)
	}

	classify(rec)
}

func reverseImpact(rec *serverRecord, event *models.SimulationEvent) {
	st := &rec.state
	impact := event.Impact

	if impact.CPU != nil {
		st.CPU = clamp(st.CPU-*impact.CPU, resolveCPUFloor, models.MaxPercent)
	}
	if impact.Memory != nil {
		st.Memory = clamp(st.Memory-*impact.Memory, resolveMemoryFloor, models.MaxPercent)
	}
	if impact.Temperature != nil {
		st.Temperature = clamp(st.Temperature-*impact.Temperature, resolveTempFloor, resolveTempCeiling)
	}
	if impact.HealthScore != nil && *impact.HealthScore < 0 {
		st.HealthScore = math.Min(healthRecoveryCap, st.HealthScore-*impact.HealthScore*healthRecovery)
		st.HealthScore = clamp(st.HealthScore, 0, models.MaxPercent)
	}
	if impact.Disk != nil {
		st.Disk = clamp(st.Disk-*impact.Disk, 0, models.MaxPercent)
	}
	if impact.Network != nil {
		st.Network = math.Max(0, st.Network-*impact.Network)
	}
}

func hasHardwareFailure(rec *serverRecord) bool {
	for _, e := range rec.events {
		if e.Type == models.EventHardwareFailure {
			return true
		}
	}
	return false
}

func classify(rec *serverRecord) {
	st := &rec.state
	st.Status = models.ClassifyServer(st.HealthScore, st.CPU, st.Temperature,
		rec.forcedOffline || hasHardwareFailure(rec))
}

// settleStatus runs after a resolution. A quiet, healthy server goes back
// online; anything else is re-classified from its metrics.
func settleStatus(rec *serverRecord) {
	st := &rec.state
	if len(rec.events) == 0 && !rec.forcedOffline && models.IsHealthy(st.HealthScore, st.CPU, st.Temperature) {
		st.Status = models.ServerStatusOnline
		return
	}
	classify(rec)
}
