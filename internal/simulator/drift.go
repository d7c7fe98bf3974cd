package simulator

import (
	"math"

	"github.com/OldStager01/dcsim/pkg/models"
)

const (
	driftCPUSpread    = 2.5
	driftMemorySpread = 1.0
	driftSmoothing    = 0.1
	driftHealthStep   = 0.5
	driftHealthCap    = 95.0
)

// driftServers applies the per-tick random walk to every non-offline server.
func (s *Store) driftServers() {
	for _, rec := range s.servers {
		st := &rec.state
		if st.Status == models.ServerStatusOffline {
			continue
		}

		st.CPU = clamp(st.CPU+uniform(s.rand, driftCPUSpread), 15, 85)
		st.Memory = clamp(st.Memory+uniform(s.rand, driftMemorySpread), 30, 90)

		target := 20 + st.CPU/100*12
		st.Temperature = clamp(st.Temperature+(target-st.Temperature)*driftSmoothing, 18, 35)

		if len(rec.events) == 0 && st.HealthScore < driftHealthCap {
			st.HealthScore = math.Min(models.MaxPercent, st.HealthScore+driftHealthStep)
		}
		settleStatus(rec)
	}
}

func (s *Store) driftSensors() {
	var totalCPU float64
	for _, rec := range s.servers {
		totalCPU += rec.state.CPU
	}

	for _, sensor := range s.sensors {
		switch sensor.Type {
		case models.SensorTemperature:
			sensor.Value = clamp(sensor.Value+uniform(s.rand, 0.25), 18, 35)
		case models.SensorHumidity:
			sensor.Value = clamp(sensor.Value+uniform(s.rand, 0.5), 30, 70)
		case models.SensorPower:
			target := 20 + totalCPU/600*15
			sensor.Value += (target - sensor.Value) * driftSmoothing
		case models.SensorVibration:
			sensor.Value = math.Max(0, sensor.Value+uniform(s.rand, 0.05))
		}
		sensor.Status = models.ClassifySensor(sensor.Type, sensor.Value)
	}
}
