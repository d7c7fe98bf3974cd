package models

type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorPower       SensorType = "power"
	SensorVibration   SensorType = "vibration"
)

type SensorStatus string

const (
	SensorNormal   SensorStatus = "normal"
	SensorWarning  SensorStatus = "warning"
	SensorCritical SensorStatus = "critical"
)

type SensorState struct {
	ID       string       `json:"id"`
	Type     SensorType   `json:"type"`
	Name     string       `json:"name"`
	Value    float64      `json:"value"`
	Unit     string       `json:"unit"`
	Status   SensorStatus `json:"status"`
	Location string       `json:"location"`
}

// ClassifySensor maps a reading onto a status using per-type thresholds.
func ClassifySensor(sensorType SensorType, value float64) SensorStatus {
	switch sensorType {
	case SensorTemperature:
		switch {
		case value > 32:
			return SensorCritical
		case value > 27:
			return SensorWarning
		}
	case SensorHumidity:
		switch {
		case value < 30 || value > 70:
			return SensorCritical
		case value < 40 || value > 60:
			return SensorWarning
		}
	case SensorPower:
		switch {
		case value > 38:
			return SensorCritical
		case value > 32:
			return SensorWarning
		}
	case SensorVibration:
		switch {
		case value > 4.0:
			return SensorCritical
		case value > 2.0:
			return SensorWarning
		}
	}
	return SensorNormal
}

// SensorsByType buckets sensors preserving roster order within each bucket.
func SensorsByType(sensors []SensorState) map[SensorType][]SensorState {
	buckets := make(map[SensorType][]SensorState)
	for _, s := range sensors {
		buckets[s.Type] = append(buckets[s.Type], s)
	}
	return buckets
}
