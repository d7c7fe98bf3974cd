package simulator

import (
	"fmt"
	"time"

	"github.com/OldStager01/dcsim/pkg/models"
)

// template describes how one fault type is generated and applied.
type template struct {
	severities  []models.Severity
	title       string
	titleTh     string
	description string // formatted with the server name
	impacts     map[models.Severity]models.Impact
	responses   map[models.Severity]string
	base        time.Duration
	jitter      time.Duration
}

func (t template) duration(r Rand) time.Duration {
	if t.jitter <= 0 {
		return t.base
	}
	return t.base + time.Duration(r.Float64()*float64(t.jitter))
}

func bySeverity(low, medium, high, critical *models.Impact) map[models.Severity]models.Impact {
	out := make(map[models.Severity]models.Impact, 4)
	for sev, impact := range map[models.Severity]*models.Impact{
		models.SeverityLow:      low,
		models.SeverityMedium:   medium,
		models.SeverityHigh:     high,
		models.SeverityCritical: critical,
	} {
		if impact != nil {
			out[sev] = *impact
		}
	}
	return out
}

func sameResponse(text string, severities ...models.Severity) map[models.Severity]string {
	out := make(map[models.Severity]string, len(severities))
	for _, sev := range severities {
		out[sev] = text
	}
	return out
}

var delta = models.Delta

var catalog = map[models.EventType]template{
	models.EventCPUSpike: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
		title:       "CPU spike detected",
		titleTh:     "🔥 CPU Spike ตรวจพบ",
		description: "%s shows a sudden rise in CPU usage, likely from increased workload",
		impacts: bySeverity(nil,
			&models.Impact{CPU: delta(15), Temperature: delta(3), HealthScore: delta(-5)},
			&models.Impact{CPU: delta(25), Temperature: delta(5), HealthScore: delta(-10)},
			&models.Impact{CPU: delta(35), Temperature: delta(8), HealthScore: delta(-15)},
		),
		responses: map[models.Severity]string{
			models.SeverityMedium:   "AI is checking and rebalancing workload",
			models.SeverityHigh:     "AI is checking and rebalancing workload",
			models.SeverityCritical: "AI is migrating workload to other servers and boosting cooling",
		},
		base:   30 * time.Second,
		jitter: 60 * time.Second,
	},
	models.EventMemoryLeak: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
		title:       "Memory leak detected",
		titleTh:     "💧 Memory Leak ตรวจพบ",
		description: "%s memory usage is climbing abnormally, a restart may be needed",
		impacts: bySeverity(nil,
			&models.Impact{Memory: delta(15), HealthScore: delta(-8)},
			&models.Impact{Memory: delta(25), HealthScore: delta(-12)},
			&models.Impact{Memory: delta(40), HealthScore: delta(-20)},
		),
		responses: map[models.Severity]string{
			models.SeverityMedium:   "AI is tracking and analysing memory usage",
			models.SeverityHigh:     "AI is tracking and analysing memory usage",
			models.SeverityCritical: "AI recommends restarting the service immediately",
		},
		base:   60 * time.Second,
		jitter: 120 * time.Second,
	},
	models.EventCoolingFailure: {
		severities:  []models.Severity{models.SeverityHigh, models.SeverityCritical},
		title:       "Cooling failure",
		titleTh:     "❄️ ระบบทำความเย็นล้มเหลว",
		description: "CRAC unit near %s is underperforming and temperature is rising",
		impacts: bySeverity(nil, nil,
			&models.Impact{Temperature: delta(8), CPU: delta(-5), HealthScore: delta(-15)},
			&models.Impact{Temperature: delta(12), CPU: delta(-10), HealthScore: delta(-25)},
		),
		responses: map[models.Severity]string{
			models.SeverityHigh:     "AI is bringing backup cooling online",
			models.SeverityCritical: "AI is shedding workload and paging the maintenance team",
		},
		base:   120 * time.Second,
		jitter: 180 * time.Second,
	},
	models.EventPowerSurge: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
		title:       "Power surge",
		titleTh:     "⚡ ไฟกระชาก (Power Surge)",
		description: "Power surge detected at %s, hardware may be affected",
		impacts: bySeverity(nil,
			&models.Impact{HealthScore: delta(-10)},
			&models.Impact{HealthScore: delta(-18)},
			&models.Impact{HealthScore: delta(-30)},
		),
		responses: sameResponse("AI is switching to UPS and checking for damage",
			models.SeverityMedium, models.SeverityHigh, models.SeverityCritical),
		base:   5 * time.Second,
		jitter: 15 * time.Second,
	},
	models.EventNetworkCongestion: {
		severities:  []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh},
		title:       "Network congestion",
		titleTh:     "🌐 Network Congestion",
		description: "%s has abnormally high network traffic",
		impacts: bySeverity(
			&models.Impact{Network: delta(100), CPU: delta(5)},
			&models.Impact{Network: delta(150), CPU: delta(10)},
			&models.Impact{Network: delta(200), CPU: delta(15)},
			nil,
		),
		responses: map[models.Severity]string{
			models.SeverityLow:    "AI is inspecting traffic patterns",
			models.SeverityMedium: "AI is inspecting traffic patterns",
			models.SeverityHigh:   "AI is adjusting routing and limiting bandwidth",
		},
		base:   40 * time.Second,
		jitter: 80 * time.Second,
	},
	models.EventHardwareFailure: {
		severities:  []models.Severity{models.SeverityCritical},
		title:       "Hardware failure",
		titleTh:     "🔧 Hardware Failure ตรวจพบ",
		description: "%s has failed hardware and must be shut down for repair",
		impacts: bySeverity(nil, nil, nil,
			&models.Impact{CPU: delta(-100), Memory: delta(-100), HealthScore: delta(-100)},
		),
		responses: sameResponse("AI is migrating all workload and notifying the maintenance team",
			models.SeverityCritical),
		base:   300 * time.Second,
		jitter: 300 * time.Second,
	},
	models.EventTemperatureSpike: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
		title:       "Abnormal temperature",
		titleTh:     "🌡️ อุณหภูมิสูงผิดปกติ",
		description: "%s is running hotter than normal, possibly from poor airflow",
		impacts: bySeverity(nil,
			&models.Impact{Temperature: delta(6), CPU: delta(-5), HealthScore: delta(-8)},
			&models.Impact{Temperature: delta(10), CPU: delta(-8), HealthScore: delta(-12)},
			&models.Impact{Temperature: delta(15), CPU: delta(-15), HealthScore: delta(-20)},
		),
		responses: map[models.Severity]string{
			models.SeverityMedium:   "AI is increasing cooling efficiency",
			models.SeverityHigh:     "AI is increasing cooling efficiency",
			models.SeverityCritical: "AI is reducing workload and maximising cooling",
		},
		base:   45 * time.Second,
		jitter: 90 * time.Second,
	},
	models.EventVibrationAlert: {
		severities:  []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh},
		title:       "Vibration detected",
		titleTh:     "📳 ตรวจพบการสั่นสะเทือน",
		description: "%s shows abnormal vibration, possibly a fan or hard disk",
		impacts: bySeverity(
			&models.Impact{HealthScore: delta(-5)},
			&models.Impact{HealthScore: delta(-8)},
			&models.Impact{HealthScore: delta(-15)},
			nil,
		),
		responses: map[models.Severity]string{
			models.SeverityLow:    "AI is tracking and recording vibration patterns",
			models.SeverityMedium: "AI is tracking and recording vibration patterns",
			models.SeverityHigh:   "AI recommends inspecting fans and hard disks now",
		},
		base:   60 * time.Second,
		jitter: 120 * time.Second,
	},
	models.EventMaintenanceRequired: {
		severities:  []models.Severity{models.SeverityLow, models.SeverityMedium},
		title:       "Maintenance due",
		titleTh:     "🔧 ถึงเวลาบำรุงรักษา",
		description: "%s is due for scheduled maintenance",
		impacts: bySeverity(
			&models.Impact{HealthScore: delta(-5)},
			&models.Impact{HealthScore: delta(-5)},
			nil, nil,
		),
		responses: sameResponse("AI recommends scheduling a maintenance window",
			models.SeverityLow, models.SeverityMedium),
		base: 180 * time.Second,
	},
	models.EventWorkloadSurge: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh},
		title:       "Workload surge",
		titleTh:     "📈 Workload เพิ่มขึ้นกระทันหัน",
		description: "%s is receiving a sharp increase in workload",
		impacts: bySeverity(nil,
			&models.Impact{CPU: delta(20), Memory: delta(15), Temperature: delta(4)},
			&models.Impact{CPU: delta(30), Memory: delta(25), Temperature: delta(6)},
			nil,
		),
		responses: map[models.Severity]string{
			models.SeverityMedium: "AI is reviewing workload patterns",
			models.SeverityHigh:   "AI is scaling up resources and rebalancing workload",
		},
		base:   90 * time.Second,
		jitter: 120 * time.Second,
	},
	models.EventDiskFull: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityCritical},
		title:       "Disk almost full",
		titleTh:     "💾 Disk เกือบเต็ม",
		description: "%s is running low on disk space",
		impacts: bySeverity(nil,
			&models.Impact{Disk: delta(15), HealthScore: delta(-8)},
			&models.Impact{Disk: delta(25), HealthScore: delta(-15)},
			&models.Impact{Disk: delta(40), HealthScore: delta(-25)},
		),
		responses: map[models.Severity]string{
			models.SeverityMedium:   "AI is analysing disk usage",
			models.SeverityHigh:     "AI is analysing disk usage",
			models.SeverityCritical: "AI is purging temporary files and relocating data",
		},
		base:   120 * time.Second,
		jitter: 180 * time.Second,
	},
	models.EventAIOptimization: {
		severities:  []models.Severity{models.SeverityLow},
		title:       "AI optimisation in progress",
		titleTh:     "✨ AI กำลังปรับแต่งระบบ",
		description: "AI is tuning the performance of %s",
		impacts: bySeverity(
			&models.Impact{CPU: delta(-5), Temperature: delta(-2), HealthScore: delta(5)},
			nil, nil, nil,
		),
		responses: sameResponse("AI tuned the configuration for better efficiency", models.SeverityLow),
		base:      30 * time.Second,
		jitter:    60 * time.Second,
	},
	models.EventAnomaly: {
		severities:  []models.Severity{models.SeverityMedium, models.SeverityHigh},
		title:       "Anomaly detected",
		titleTh:     "⚠️ ตรวจพบความผิดปกติ (Anomaly)",
		description: "AI detected unclassified abnormal behaviour on %s",
		impacts: bySeverity(nil,
			&models.Impact{HealthScore: delta(-8), CPU: delta(5)},
			&models.Impact{HealthScore: delta(-15), CPU: delta(10)},
			nil,
		),
		responses: sameResponse("AI is running root cause analysis to classify the problem",
			models.SeverityMedium, models.SeverityHigh),
		base:   60 * time.Second,
		jitter: 120 * time.Second,
	},
}

func init() {
	if err := validateCatalog(catalog); err != nil {
		panic(err)
	}
}

// validateCatalog checks that every event type has a complete template.
func validateCatalog(c map[models.EventType]template) error {
	for _, eventType := range models.AllEventTypes() {
		t, ok := c[eventType]
		if !ok {
			return fmt.Errorf("catalog: missing template for %s", eventType)
		}
		if len(t.severities) == 0 {
			return fmt.Errorf("catalog: %s has no severities", eventType)
		}
		if t.title == "" || t.description == "" {
			return fmt.Errorf("catalog: %s has no title or description", eventType)
		}
		if t.base <= 0 || t.jitter < 0 {
			return fmt.Errorf("catalog: %s has invalid duration %s+%s", eventType, t.base, t.jitter)
		}
		for _, sev := range t.severities {
			if !sev.Valid() {
				return fmt.Errorf("catalog: %s has invalid severity %q", eventType, sev)
			}
			impact, ok := t.impacts[sev]
			if !ok || impact.IsZero() {
				return fmt.Errorf("catalog: %s/%s has no impact", eventType, sev)
			}
			if t.responses[sev] == "" {
				return fmt.Errorf("catalog: %s/%s has no response", eventType, sev)
			}
		}
	}
	if len(c) != len(models.AllEventTypes()) {
		return fmt.Errorf("catalog: %d templates for %d event types", len(c), len(models.AllEventTypes()))
	}
	return nil
}

// Severities returns the allowed severities of an event type.
func Severities(eventType models.EventType) ([]models.Severity, bool) {
	t, ok := catalog[eventType]
	if !ok {
		return nil, false
	}
	out := make([]models.Severity, len(t.severities))
	copy(out, t.severities)
	return out, true
}

func (t template) allows(sev models.Severity) bool {
	for _, s := range t.severities {
		if s == sev {
			return true
		}
	}
	return false
}
