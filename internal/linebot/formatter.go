package linebot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OldStager01/dcsim/internal/predictor"
	"github.com/OldStager01/dcsim/pkg/models"
)

// Source is the read side of the simulator the bot reports on.
type Source interface {
	ListServers() []models.ServerState
	ListSensors() []models.SensorState
	ListActiveEvents() []models.SimulationEvent
	Stats() models.Stats
}

const maxListedAlerts = 5

var severityEmoji = map[models.Severity]string{
	models.SeverityCritical: "🚨",
	models.SeverityHigh:     "⚠️",
	models.SeverityMedium:   "⚡",
	models.SeverityLow:      "ℹ️",
}

var sensorEmoji = map[models.SensorStatus]string{
	models.SensorNormal:   "✅",
	models.SensorWarning:  "⚠️",
	models.SensorCritical: "🚨",
}

// Formatter renders chat replies from live simulator state.
type Formatter struct {
	source   Source
	location *time.Location
}

func NewFormatter(source Source, location *time.Location) *Formatter {
	if location == nil {
		location = time.Local
	}
	return &Formatter{source: source, location: location}
}

func (f *Formatter) Reply(cmd Command) string {
	switch cmd {
	case CommandStatus:
		return f.Status()
	case CommandAlert:
		return f.Alerts()
	case CommandTemperature:
		return f.Temperature()
	case CommandHelp:
		return Help()
	case CommandPower:
		return f.Power()
	case CommandServers:
		return f.Servers()
	case CommandPredict:
		return f.Predict()
	default:
		return Greeting()
	}
}

func (f *Formatter) Status() string {
	stats := f.source.Stats()
	serving := stats.ServingServers

	verdict := "✅ All systems operational!"
	if serving < stats.TotalServers {
		verdict = "⚠️ Some servers need attention!"
	}

	return fmt.Sprintf(`📊 Data Center Status

🖥️ Servers: %d/%d online
🌡️ Avg Temperature: %.1f°C
⚡ Power Usage: %.1f kW
🔄 Uptime: %s
🔔 Active Events: %d

%s

Type "alert" for recent alerts
Type "help" for all commands`,
		serving, stats.TotalServers,
		stats.AvgTemperature,
		stats.PowerKW,
		formatUptime(stats.UptimeSeconds),
		stats.ActiveEvents,
		verdict,
	)
}

func (f *Formatter) Alerts() string {
	events := f.source.ListActiveEvents()
	if len(events) == 0 {
		return "✅ No active alerts\n\nType \"status\" for an overview"
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Severity.Rank() > events[j].Severity.Rank()
	})

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Recent Alerts\n\n%d active:\n", len(events))
	for i, e := range events {
		if i == maxListedAlerts {
			fmt.Fprintf(&b, "• ...and %d more\n", len(events)-maxListedAlerts)
			break
		}
		fmt.Fprintf(&b, "%s %s: %s (%s)\n", severityEmoji[e.Severity], e.ServerName, e.Title, e.Severity)
	}
	b.WriteString("\nType \"help\" for more commands")
	return b.String()
}

func (f *Formatter) Temperature() string {
	sensors := f.source.ListSensors()

	var locations []string
	sums := make(map[string]float64)
	counts := make(map[string]int)
	worst := make(map[string]models.SensorStatus)
	for _, s := range sensors {
		if s.Type != models.SensorTemperature {
			continue
		}
		if counts[s.Location] == 0 {
			locations = append(locations, s.Location)
		}
		sums[s.Location] += s.Value
		counts[s.Location]++
		if statusRank(s.Status) > statusRank(worst[s.Location]) {
			worst[s.Location] = s.Status
		}
	}

	var b strings.Builder
	b.WriteString("🌡️ Temperature Status\n\n")
	if len(locations) == 0 {
		b.WriteString("No temperature sensors reporting\n")
	}
	for _, loc := range locations {
		status := worst[loc]
		if status == "" {
			status = models.SensorNormal
		}
		fmt.Fprintf(&b, "%s: %.1f°C %s\n", loc, sums[loc]/float64(counts[loc]), sensorEmoji[status])
	}

	var hottest *models.ServerState
	servers := f.source.ListServers()
	for i := range servers {
		if hottest == nil || servers[i].Temperature > hottest.Temperature {
			hottest = &servers[i]
		}
	}
	if hottest != nil {
		fmt.Fprintf(&b, "\nHottest server: %s (%.1f°C)", hottest.Name, hottest.Temperature)
	}
	return b.String()
}

func statusRank(s models.SensorStatus) int {
	switch s {
	case models.SensorWarning:
		return 1
	case models.SensorCritical:
		return 2
	}
	return 0
}

func (f *Formatter) Power() string {
	stats := f.source.Stats()
	serverPower := stats.PowerKW * models.ITPowerShare
	coolingPower := stats.PowerKW * 0.23
	other := stats.PowerKW - serverPower - coolingPower

	efficiency := "Good ✅"
	if stats.PUE > 1.5 {
		efficiency = "Poor ⚠️"
	}

	return fmt.Sprintf(`⚡ Power Status

Total Consumption: %.1f kW
PUE: %.2f
Efficiency: %s

Server Power: %.1f kW
Cooling Power: %.1f kW
Other: %.1f kW`,
		stats.PowerKW, stats.PUE, efficiency, serverPower, coolingPower, other)
}

func (f *Formatter) Servers() string {
	servers := f.source.ListServers()

	var online, offline, excellent, good, poor int
	for _, s := range servers {
		if s.Status == models.ServerStatusOffline {
			offline++
		} else {
			online++
		}
		switch {
		case s.HealthScore >= 90:
			excellent++
		case s.HealthScore >= 80:
			good++
		default:
			poor++
		}
	}

	return fmt.Sprintf(`🖥️ Server Health

Total: %d servers
Online: %d ✅
Offline: %d

Health Scores:
• Excellent (90-100): %d servers
• Good (80-89): %d servers
• Warning (<80): %d servers`,
		len(servers), online, offline, excellent, good, poor)
}

func (f *Formatter) Predict() string {
	servers := f.source.ListServers()
	insights := predictor.ComputeInsights(servers, f.source.ListSensors())

	var b strings.Builder
	b.WriteString("🔮 AI Predictions\n\n")
	if insights.AnomalyDetected {
		b.WriteString("• Anomaly detected in current readings\n")
	} else {
		b.WriteString("• No anomalies in current readings\n")
	}
	fmt.Fprintf(&b, "• Predictive alerts: %d\n", insights.PredictiveAlerts)
	fmt.Fprintf(&b, "• Optimizations suggested: %d\n", insights.OptimizationsSuggested)

	var riskiest *models.ServerState
	riskiestScore := 0.0
	for i := range servers {
		s := &servers[i]
		if s.Status == models.ServerStatusOffline {
			continue
		}
		risk := predictor.FailureRisk(predictor.MaintenanceInput{
			ErrorCount:     float64(len(s.ActiveEvents)),
			TemperatureAvg: s.Temperature,
		})
		if riskiest == nil || risk > riskiestScore {
			riskiest, riskiestScore = s, risk
		}
	}
	if riskiest != nil && riskiestScore > 0.5 {
		fmt.Fprintf(&b, "\nRecommendation: %s needs attention (risk %.2f)\n", riskiest.Name, riskiestScore)
	}

	fmt.Fprintf(&b, "\nConfidence: %.1f%%", insights.ConfidenceScore)
	return b.String()
}

// Alert renders an event for push or broadcast delivery.
func (f *Formatter) Alert(e models.SimulationEvent) string {
	emoji, ok := severityEmoji[e.Severity]
	if !ok {
		emoji = "📢"
	}
	title := e.TitleTh
	if title == "" {
		title = e.Title
	}

	ai := ""
	if e.AIResponse != "" {
		ai = "\n🤖 AI Action: " + e.AIResponse + "\n"
	}

	return fmt.Sprintf(`%s %s

📌 %s (%s)

%s
%s
⏰ %s

(Type "status" for a system overview)`,
		emoji, title,
		e.ServerName, e.Severity,
		e.Description,
		ai,
		e.Timestamp.In(f.location).Format("2006-01-02 15:04:05"),
	)
}

func Help() string {
	return `🤖 Data Center AI Assistant

Available commands:
• status - Overall system status
• alert - Recent alerts
• temperature - Temperature info
• power - Power consumption
• servers - Server health
• predict - AI predictions

Type any command to get started!`
}

func Greeting() string {
	return `สวัสดีครับ! 👋

ผม Data Center AI Assistant
พร้อมช่วยคุณตรวจสอบระบบ Data Center

พิมพ์ "help" เพื่อดูคำสั่งทั้งหมด`
}

func Welcome() string {
	return `🎉 ยินดีต้อนรับสู่ Data Center AI!

ขอบคุณที่เพิ่มเราเป็นเพื่อน!

คุณจะได้รับ:
✅ การแจ้งเตือนแบบ Real-time
✅ คำแนะนำจาก AI
✅ รายงานสถานะระบบ

พิมพ์ "help" เพื่อเริ่มต้นใช้งาน`
}

func formatUptime(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
