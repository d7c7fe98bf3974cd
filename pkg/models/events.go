package models

import "time"

type NotificationType string

const (
	NotificationEventGenerated NotificationType = "event_generated"
	NotificationEventResolved  NotificationType = "event_resolved"
	NotificationTick           NotificationType = "simulation_tick"
	NotificationServerReset    NotificationType = "server_reset"
	NotificationUnityCommand   NotificationType = "unity_command"
	NotificationAlert          NotificationType = "alert"
	NotificationError          NotificationType = "error"
)

type NotificationLevel string

const (
	LevelInfo     NotificationLevel = "info"
	LevelWarning  NotificationLevel = "warning"
	LevelCritical NotificationLevel = "critical"
)

// LevelForSeverity folds the four event severities into bus levels.
func LevelForSeverity(s Severity) NotificationLevel {
	switch s {
	case SeverityCritical:
		return LevelCritical
	case SeverityHigh, SeverityMedium:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// Notification is an internal message carried on the event bus.
type Notification struct {
	ID        string            `json:"id"`
	Type      NotificationType  `json:"type"`
	Level     NotificationLevel `json:"level"`
	ServerID  string            `json:"server_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Data      interface{}       `json:"data,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
}

func NewNotification(notificationType NotificationType, serverID, message string) *Notification {
	return &Notification{
		ID:        NewUUID(),
		Type:      notificationType,
		Level:     LevelInfo,
		ServerID:  serverID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (n *Notification) WithLevel(level NotificationLevel) *Notification {
	n.Level = level
	return n
}

func (n *Notification) WithData(data interface{}) *Notification {
	n.Data = data
	return n
}

func (n *Notification) WithTraceID(traceID string) *Notification {
	n.TraceID = traceID
	return n
}
