package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/dcsim/pkg/models"
)

type MessageType string

const (
	MessageTypeSnapshot      MessageType = "snapshot"
	MessageTypeEvent         MessageType = "event"
	MessageTypeEventResolved MessageType = "event_resolved"
	MessageTypeStats         MessageType = "stats"
	MessageTypeServerUpdate  MessageType = "server_update"
	MessageTypeUnityCommand  MessageType = "unity_command"
	MessageTypeAlert         MessageType = "alert"
	MessageTypeError         MessageType = "error"
	MessageTypeSubscription  MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	ServerID  string      `json:"server_id,omitempty"`
	Level     string      `json:"level,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, serverID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		ServerID:  serverID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

type SubscriptionData struct {
	Action string `json:"action"`
}

// messageTypeFor maps bus notifications onto the wire types clients see.
// An empty result means the notification stays internal.
func messageTypeFor(t models.NotificationType) MessageType {
	switch t {
	case models.NotificationEventGenerated:
		return MessageTypeEvent
	case models.NotificationEventResolved:
		return MessageTypeEventResolved
	case models.NotificationTick:
		return MessageTypeStats
	case models.NotificationServerReset:
		return MessageTypeServerUpdate
	case models.NotificationUnityCommand:
		return MessageTypeUnityCommand
	case models.NotificationAlert:
		return MessageTypeAlert
	case models.NotificationError:
		return MessageTypeError
	default:
		return ""
	}
}

func fromNotification(n *models.Notification) *OutgoingMessage {
	msgType := messageTypeFor(n.Type)
	if msgType == "" {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		ServerID:  n.ServerID,
		Level:     string(n.Level),
		Message:   n.Message,
		Timestamp: n.Timestamp,
		Data:      n.Data,
	}
}
