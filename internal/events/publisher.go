package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

// Publisher turns store changes into bus notifications. It satisfies simulator.Observer.
type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(notification *models.Notification) {
	if p.traceID != "" {
		notification.TraceID = p.traceID
	}
	p.bus.Publish(notification)
}

func (p *Publisher) EventGenerated(event models.SimulationEvent) {
	msg := fmt.Sprintf("%s on %s", event.Title, event.ServerName)
	n := models.NewNotification(models.NotificationEventGenerated, event.ServerID, msg).
		WithLevel(models.LevelForSeverity(event.Severity)).
		WithData(event)
	p.publish(n)
}

func (p *Publisher) EventResolved(event models.SimulationEvent) {
	msg := fmt.Sprintf("%s on %s resolved", event.Title, event.ServerName)
	n := models.NewNotification(models.NotificationEventResolved, event.ServerID, msg).
		WithData(event)
	p.publish(n)
}

func (p *Publisher) ServerReset(server models.ServerState) {
	n := models.NewNotification(models.NotificationServerReset, server.ID, server.Name+" reset").
		WithData(server)
	p.publish(n)
}

// Tick announces a fresh snapshot after a background tick.
func (p *Publisher) Tick(stats models.Stats) {
	n := models.NewNotification(models.NotificationTick, "", "Simulation tick").
		WithData(stats)
	p.publish(n)
}

// UnityCommand carries the trace id of the request that issued the command.
func (p *Publisher) UnityCommand(ctx context.Context, commandID, command, targetID string, data interface{}) {
	msg := fmt.Sprintf("Unity command %s (%s)", command, commandID)
	n := models.NewNotification(models.NotificationUnityCommand, targetID, msg).
		WithData(data)
	p.WithTraceID(logger.TraceIDFromContext(ctx)).publish(n)
}

func (p *Publisher) Alert(serverID string, level models.NotificationLevel, message string, data interface{}) {
	n := models.NewNotification(models.NotificationAlert, serverID, message).
		WithLevel(level).
		WithData(data)
	p.publish(n)
}

func (p *Publisher) Error(serverID string, message string, err error) {
	n := models.NewNotification(models.NotificationError, serverID, message).
		WithLevel(models.LevelCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(n)
}

// SensorWatch raises an alert each time a sensor moves into the critical band.
// A sensor that stays critical is reported once.
type SensorWatch struct {
	publisher *Publisher

	mu   sync.Mutex
	last map[string]models.SensorStatus
}

func NewSensorWatch(publisher *Publisher) *SensorWatch {
	return &SensorWatch{
		publisher: publisher,
		last:      make(map[string]models.SensorStatus),
	}
}

// Observe compares readings with the previous call and returns how many
// alerts it published.
func (w *SensorWatch) Observe(sensors []models.SensorState) int {
	w.mu.Lock()
	var entered []models.SensorState
	for _, s := range sensors {
		if s.Status == models.SensorCritical && w.last[s.ID] != models.SensorCritical {
			entered = append(entered, s)
		}
		w.last[s.ID] = s.Status
	}
	w.mu.Unlock()

	for _, s := range entered {
		msg := fmt.Sprintf("%s critical at %.1f %s (%s)", s.Name, s.Value, s.Unit, s.Location)
		w.publisher.Alert("", models.LevelCritical, msg, s)
	}
	return len(entered)
}
