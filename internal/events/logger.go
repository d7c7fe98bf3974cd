package events

import (
	"context"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

// EventLogger writes every bus notification to the structured log.
type EventLogger struct {
	eventChan <-chan *models.Notification
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewEventLogger(eventChan <-chan *models.Notification) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
	<-l.done
}

func (l *EventLogger) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case n, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.process(n)
		}
	}
}

func (l *EventLogger) process(n *models.Notification) {
	// Ticks are frequent and carry no news.
	if n.Type == models.NotificationTick {
		logger.WithField("notification", n.Type).Debug(n.Message)
		return
	}

	fields := map[string]interface{}{
		"notification": n.Type,
		"level_hint":   n.Level,
	}
	if n.ServerID != "" {
		fields["server_id"] = n.ServerID
	}
	if n.TraceID != "" {
		fields["trace_id"] = n.TraceID
	}
	if event, ok := n.Data.(models.SimulationEvent); ok {
		fields["event_id"] = event.ID
		fields["event_type"] = event.Type
		fields["severity"] = event.Severity
	}
	entry := logger.WithFields(fields)

	switch n.Level {
	case models.LevelCritical:
		entry.Error(n.Message)
	case models.LevelWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}
