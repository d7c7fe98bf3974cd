package websocket

import (
	"context"
	"encoding/json"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

// EventBridge forwards bus notifications to WebSocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Notification
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Notification) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	<-b.done
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			return
		case n, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Notification channel closed, stopping bridge")
				return
			}
			b.forward(n)
		}
	}
}

func (b *EventBridge) forward(n *models.Notification) {
	msg := fromNotification(n)
	if msg == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastToServer(n.ServerID, data)
}
