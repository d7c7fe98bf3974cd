package events

import (
	"sync"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

type EventBus struct {
	subscribers map[models.NotificationType][]chan *models.Notification
	allChans    []chan *models.Notification // Track channels from SubscribeAll
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[models.NotificationType][]chan *models.Notification),
		allChans:    make([]chan *models.Notification, 0),
		bufferSize:  bufferSize,
	}
}

func (b *EventBus) Subscribe(notificationType models.NotificationType) <-chan *models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Notification, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[notificationType] = append(b.subscribers[notificationType], ch)
	return ch
}

func (b *EventBus) SubscribeAll() <-chan *models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Notification, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}

	for _, notificationType := range allNotificationTypes() {
		b.subscribers[notificationType] = append(b.subscribers[notificationType], ch)
	}

	b.allChans = append(b.allChans, ch)
	return ch
}

// Unsubscribe detaches ch and closes it. Unknown channels are ignored.
func (b *EventBus) Unsubscribe(ch <-chan *models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	var found chan *models.Notification
	for notificationType, subs := range b.subscribers {
		kept := subs[:0]
		for _, sub := range subs {
			if (<-chan *models.Notification)(sub) == ch {
				found = sub
				continue
			}
			kept = append(kept, sub)
		}
		b.subscribers[notificationType] = kept
	}

	for i, sub := range b.allChans {
		if sub == found {
			b.allChans = append(b.allChans[:i], b.allChans[i+1:]...)
			break
		}
	}

	if found != nil {
		close(found)
	}
}

func (b *EventBus) Publish(notification *models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[notification.Type]
	for _, ch := range subscribers {
		select {
		case ch <- notification:
		default:
			logger.Warnf("Notification channel full, dropping: %s", notification.Type)
		}
	}
}

func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	// Close channels from SubscribeAll (only once each)
	closedChans := make(map[chan *models.Notification]bool)
	for _, ch := range b.allChans {
		close(ch)
		closedChans[ch] = true
	}

	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !closedChans[ch] {
				close(ch)
				closedChans[ch] = true
			}
		}
	}

	b.subscribers = make(map[models.NotificationType][]chan *models.Notification)
	b.allChans = nil
}

func allNotificationTypes() []models.NotificationType {
	return []models.NotificationType{
		models.NotificationEventGenerated,
		models.NotificationEventResolved,
		models.NotificationTick,
		models.NotificationServerReset,
		models.NotificationUnityCommand,
		models.NotificationAlert,
		models.NotificationError,
	}
}
