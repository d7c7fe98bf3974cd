package linebot

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

// Broadcaster delivers a message to every follower.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) error
}

type NotifierConfig struct {
	// MinSeverity is the lowest event severity that gets broadcast.
	MinSeverity models.Severity

	// Interval and Burst bound how often broadcasts go out.
	Interval time.Duration
	Burst    int

	SendTimeout time.Duration
	OnMessage   func(kind, outcome string)
}

// Notifier broadcasts newly generated events read from a notification channel.
type Notifier struct {
	eventChan   <-chan *models.Notification
	broadcaster Broadcaster
	formatter   *Formatter
	minSeverity models.Severity
	limiter     *rate.Limiter
	sendTimeout time.Duration
	onMessage   func(kind, outcome string)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotifier(eventChan <-chan *models.Notification, broadcaster Broadcaster, formatter *Formatter, cfg NotifierConfig) *Notifier {
	if !cfg.MinSeverity.Valid() {
		cfg.MinSeverity = models.SeverityHigh
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(string, string) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		eventChan:   eventChan,
		broadcaster: broadcaster,
		formatter:   formatter,
		minSeverity: cfg.MinSeverity,
		limiter:     rate.NewLimiter(rate.Every(cfg.Interval), cfg.Burst),
		sendTimeout: cfg.SendTimeout,
		onMessage:   cfg.OnMessage,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func (n *Notifier) Start() {
	go n.run()
}

func (n *Notifier) Stop() {
	n.cancel()
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for {
		select {
		case <-n.ctx.Done():
			return
		case notification, ok := <-n.eventChan:
			if !ok {
				return
			}
			n.process(notification)
		}
	}
}

func (n *Notifier) process(notification *models.Notification) {
	if notification.Type != models.NotificationEventGenerated {
		return
	}
	event, ok := notification.Data.(models.SimulationEvent)
	if !ok || event.Severity.Rank() < n.minSeverity.Rank() {
		return
	}

	log := logger.WithEvent(event.ID, string(event.Type), event.ServerID)
	if !n.limiter.Allow() {
		n.onMessage("broadcast", "throttled")
		log.Debug("Alert broadcast throttled")
		return
	}

	ctx, cancel := context.WithTimeout(n.ctx, n.sendTimeout)
	defer cancel()

	if err := n.broadcaster.Broadcast(ctx, n.formatter.Alert(event)); err != nil {
		n.onMessage("broadcast", "failed")
		log.Warnf("Failed to broadcast alert: %v", err)
		return
	}
	n.onMessage("broadcast", "ok")
	log.Info("Alert broadcast to LINE followers")
}
