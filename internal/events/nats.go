package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

const (
	DefaultSubjectPrefix = "dcsim.events"
	ConnectTimeout       = 10 * time.Second
	ReconnectWait        = 5 * time.Second
	MaxReconnectAttempts = 10
)

var ErrSinkNotReady = errors.New("nats sink not ready")

// MsgPublisher is the part of *nats.Conn the sink needs.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSSink forwards bus notifications to NATS subjects named <prefix>.<type>.
type NATSSink struct {
	conn      MsgPublisher
	closer    func()
	prefix    string
	eventChan <-chan *models.Notification

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// DialNATS connects to url and returns a sink reading from eventChan.
func DialNATS(url, prefix string, eventChan <-chan *models.Notification) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("dcsim"),
		nats.Timeout(ConnectTimeout),
		nats.ReconnectWait(ReconnectWait),
		nats.MaxReconnects(MaxReconnectAttempts),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	sink := NewNATSSink(conn, prefix, eventChan)
	sink.closer = conn.Close
	logger.WithFields(map[string]interface{}{
		"url":    url,
		"prefix": sink.prefix,
	}).Info("NATS sink connected")
	return sink, nil
}

func NewNATSSink(conn MsgPublisher, prefix string, eventChan <-chan *models.Notification) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{
		conn:      conn,
		prefix:    prefix,
		eventChan: eventChan,
	}
}

func (s *NATSSink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	go s.run()
}

func (s *NATSSink) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if s.closer != nil {
		s.closer()
	}
}

func (s *NATSSink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case n, ok := <-s.eventChan:
			if !ok {
				return
			}
			if err := s.Forward(n); err != nil {
				logger.WithField("notification", n.Type).Errorf("Failed to forward to NATS: %v", err)
			}
		}
	}
}

// Subject returns the NATS subject a notification type is published on.
func (s *NATSSink) Subject(t models.NotificationType) string {
	return s.prefix + "." + string(t)
}

// Forward publishes one notification as JSON with identifying headers.
func (s *NATSSink) Forward(n *models.Notification) error {
	if s.conn == nil {
		return ErrSinkNotReady
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := nats.NewMsg(s.Subject(n.Type))
	msg.Data = data
	msg.Header.Set("x-notification-id", n.ID)
	msg.Header.Set("x-notification-type", string(n.Type))
	msg.Header.Set("x-level", string(n.Level))
	msg.Header.Set("x-timestamp", fmt.Sprintf("%d", n.Timestamp.UnixMilli()))
	if n.ServerID != "" {
		msg.Header.Set("x-server-id", n.ServerID)
	}
	if n.TraceID != "" {
		msg.Header.Set("x-trace-id", n.TraceID)
	}

	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
