package events_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/dcsim/internal/events"
	"github.com/OldStager01/dcsim/pkg/models"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
}

func (c *capturePublisher) PublishMsg(msg *nats.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capturePublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestNATSSink_Forward(t *testing.T) {
	pub := &capturePublisher{}
	sink := events.NewNATSSink(pub, "", nil)

	n := models.NewNotification(models.NotificationEventGenerated, "srv7", "Disk almost full on Server-007").
		WithLevel(models.LevelWarning).
		WithTraceID("t-9")
	require.NoError(t, sink.Forward(n))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, "dcsim.events.event_generated", msg.Subject)
	assert.Equal(t, n.ID, msg.Header.Get("x-notification-id"))
	assert.Equal(t, "srv7", msg.Header.Get("x-server-id"))
	assert.Equal(t, "warning", msg.Header.Get("x-level"))
	assert.Equal(t, "t-9", msg.Header.Get("x-trace-id"))

	var decoded models.Notification
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, n.Message, decoded.Message)
}

func TestNATSSink_ForwardError(t *testing.T) {
	pub := &capturePublisher{err: nats.ErrConnectionClosed}
	sink := events.NewNATSSink(pub, "custom", nil)

	err := sink.Forward(models.NewNotification(models.NotificationAlert, "", "x"))
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Equal(t, "custom.alert", sink.Subject(models.NotificationAlert))

	empty := events.NewNATSSink(nil, "", nil)
	assert.True(t, errors.Is(empty.Forward(models.NewNotification(models.NotificationAlert, "", "x")), events.ErrSinkNotReady))
}

func TestNATSSink_ForwardsFromBus(t *testing.T) {
	bus := events.NewEventBus(10)
	pub := &capturePublisher{}
	sink := events.NewNATSSink(pub, "", bus.SubscribeAll())
	sink.Start()
	sink.Start()

	events.NewPublisher(bus).Alert("srv1", models.LevelCritical, "rack on fire", nil)

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	sink.Stop()
	bus.Close()
}

func TestDialNATS(t *testing.T) {
	// Try to connect to NATS, skip test if not available
	conn, err := nats.Connect(nats.DefaultURL, nats.Timeout(2*time.Second))
	if err != nil {
		t.Skip("NATS server not available, skipping test")
	}
	defer conn.Close()

	sub, err := conn.SubscribeSync("dcsim.test.>")
	require.NoError(t, err)

	bus := events.NewEventBus(10)
	sink, err := events.DialNATS(nats.DefaultURL, "dcsim.test", bus.SubscribeAll())
	require.NoError(t, err)
	sink.Start()
	defer sink.Stop()

	events.NewPublisher(bus).Alert("srv1", models.LevelInfo, "ping", nil)

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "dcsim.test.alert", msg.Subject)
	bus.Close()
}
