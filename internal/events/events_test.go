package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/dcsim/internal/events"
	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Notification) *models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

func TestEventBus_SubscribeFiltersByType(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()

	resolved := bus.Subscribe(models.NotificationEventResolved)
	all := bus.SubscribeAll()

	bus.Publish(models.NewNotification(models.NotificationEventGenerated, "srv1", "generated"))
	bus.Publish(models.NewNotification(models.NotificationEventResolved, "srv1", "resolved"))

	assert.Equal(t, "resolved", receive(t, resolved).Message)
	assert.Equal(t, "generated", receive(t, all).Message)
	assert.Equal(t, "resolved", receive(t, all).Message)
	assert.Empty(t, resolved)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := events.NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.NotificationAlert)
	bus.Publish(models.NewNotification(models.NotificationAlert, "", "first"))
	bus.Publish(models.NewNotification(models.NotificationAlert, "", "second"))

	assert.Equal(t, "first", receive(t, ch).Message)
	assert.Empty(t, ch)
}

func TestEventBus_CloseClosesSubscribers(t *testing.T) {
	bus := events.NewEventBus(1)
	single := bus.Subscribe(models.NotificationTick)
	all := bus.SubscribeAll()

	bus.Close()
	bus.Close()

	_, ok := <-single
	assert.False(t, ok)
	_, ok = <-all
	assert.False(t, ok)

	// Publishing after close is a no-op.
	bus.Publish(models.NewNotification(models.NotificationTick, "", "late"))

	late := bus.SubscribeAll()
	_, ok = <-late
	assert.False(t, ok)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := events.NewEventBus(4)
	defer bus.Close()

	all := bus.SubscribeAll()
	bus.Unsubscribe(all)

	_, ok := <-all
	assert.False(t, ok)

	bus.Publish(models.NewNotification(models.NotificationAlert, "", "after"))
}

func TestPublisher_MapsStoreChanges(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.SubscribeAll()

	pub := events.NewPublisher(bus).WithTraceID("trace-1")
	event := models.SimulationEvent{
		ID:         "evt-1-1",
		Type:       models.EventCoolingFailure,
		ServerID:   "srv2",
		ServerName: "Server-002",
		Severity:   models.SeverityCritical,
		Title:      "Cooling failure",
	}

	pub.EventGenerated(event)
	pub.EventResolved(event)
	pub.ServerReset(models.ServerState{ID: "srv2", Name: "Server-002"})
	pub.Error("srv2", "boom", errors.New("bad"))

	generated := receive(t, ch)
	assert.Equal(t, models.NotificationEventGenerated, generated.Type)
	assert.Equal(t, models.LevelCritical, generated.Level)
	assert.Equal(t, "srv2", generated.ServerID)
	assert.Equal(t, "trace-1", generated.TraceID)
	assert.Equal(t, "Cooling failure on Server-002", generated.Message)
	assert.Equal(t, event, generated.Data)

	resolved := receive(t, ch)
	assert.Equal(t, models.NotificationEventResolved, resolved.Type)
	assert.Equal(t, models.LevelInfo, resolved.Level)

	reset := receive(t, ch)
	assert.Equal(t, models.NotificationServerReset, reset.Type)

	failure := receive(t, ch)
	assert.Equal(t, models.NotificationError, failure.Type)
	assert.Equal(t, map[string]interface{}{"error": "bad"}, failure.Data)
}

func TestPublisher_UnityCommandCarriesRequestTrace(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(models.NotificationUnityCommand)

	pub := events.NewPublisher(bus)
	ctx := logger.WithTraceID(context.Background(), "req-42")
	pub.UnityCommand(ctx, "CMD-1", "RESTART_SERVER", "srv3", nil)
	pub.UnityCommand(context.Background(), "CMD-2", "STOP_SIMULATION", "", nil)

	traced := receive(t, ch)
	assert.Equal(t, "req-42", traced.TraceID)
	assert.Equal(t, "srv3", traced.ServerID)
	assert.Empty(t, receive(t, ch).TraceID)
}

func TestSensorWatch_AlertsOnEnteringCritical(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(models.NotificationAlert)
	watch := events.NewSensorWatch(events.NewPublisher(bus))

	reading := func(status models.SensorStatus, value float64) []models.SensorState {
		return []models.SensorState{
			{ID: "temp-1", Name: "Rack A Temperature", Type: models.SensorTemperature, Value: value, Unit: "°C", Status: status, Location: "Rack A"},
			{ID: "hum-1", Type: models.SensorHumidity, Value: 45, Status: models.SensorNormal},
		}
	}

	assert.Zero(t, watch.Observe(reading(models.SensorWarning, 29)))
	assert.Equal(t, 1, watch.Observe(reading(models.SensorCritical, 33.5)))
	assert.Zero(t, watch.Observe(reading(models.SensorCritical, 34)), "a sensor that stays critical is reported once")
	assert.Zero(t, watch.Observe(reading(models.SensorNormal, 24)))
	assert.Equal(t, 1, watch.Observe(reading(models.SensorCritical, 35)))

	first := receive(t, ch)
	assert.Equal(t, models.LevelCritical, first.Level)
	assert.Equal(t, "Rack A Temperature critical at 33.5 °C (Rack A)", first.Message)
	assert.Equal(t, "temp-1", first.Data.(models.SensorState).ID)
	assert.Contains(t, receive(t, ch).Message, "35.0")
}

func TestEventLogger_DrainsUntilStopped(t *testing.T) {
	bus := events.NewEventBus(10)
	l := events.NewEventLogger(bus.SubscribeAll())
	l.Start()

	pub := events.NewPublisher(bus)
	pub.Alert("srv1", models.LevelWarning, "hot aisle", nil)
	pub.Tick(models.Stats{TotalServers: 8})

	l.Stop()
	bus.Close()
}
