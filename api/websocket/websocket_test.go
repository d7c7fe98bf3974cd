package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/dcsim/pkg/config"
	"github.com/OldStager01/dcsim/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewSettings(t *testing.T) {
	s := NewSettings(nil)
	assert.Equal(t, defaultMaxConnections, s.MaxConnections)
	assert.Equal(t, defaultPongTimeout*9/10, s.PingInterval)

	s = NewSettings(&config.WebSocketConfig{
		MaxConnections: 5,
		PongTimeout:    10 * time.Second,
		PingInterval:   20 * time.Second,
	})
	assert.Equal(t, 5, s.MaxConnections)
	assert.Equal(t, 9*time.Second, s.PingInterval, "ping interval is clamped below the pong timeout")
}

func TestClient_Wants(t *testing.T) {
	hub := NewHub(nil)
	all := NewClient(hub, nil, "")
	one := NewClient(hub, nil, "srv2")

	assert.True(t, all.Wants("srv1"))
	assert.True(t, all.Wants(""))
	assert.True(t, one.Wants("srv2"))
	assert.True(t, one.Wants(""), "fleet-wide messages reach filtered clients")
	assert.False(t, one.Wants("srv1"))
}

func TestMessageTypeFor(t *testing.T) {
	assert.Equal(t, MessageTypeEvent, messageTypeFor(models.NotificationEventGenerated))
	assert.Equal(t, MessageTypeStats, messageTypeFor(models.NotificationTick))
	assert.Equal(t, MessageType(""), messageTypeFor("internal"))
	assert.Nil(t, fromNotification(&models.Notification{Type: "internal"}))
}

func startServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.GET("/ws", ServeWebSocket(hub, func(serverID string) interface{} {
		return map[string]string{"filter": serverID}
	}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) OutgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestBridge_FiltersByServer(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	events := make(chan *models.Notification, 4)
	bridge := NewEventBridge(hub, events)
	bridge.Start()
	t.Cleanup(bridge.Stop)

	srv := startServer(t, hub)
	all := dial(t, srv, "")
	srv1 := dial(t, srv, "?server_id=srv1")

	assert.Equal(t, MessageTypeSnapshot, readMessage(t, all).Type)
	snap := readMessage(t, srv1)
	assert.Equal(t, MessageTypeSnapshot, snap.Type)
	assert.Equal(t, "srv1", snap.ServerID)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	events <- models.NewNotification(models.NotificationEventGenerated, "srv2", "fan failure on srv2")
	events <- models.NewNotification(models.NotificationEventGenerated, "srv1", "cpu spike on srv1")

	first := readMessage(t, all)
	second := readMessage(t, all)
	assert.Equal(t, "srv2", first.ServerID)
	assert.Equal(t, "srv1", second.ServerID)

	got := readMessage(t, srv1)
	assert.Equal(t, MessageTypeEvent, got.Type)
	assert.Equal(t, "srv1", got.ServerID, "filtered client skips other servers")
}

func TestClient_SubscribeMessages(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := startServer(t, hub)
	conn := dial(t, srv, "")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", ServerID: "srv4"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscription, msg.Type)
	assert.Equal(t, "srv4", msg.ServerID)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", ServerID: "../etc"}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "unsubscribe"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscription, msg.Type)
	assert.Equal(t, "srv4", msg.ServerID)
}

func TestServeWebSocket_RejectsBadFilter(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := startServer(t, hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?server_id=bad%20id"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHub_DroppedClientIgnoresLateSubscriptions(t *testing.T) {
	hub := NewHub(&config.WebSocketConfig{ClientBuffer: 1})
	go hub.Run()
	t.Cleanup(hub.Stop)

	client := NewClient(hub, nil, "")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// Nothing drains the buffer, so the second broadcast overflows it.
	hub.Broadcast([]byte(`{"type":"stats"}`))
	hub.Broadcast([]byte(`{"type":"stats"}`))
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		client.handleMessage(&IncomingMessage{Type: "subscribe", ServerID: "srv1"})
		client.handleMessage(&IncomingMessage{Type: "unsubscribe"})
	})
	hub.Unregister(client)
	assert.Zero(t, hub.ClientCount())
}

func TestHub_StopClosesClientsOnce(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := NewClient(hub, nil, "srv2")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	late := NewClient(hub, nil, "")
	assert.NotPanics(t, func() {
		hub.Register(late)
		late.queue([]byte(`{}`))
		client.handleMessage(&IncomingMessage{Type: "unsubscribe"})
	})
	_, open := <-late.send
	assert.False(t, open)
}
