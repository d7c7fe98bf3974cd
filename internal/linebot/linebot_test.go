package linebot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/dcsim/internal/resilience"
	"github.com/OldStager01/dcsim/pkg/models"
)

type fakeSource struct {
	servers []models.ServerState
	sensors []models.SensorState
	events  []models.SimulationEvent
}

func (f *fakeSource) ListServers() []models.ServerState {
	return append([]models.ServerState(nil), f.servers...)
}

func (f *fakeSource) ListSensors() []models.SensorState {
	return append([]models.SensorState(nil), f.sensors...)
}

func (f *fakeSource) ListActiveEvents() []models.SimulationEvent {
	return append([]models.SimulationEvent(nil), f.events...)
}

func (f *fakeSource) Stats() models.Stats {
	stats := models.ComputeStats(f.servers, f.sensors, len(f.events))
	stats.UptimeSeconds = 3725
	return stats
}

func newSource() *fakeSource {
	spike := models.SimulationEvent{
		ID: "evt-1-1", Type: models.EventCPUSpike, ServerID: "srv-1", ServerName: "Server-001",
		Severity: models.SeverityMedium, Title: "CPU Spike",
	}
	fire := models.SimulationEvent{
		ID: "evt-2-1", Type: models.EventHardwareFailure, ServerID: "srv-2", ServerName: "Server-002",
		Severity: models.SeverityCritical, Title: "Hardware Failure",
	}
	return &fakeSource{
		servers: []models.ServerState{
			{ID: "srv-1", Name: "Server-001", CPU: 85, Temperature: 31, HealthScore: 92,
				Status: models.ServerStatusWarning, ActiveEvents: []models.SimulationEvent{spike}},
			{ID: "srv-2", Name: "Server-002", CPU: 100, Temperature: 36, HealthScore: 50,
				Status: models.ServerStatusOffline, ActiveEvents: []models.SimulationEvent{fire}},
			{ID: "srv-3", Name: "Server-003", CPU: 40, Temperature: 24, HealthScore: 84,
				Status: models.ServerStatusOnline},
		},
		sensors: []models.SensorState{
			{ID: "temp-1", Type: models.SensorTemperature, Value: 24, Location: "Rack A", Status: models.SensorNormal},
			{ID: "temp-2", Type: models.SensorTemperature, Value: 28, Location: "Rack B", Status: models.SensorWarning},
			{ID: "pwr-main", Type: models.SensorPower, Value: 30, Location: "Main Dist", Status: models.SensorNormal},
		},
		events: []models.SimulationEvent{spike, fire},
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	sig := Sign(body, "secret")

	assert.True(t, VerifySignature(body, sig, "secret"))
	assert.False(t, VerifySignature(body, sig, "other"))
	assert.False(t, VerifySignature([]byte(`{"events":[{}]}`), sig, "secret"))
	assert.False(t, VerifySignature(body, "", "secret"))
	assert.False(t, VerifySignature(body, sig, ""))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{"status", CommandStatus},
		{"  STATUS please ", CommandStatus},
		{"ขอดูสถานะ", CommandStatus},
		{"any alert?", CommandAlert},
		{"แจ้งเตือน", CommandAlert},
		{"Temperature", CommandTemperature},
		{"อุณหภูมิ", CommandTemperature},
		{"help", CommandHelp},
		{"ช่วยเหลือ", CommandHelp},
		{"power", CommandPower},
		{"พลังงาน", CommandPower},
		{"servers", CommandServers},
		{"เซิร์ฟเวอร์", CommandServers},
		{"predict", CommandPredict},
		{"ทำนาย", CommandPredict},
		{"servers status", CommandStatus},
		{"hello", CommandGreeting},
		{"", CommandGreeting},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.text))
		})
	}
}

func TestFormatter_Status(t *testing.T) {
	f := NewFormatter(newSource(), time.UTC)

	msg := f.Status()
	assert.Contains(t, msg, "Servers: 2/3 online")
	assert.Contains(t, msg, "Avg Temperature: 26.0°C")
	assert.Contains(t, msg, "Power Usage: 30.0 kW")
	assert.Contains(t, msg, "Uptime: 1h2m5s")
	assert.Contains(t, msg, "Some servers need attention")
}

func TestFormatter_Alerts(t *testing.T) {
	src := newSource()
	f := NewFormatter(src, time.UTC)

	msg := f.Alerts()
	assert.Contains(t, msg, "2 active")
	critical := strings.Index(msg, "Hardware Failure")
	medium := strings.Index(msg, "CPU Spike")
	require.True(t, critical >= 0 && medium >= 0)
	assert.Less(t, critical, medium, "most severe alerts come first")

	src.events = nil
	assert.Contains(t, f.Alerts(), "No active alerts")
}

func TestFormatter_Temperature(t *testing.T) {
	msg := NewFormatter(newSource(), time.UTC).Temperature()
	assert.Contains(t, msg, "Rack A: 24.0°C ✅")
	assert.Contains(t, msg, "Rack B: 28.0°C ⚠️")
	assert.Contains(t, msg, "Hottest server: Server-002 (36.0°C)")
}

func TestFormatter_PowerAndServers(t *testing.T) {
	f := NewFormatter(newSource(), time.UTC)

	power := f.Power()
	assert.Contains(t, power, "Total Consumption: 30.0 kW")
	assert.Contains(t, power, "Server Power: 21.6 kW")

	servers := f.Servers()
	assert.Contains(t, servers, "Total: 3 servers")
	assert.Contains(t, servers, "Online: 2 ✅")
	assert.Contains(t, servers, "Offline: 1")
	assert.Contains(t, servers, "Excellent (90-100): 1 servers")
	assert.Contains(t, servers, "Good (80-89): 1 servers")
	assert.Contains(t, servers, "Warning (<80): 1 servers")
}

func TestFormatter_Predict(t *testing.T) {
	msg := NewFormatter(newSource(), time.UTC).Predict()
	assert.Contains(t, msg, "Anomaly detected")
	assert.Contains(t, msg, "Confidence:")
}

func TestFormatter_ReplyRoutes(t *testing.T) {
	f := NewFormatter(newSource(), time.UTC)
	assert.Equal(t, Help(), f.Reply(CommandHelp))
	assert.Equal(t, Greeting(), f.Reply(CommandGreeting))
	assert.Equal(t, f.Servers(), f.Reply(CommandServers))
}

func TestFormatter_Alert(t *testing.T) {
	f := NewFormatter(newSource(), time.UTC)
	event := models.SimulationEvent{
		ServerName:  "Server-004",
		Severity:    models.SeverityCritical,
		Title:       "Cooling Failure",
		TitleTh:     "ระบบทำความเย็นขัดข้อง",
		Description: "Cooling unit stopped",
		AIResponse:  "Migrating workload",
		Timestamp:   time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}

	msg := f.Alert(event)
	assert.True(t, strings.HasPrefix(msg, "🚨 ระบบทำความเย็นขัดข้อง"))
	assert.Contains(t, msg, "Server-004 (critical)")
	assert.Contains(t, msg, "AI Action: Migrating workload")
	assert.Contains(t, msg, "2024-03-01 10:30:00")
}

type recordedRequest struct {
	path string
	auth string
	body map[string]interface{}
}

func lineAPI(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		reqs = append(reqs, recordedRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestClient_Send(t *testing.T) {
	srv, reqs := lineAPI(t, http.StatusOK)
	c := NewClient(ClientConfig{BaseURL: srv.URL, ChannelAccessToken: "token"})
	ctx := context.Background()

	require.NoError(t, c.Reply(ctx, "reply-token", "hi"))
	require.NoError(t, c.Push(ctx, "U123", "hello"))
	require.NoError(t, c.Broadcast(ctx, "everyone"))

	require.Len(t, *reqs, 3)
	assert.Equal(t, "/reply", (*reqs)[0].path)
	assert.Equal(t, "Bearer token", (*reqs)[0].auth)
	assert.Equal(t, "reply-token", (*reqs)[0].body["replyToken"])
	assert.Equal(t, "/push", (*reqs)[1].path)
	assert.Equal(t, "U123", (*reqs)[1].body["to"])
	assert.Equal(t, "/broadcast", (*reqs)[2].path)

	messages := (*reqs)[2].body["messages"].([]interface{})
	assert.Equal(t, "everyone", messages[0].(map[string]interface{})["text"])
}

func TestClient_Validation(t *testing.T) {
	ctx := context.Background()

	unconfigured := NewClient(ClientConfig{})
	assert.False(t, unconfigured.Configured())
	assert.True(t, errors.Is(unconfigured.Broadcast(ctx, "x"), ErrNotConfigured))

	c := NewClient(ClientConfig{ChannelAccessToken: "token"})
	assert.True(t, errors.Is(c.Push(ctx, "", "x"), ErrMissingRecipient))
	assert.True(t, errors.Is(c.Reply(ctx, "", "x"), ErrMissingRecipient))
	assert.True(t, errors.Is(c.Push(ctx, "U1", ""), ErrEmptyMessage))
}

func TestClient_TruncatesLongText(t *testing.T) {
	msgs := messages(strings.Repeat("ก", maxTextLength+10))
	assert.Len(t, []rune(msgs[0].Text), maxTextLength)
}

func TestClient_BreakerOpensOnFailures(t *testing.T) {
	srv, reqs := lineAPI(t, http.StatusInternalServerError)
	c := NewClient(ClientConfig{
		BaseURL:            srv.URL,
		ChannelAccessToken: "token",
		MaxFailures:        2,
		BreakerTimeout:     time.Minute,
	})
	ctx := context.Background()

	assert.True(t, errors.Is(c.Broadcast(ctx, "a"), ErrSendFailed))
	assert.True(t, errors.Is(c.Broadcast(ctx, "b"), ErrSendFailed))
	assert.Equal(t, resilience.StateOpen, c.CircuitState())

	assert.True(t, errors.Is(c.Broadcast(ctx, "c"), resilience.ErrCircuitOpen))
	assert.Len(t, *reqs, 2)
}

type fakeReplier struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
}

func (f *fakeReplier) Reply(_ context.Context, token, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.replies == nil {
		f.replies = make(map[string]string)
	}
	f.replies[token] = text
	return nil
}

func textEvent(id, token, text string) map[string]interface{} {
	return map[string]interface{}{
		"type":           "message",
		"webhookEventId": id,
		"replyToken":     token,
		"source":         map[string]string{"type": "user", "userId": "U1"},
		"message":        map[string]string{"type": "text", "text": text},
	}
}

func webhookBody(t *testing.T, events ...map[string]interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"destination": "Ubot", "events": events})
	require.NoError(t, err)
	return body
}

func TestBot_HandleWebhook(t *testing.T) {
	replier := &fakeReplier{}
	var outcomes []string
	bot := NewBot(BotConfig{
		ChannelSecret: "secret",
		OnMessage:     func(kind, outcome string) { outcomes = append(outcomes, kind+":"+outcome) },
	}, replier, NewFormatter(newSource(), time.UTC))

	body := webhookBody(t,
		textEvent("e1", "tok-1", "status"),
		textEvent("e2", "tok-2", "help"),
		map[string]interface{}{
			"type": "follow", "webhookEventId": "e3", "replyToken": "tok-3",
			"source": map[string]string{"userId": "U2"},
		},
		map[string]interface{}{"type": "unfollow", "webhookEventId": "e4"},
	)

	result, err := bot.HandleWebhook(context.Background(), body, Sign(body, "secret"))
	require.NoError(t, err)
	assert.Equal(t, WebhookResult{Received: 4, Handled: 4}, result)
	assert.Contains(t, replier.replies["tok-1"], "Data Center Status")
	assert.Equal(t, Help(), replier.replies["tok-2"])
	assert.Equal(t, Welcome(), replier.replies["tok-3"])
	assert.Contains(t, outcomes, "message:ok")

	// LINE redelivers with the same webhookEventId.
	result, err = bot.HandleWebhook(context.Background(), body, Sign(body, "secret"))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Duplicates)
	assert.Zero(t, result.Handled)
}

func TestBot_RejectsBadDeliveries(t *testing.T) {
	replier := &fakeReplier{}
	bot := NewBot(BotConfig{ChannelSecret: "secret"}, replier, NewFormatter(newSource(), time.UTC))
	body := webhookBody(t, textEvent("e1", "tok-1", "status"))
	ctx := context.Background()

	_, err := bot.HandleWebhook(ctx, body, "")
	assert.True(t, errors.Is(err, ErrNoSignature))

	_, err = bot.HandleWebhook(ctx, body, Sign(body, "wrong"))
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	garbage := []byte("{not json")
	_, err = bot.HandleWebhook(ctx, garbage, Sign(garbage, "secret"))
	assert.True(t, errors.Is(err, ErrMalformedPayload))

	unconfigured := NewBot(BotConfig{}, replier, NewFormatter(newSource(), time.UTC))
	_, err = unconfigured.HandleWebhook(ctx, body, Sign(body, "secret"))
	assert.True(t, errors.Is(err, ErrNotConfigured))

	assert.Empty(t, replier.replies)
}

func TestBot_FailedReplyIsRetriedOnRedelivery(t *testing.T) {
	replier := &fakeReplier{err: errors.New("boom")}
	bot := NewBot(BotConfig{ChannelSecret: "secret"}, replier, NewFormatter(newSource(), time.UTC))
	body := webhookBody(t, textEvent("e1", "tok-1", "power"))
	ctx := context.Background()

	result, err := bot.HandleWebhook(ctx, body, Sign(body, "secret"))
	require.NoError(t, err)
	assert.Equal(t, WebhookResult{Received: 1, Failed: 1}, result)

	replier.mu.Lock()
	replier.err = nil
	replier.mu.Unlock()

	result, err = bot.HandleWebhook(ctx, body, Sign(body, "secret"))
	require.NoError(t, err)
	assert.Equal(t, WebhookResult{Received: 1, Handled: 1}, result)
	assert.Contains(t, replier.replies["tok-1"], "kW")

	result, err = bot.HandleWebhook(ctx, body, Sign(body, "secret"))
	require.NoError(t, err)
	assert.Equal(t, WebhookResult{Received: 1, Duplicates: 1}, result)
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func eventNotification(severity models.Severity) *models.Notification {
	event := models.SimulationEvent{
		ID: "evt-1-1", ServerID: "srv-1", ServerName: "Server-001",
		Severity: severity, Title: "Temperature Spike",
	}
	return models.NewNotification(models.NotificationEventGenerated, event.ServerID, "x").WithData(event)
}

func TestNotifier_BroadcastsSevereEvents(t *testing.T) {
	ch := make(chan *models.Notification, 10)
	b := &fakeBroadcaster{}
	n := NewNotifier(ch, b, NewFormatter(newSource(), time.UTC), NotifierConfig{
		MinSeverity: models.SeverityHigh,
		Interval:    time.Hour,
		Burst:       2,
	})
	n.Start()

	ch <- eventNotification(models.SeverityLow)
	ch <- eventNotification(models.SeverityCritical)
	ch <- models.NewNotification(models.NotificationTick, "", "tick")
	ch <- eventNotification(models.SeverityHigh)
	// Burst exhausted; this one is throttled.
	ch <- eventNotification(models.SeverityCritical)
	close(ch)

	select {
	case <-n.done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not drain")
	}
	n.Stop()

	assert.Equal(t, 2, b.count())
	assert.Contains(t, b.sent[0], "Temperature Spike")
}
