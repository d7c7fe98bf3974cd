package simulator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/pkg/models"
)

var (
	ErrServerNotFound   = errors.New("server not found")
	ErrServerOffline    = errors.New("server is offline")
	ErrTooManyEvents    = errors.New("server has too many active events")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidSeverity  = errors.New("severity not allowed for event type")
)

const (
	DefaultServerCount      = 8
	DefaultEventProbability = 0.15
	DefaultMaxActiveEvents  = 3
	DefaultHistoryCap       = 500
	DefaultHistoryLimit     = 50
)

type Config struct {
	ServerCount      int
	EventProbability float64
	MaxActiveEvents  int
	HistoryCap       int
	Clock            Clock
	Rand             Rand
}

func DefaultConfig() Config {
	return Config{
		ServerCount:      DefaultServerCount,
		EventProbability: DefaultEventProbability,
		MaxActiveEvents:  DefaultMaxActiveEvents,
		HistoryCap:       DefaultHistoryCap,
	}
}

// Observer is told about state changes after the store lock is released.
type Observer interface {
	EventGenerated(event models.SimulationEvent)
	EventResolved(event models.SimulationEvent)
	ServerReset(server models.ServerState)
}

type serverRecord struct {
	state         models.ServerState
	events        []*models.SimulationEvent
	forcedOffline bool
}

// Store owns all simulated servers, sensors and fault events.
type Store struct {
	mu sync.Mutex

	config    Config
	clock     Clock
	rand      Rand
	observers []Observer

	initialized bool
	startedAt   time.Time
	servers     []*serverRecord
	byID        map[string]*serverRecord
	sensors     []*models.SensorState
	active      []*models.SimulationEvent
	history     []*models.SimulationEvent
	counter     uint64
}

func NewStore(cfg Config) *Store {
	defaults := DefaultConfig()
	if cfg.ServerCount <= 0 {
		cfg.ServerCount = defaults.ServerCount
	}
	if cfg.EventProbability < 0 {
		cfg.EventProbability = 0
	}
	if cfg.MaxActiveEvents <= 0 {
		cfg.MaxActiveEvents = defaults.MaxActiveEvents
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = defaults.HistoryCap
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Rand == nil {
		cfg.Rand = NewRand(0)
	}

	return &Store{
		config: cfg,
		clock:  cfg.Clock,
		rand:   cfg.Rand,
		byID:   make(map[string]*serverRecord, cfg.ServerCount),
	}
}

// AddObserver registers o for change notifications. Not safe to call concurrently with ticks.
func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Initialize populates the roster once. Later calls are no-ops.
func (s *Store) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()
}

func (s *Store) ensureInitialized() {
	if s.initialized {
		return
	}
	s.initialized = true
	s.startedAt = s.clock.Now()

	half := (s.config.ServerCount + 1) / 2
	for i := 1; i <= s.config.ServerCount; i++ {
		rack := "Rack A"
		if i > half {
			rack = "Rack B"
		}
		rec := &serverRecord{state: models.ServerState{
			ID:   fmt.Sprintf("srv%d", i),
			Name: fmt.Sprintf("Server-%03d", i),
			Rack: rack,
		}}
		s.seedServer(rec)
		s.servers = append(s.servers, rec)
		s.byID[rec.state.ID] = rec
	}

	s.sensors = s.seedSensors()

	logger.WithFields(map[string]interface{}{
		"servers": len(s.servers),
		"sensors": len(s.sensors),
	}).Info("Simulation store initialized")
}

func (s *Store) seedServer(rec *serverRecord) {
	rec.state.CPU = between(s.rand, 30, 60)
	rec.state.Memory = between(s.rand, 40, 70)
	rec.state.Temperature = between(s.rand, 22, 26)
	rec.state.Disk = between(s.rand, 20, 60)
	rec.state.Network = between(s.rand, 50, 150)
	rec.state.HealthScore = between(s.rand, 85, 95)
	rec.state.Status = models.ServerStatusOnline
}

func (s *Store) seedSensors() []*models.SensorState {
	sensors := make([]*models.SensorState, 0, 14)

	for i := 1; i <= 8; i++ {
		location := "Rack A"
		if i > 4 {
			location = "Rack B"
		}
		sensors = append(sensors, &models.SensorState{
			ID:       fmt.Sprintf("temp-%d", i),
			Type:     models.SensorTemperature,
			Name:     fmt.Sprintf("Temperature Sensor %d", i),
			Value:    between(s.rand, 23, 25),
			Unit:     "°C",
			Location: location,
		})
	}
	for i := 1; i <= 4; i++ {
		location := "Rack A"
		if i > 2 {
			location = "Rack B"
		}
		sensors = append(sensors, &models.SensorState{
			ID:       fmt.Sprintf("hum-%d", i),
			Type:     models.SensorHumidity,
			Name:     fmt.Sprintf("Humidity Sensor %d", i),
			Value:    between(s.rand, 45, 50),
			Unit:     "%",
			Location: location,
		})
	}
	sensors = append(sensors,
		&models.SensorState{
			ID:       "pwr-main",
			Type:     models.SensorPower,
			Name:     "Main Power Meter",
			Value:    28.5,
			Unit:     "kW",
			Location: "Main Dist",
		},
		&models.SensorState{
			ID:       "vib-1",
			Type:     models.SensorVibration,
			Name:     "Vibration Sensor 1",
			Value:    0.5,
			Unit:     "mm/s",
			Location: "Cooling Zone",
		},
	)

	for _, sensor := range sensors {
		sensor.Status = models.ClassifySensor(sensor.Type, sensor.Value)
	}
	return sensors
}

// Tick drifts every server and sensor, then attempts to generate one event.
func (s *Store) Tick() *models.SimulationEvent {
	s.mu.Lock()
	s.ensureInitialized()
	s.driftServers()
	s.driftSensors()
	event := s.generate()
	observers := s.observers
	s.mu.Unlock()

	if event == nil {
		return nil
	}
	for _, o := range observers {
		o.EventGenerated(*event)
	}
	return event
}

// generate runs under the lock and returns a snapshot of the new event, or nil.
func (s *Store) generate() *models.SimulationEvent {
	if s.rand.Float64() >= s.config.EventProbability {
		return nil
	}

	rec := s.servers[s.rand.Intn(len(s.servers))]
	if rec.state.Status == models.ServerStatusOffline || len(rec.events) >= s.config.MaxActiveEvents {
		return nil
	}

	types := models.AllEventTypes()
	eventType := types[s.rand.Intn(len(types))]
	t := catalog[eventType]
	severity := t.severities[s.rand.Intn(len(t.severities))]

	snapshot := *s.createEvent(rec, eventType, t, severity)
	return &snapshot
}

// Inject creates an event on a chosen server, bypassing probability and server choice.
func (s *Store) Inject(serverID string, eventType models.EventType, severity models.Severity) (*models.SimulationEvent, error) {
	t, ok := catalog[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	if severity == "" {
		severity = t.severities[len(t.severities)-1]
	}
	if !t.allows(severity) {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidSeverity, eventType, severity)
	}

	s.mu.Lock()
	s.ensureInitialized()
	rec, ok := s.byID[serverID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}
	if rec.state.Status == models.ServerStatusOffline {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServerOffline, serverID)
	}
	if len(rec.events) >= s.config.MaxActiveEvents {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTooManyEvents, serverID)
	}
	snapshot := *s.createEvent(rec, eventType, t, severity)
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.EventGenerated(snapshot)
	}
	return &snapshot, nil
}

func (s *Store) createEvent(rec *serverRecord, eventType models.EventType, t template, severity models.Severity) *models.SimulationEvent {
	s.counter++
	now := s.clock.Now()

	event := &models.SimulationEvent{
		ID:          fmt.Sprintf("evt-%d-%d", s.counter, now.UnixMilli()),
		Type:        eventType,
		ServerID:    rec.state.ID,
		ServerName:  rec.state.Name,
		Severity:    severity,
		Title:       t.title,
		TitleTh:     t.titleTh,
		Description: fmt.Sprintf(t.description, rec.state.Name),
		Timestamp:   now,
		DurationMS:  t.duration(s.rand).Milliseconds(),
		Impact:      t.impacts[severity],
		AIResponse:  t.responses[severity],
	}

	rec.events = append(rec.events, event)
	s.active = append(s.active, event)
	s.history = append(s.history, event)
	if over := len(s.history) - s.config.HistoryCap; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
	applyImpact(rec, event)

	id := event.ID
	s.clock.AfterFunc(event.Duration(), func() {
		s.resolve(id)
	})

	logger.WithEvent(event.ID, string(event.Type), rec.state.ID).
		WithField("severity", event.Severity).
		Debug("Event generated")

	return event
}

// resolve is the timer callback. A missing id means the event was already cleared.
func (s *Store) resolve(eventID string) {
	s.mu.Lock()
	idx := indexOf(s.active, eventID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	event := s.active[idx]
	rec, ok := s.byID[event.ServerID]
	if !ok {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	event.Resolved = true
	event.ResolvedAt = &now

	reverseImpact(rec, event)
	s.active = removeAt(s.active, idx)
	if j := indexOf(rec.events, eventID); j >= 0 {
		rec.events = removeAt(rec.events, j)
	}
	settleStatus(rec)

	snapshot := *event
	observers := s.observers
	s.mu.Unlock()

	logger.WithEvent(snapshot.ID, string(snapshot.Type), snapshot.ServerID).Debug("Event resolved")
	for _, o := range observers {
		o.EventResolved(snapshot)
	}
}

// ResetServer clears a server's active events and reseeds its metrics.
// Pending resolution timers for the cleared events become no-ops.
func (s *Store) ResetServer(serverID string) (models.ServerState, error) {
	s.mu.Lock()
	s.ensureInitialized()
	rec, ok := s.byID[serverID]
	if !ok {
		s.mu.Unlock()
		return models.ServerState{}, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}
	s.resetLocked(rec)
	snapshot := rec.snapshot()
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.ServerReset(snapshot)
	}
	return snapshot, nil
}

// ResetAll resets every server.
func (s *Store) ResetAll() []models.ServerState {
	s.mu.Lock()
	s.ensureInitialized()
	out := make([]models.ServerState, 0, len(s.servers))
	for _, rec := range s.servers {
		s.resetLocked(rec)
		out = append(out, rec.snapshot())
	}
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		for _, server := range out {
			o.ServerReset(server)
		}
	}
	return out
}

func (s *Store) resetLocked(rec *serverRecord) {
	now := s.clock.Now()
	for _, event := range rec.events {
		event.Resolved = true
		event.ResolvedAt = &now
		if idx := indexOf(s.active, event.ID); idx >= 0 {
			s.active = removeAt(s.active, idx)
		}
	}
	rec.events = nil
	rec.forcedOffline = false
	s.seedServer(rec)
}

// SetServerOffline takes a server out of service until it is reset.
func (s *Store) SetServerOffline(serverID string) (models.ServerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()

	rec, ok := s.byID[serverID]
	if !ok {
		return models.ServerState{}, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
	}
	rec.forcedOffline = true
	rec.state.Status = models.ServerStatusOffline
	return rec.snapshot(), nil
}

// AdjustTemperature shifts server temperature by delta. An empty id targets every server.
func (s *Store) AdjustTemperature(serverID string, delta float64) ([]models.ServerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()

	targets := s.servers
	if serverID != "" {
		rec, ok := s.byID[serverID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverID)
		}
		targets = []*serverRecord{rec}
	}

	out := make([]models.ServerState, 0, len(targets))
	for _, rec := range targets {
		rec.state.Temperature = clamp(rec.state.Temperature+delta, models.MinTemperature, models.MaxTemperature)
		classify(rec)
		out = append(out, rec.snapshot())
	}
	return out, nil
}

// MigrateWorkload moves up to amount CPU points from one server to another.
func (s *Store) MigrateWorkload(fromID, toID string, amount float64) ([]models.ServerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()

	from, ok := s.byID[fromID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, fromID)
	}
	to, ok := s.byID[toID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, toID)
	}
	if to.state.Status == models.ServerStatusOffline {
		return nil, fmt.Errorf("%w: %s", ErrServerOffline, toID)
	}

	moved := amount
	if moved > from.state.CPU {
		moved = from.state.CPU
	}
	if room := models.MaxPercent - to.state.CPU; moved > room {
		moved = room
	}
	if moved < 0 {
		moved = 0
	}

	from.state.CPU -= moved
	to.state.CPU += moved
	classify(from)
	classify(to)
	return []models.ServerState{from.snapshot(), to.snapshot()}, nil
}

func (s *Store) ListServers() []models.ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()

	out := make([]models.ServerState, 0, len(s.servers))
	for _, rec := range s.servers {
		out = append(out, rec.snapshot())
	}
	return out
}

func (s *Store) GetServer(serverID string) (models.ServerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()

	rec, ok := s.byID[serverID]
	if !ok {
		return models.ServerState{}, false
	}
	return rec.snapshot(), true
}

func (s *Store) ListSensors() []models.SensorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureInitialized()

	out := make([]models.SensorState, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		out = append(out, *sensor)
	}
	return out
}

func (s *Store) ListActiveEvents() []models.SimulationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEvents(s.active)
}

// ListEventHistory returns the most recent limit events, oldest first.
func (s *Store) ListEventHistory(limit int) []models.SimulationEvent {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.history) - limit
	if start < 0 {
		start = 0
	}
	return copyEvents(s.history[start:])
}

func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	s.ensureInitialized()
	servers := make([]models.ServerState, 0, len(s.servers))
	for _, rec := range s.servers {
		servers = append(servers, rec.snapshot())
	}
	sensors := make([]models.SensorState, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		sensors = append(sensors, *sensor)
	}
	active := len(s.active)
	uptime := s.clock.Now().Sub(s.startedAt)
	s.mu.Unlock()

	stats := models.ComputeStats(servers, sensors, active)
	stats.UptimeSeconds = int64(uptime / time.Second)
	return stats
}

func (r *serverRecord) snapshot() models.ServerState {
	out := r.state
	out.ActiveEvents = copyEvents(r.events)
	return out
}

func copyEvents(events []*models.SimulationEvent) []models.SimulationEvent {
	out := make([]models.SimulationEvent, 0, len(events))
	for _, e := range events {
		out = append(out, *e)
	}
	return out
}

func indexOf(events []*models.SimulationEvent, id string) int {
	for i, e := range events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(events []*models.SimulationEvent, i int) []*models.SimulationEvent {
	copy(events[i:], events[i+1:])
	events[len(events)-1] = nil
	return events[:len(events)-1]
}
