package unity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/predictor"
	"github.com/OldStager01/dcsim/pkg/models"
)

const (
	DefaultCoolingDelta  = -2.0
	DefaultMigrateAmount = 20.0
)

var (
	ErrMissingCommand   = errors.New("missing required field: command")
	ErrInvalidCommand   = errors.New("invalid command type")
	ErrMissingTarget    = errors.New("missing required field: targetId")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidParameter = errors.New("invalid command parameter")
	ErrInvalidSensor    = errors.New("invalid sensor type")
	ErrUnknownServer    = errors.New("unknown server")
)

// Simulation is the part of the simulator Unity commands act on.
type Simulation interface {
	GetServer(serverID string) (models.ServerState, bool)
	ListServers() []models.ServerState
	ResetServer(serverID string) (models.ServerState, error)
	ResetAll() []models.ServerState
	SetServerOffline(serverID string) (models.ServerState, error)
	AdjustTemperature(serverID string, delta float64) ([]models.ServerState, error)
	MigrateWorkload(fromID, toID string, amount float64) ([]models.ServerState, error)
}

// Runner starts and stops background ticking.
type Runner interface {
	Start()
	Stop()
	IsRunning() bool
}

// CommandObserver hears about every command the bridge applied. ctx carries
// the trace id of the request that issued the command.
type CommandObserver interface {
	UnityCommand(ctx context.Context, commandID, command, targetID string, data interface{})
}

type BridgeConfig struct {
	QueueSize int
	Observer  CommandObserver
	Now       func() time.Time
}

// Bridge connects the Unity scene to the simulator: it applies commands,
// accepts telemetry reports and keeps a queue of recent messages.
type Bridge struct {
	sim      Simulation
	runner   Runner
	queue    *Queue
	observer CommandObserver
	now      func() time.Time
}

func NewBridge(sim Simulation, runner Runner, cfg BridgeConfig) *Bridge {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bridge{
		sim:      sim,
		runner:   runner,
		queue:    NewQueue(cfg.QueueSize),
		observer: cfg.Observer,
		now:      cfg.Now,
	}
}

func (b *Bridge) Queue() []Message {
	return b.queue.Messages()
}

func (b *Bridge) enqueue(msgType MessageType, data interface{}) {
	b.queue.Push(Message{Type: msgType, Data: data, Timestamp: b.now()})
}

func (b *Bridge) newCommandID() string {
	return fmt.Sprintf("CMD-%d-%s", b.now().UnixMilli(), uuid.NewString()[:8])
}

// Execute validates cmd, applies it to the simulator and queues it for Unity.
func (b *Bridge) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	if cmd.Command == "" {
		return nil, ErrMissingCommand
	}
	if !cmd.Command.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Command)
	}

	result, err := b.apply(cmd)
	if err != nil {
		return nil, err
	}

	commandID := b.newCommandID()
	b.enqueue(MessageCommand, map[string]interface{}{
		"commandId":  commandID,
		"command":    cmd.Command,
		"targetId":   cmd.TargetID,
		"parameters": cmd.Parameters,
	})
	if b.observer != nil {
		b.observer.UnityCommand(ctx, commandID, string(cmd.Command), cmd.TargetID, result)
	}

	logger.WithContext(ctx).WithFields(map[string]interface{}{
		"command_id": commandID,
		"command":    cmd.Command,
		"target_id":  cmd.TargetID,
	}).Info("Unity command applied")

	return &CommandResult{
		Success:   true,
		Message:   "Command queued for Unity",
		CommandID: commandID,
		Timestamp: b.now(),
		Result:    result,
	}, nil
}

func (b *Bridge) apply(cmd Command) (interface{}, error) {
	switch cmd.Command {
	case CommandStartSimulation:
		b.runner.Start()
		return map[string]bool{"running": b.runner.IsRunning()}, nil

	case CommandStopSimulation:
		b.runner.Stop()
		return map[string]bool{"running": b.runner.IsRunning()}, nil

	case CommandResetSimulation:
		return b.sim.ResetAll(), nil

	case CommandRestartServer:
		if cmd.TargetID == "" {
			return nil, ErrMissingTarget
		}
		return b.sim.ResetServer(cmd.TargetID)

	case CommandShutdownServer:
		if cmd.TargetID == "" {
			return nil, ErrMissingTarget
		}
		return b.sim.SetServerOffline(cmd.TargetID)

	case CommandAdjustCooling:
		delta, err := floatParam(cmd.Parameters, "delta", DefaultCoolingDelta)
		if err != nil {
			return nil, err
		}
		// An empty target cools the whole room.
		return b.sim.AdjustTemperature(cmd.TargetID, delta)

	case CommandMigrateWorkload:
		if cmd.TargetID == "" {
			return nil, ErrMissingTarget
		}
		to, ok := cmd.Parameters["to"].(string)
		if !ok || to == "" {
			return nil, fmt.Errorf("%w: to", ErrInvalidParameter)
		}
		amount, err := floatParam(cmd.Parameters, "amount", DefaultMigrateAmount)
		if err != nil {
			return nil, err
		}
		return b.sim.MigrateWorkload(cmd.TargetID, to, amount)
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Command)
}

func floatParam(params map[string]interface{}, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParameter, key)
}

// RecordServerUpdate accepts a server report from the scene. The simulator
// stays authoritative; the report is only queued for other clients.
func (b *Bridge) RecordServerUpdate(update ServerUpdate) error {
	if update.ServerID == "" {
		return fmt.Errorf("%w: serverId", ErrMissingField)
	}
	if _, ok := b.sim.GetServer(update.ServerID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServer, update.ServerID)
	}

	b.enqueue(MessageMetrics, update)
	logger.WithServer(update.ServerID).Debug("Unity server update received")
	return nil
}

func (b *Bridge) RecordSensorUpdate(update SensorUpdate) error {
	if update.ServerID == "" || update.SensorType == "" || update.Value == nil {
		return fmt.Errorf("%w: serverId, sensorType, value", ErrMissingField)
	}
	switch models.SensorType(update.SensorType) {
	case models.SensorTemperature, models.SensorHumidity, models.SensorPower, models.SensorVibration:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidSensor, update.SensorType)
	}

	b.enqueue(MessageSensorUpdate, update)
	logger.WithServer(update.ServerID).Debugf("Unity %s reading %.2f", update.SensorType, *update.Value)
	return nil
}

func (b *Bridge) RecordAIDecision(decision AIDecision) error {
	if decision.AgentID == "" || decision.Decision == "" {
		return fmt.Errorf("%w: agentId, decision", ErrMissingField)
	}

	b.enqueue(MessageAIDecision, decision)
	logger.WithFields(map[string]interface{}{
		"agent_id":   decision.AgentID,
		"decision":   decision.Decision,
		"confidence": decision.Confidence,
		"reward":     decision.Reward,
	}).Info("Unity AI decision logged")
	return nil
}

// Recommend proposes the next action for a Unity agent from live load.
func (b *Bridge) Recommend() Recommendation {
	var busiest, idlest *models.ServerState
	servers := b.sim.ListServers()
	for i := range servers {
		s := &servers[i]
		if s.Status == models.ServerStatusOffline {
			continue
		}
		if busiest == nil || s.CPU > busiest.CPU {
			busiest = s
		}
		if idlest == nil || s.CPU < idlest.CPU {
			idlest = s
		}
	}

	h := predictor.NewHeuristicPredictor(predictor.HeuristicConfig{Jitter: func() float64 { return 0.5 }, Now: b.now})
	input := predictor.OptimizationInput{}
	for _, s := range servers {
		if s.Status != models.ServerStatusOffline {
			input.Servers = append(input.Servers, predictor.OptimizationServer{
				Name: s.ID, CPUUsage: s.CPU, MemoryUsage: s.Memory, Temperature: s.Temperature,
			})
		}
	}
	prediction := h.Optimization(input)

	if busiest == nil || !prediction.Optimization.CanOptimize {
		return Recommendation{
			Action:              "HOLD",
			Confidence:          float64(prediction.Confidence) / 100,
			ExpectedImprovement: "none",
			Reasoning:           "Load is balanced across serving servers",
		}
	}

	return Recommendation{
		Action:              "REBALANCE_LOAD",
		SourceServer:        busiest.ID,
		TargetServer:        idlest.ID,
		Confidence:          float64(prediction.Confidence) / 100,
		ExpectedImprovement: fmt.Sprintf("%d%% efficiency gain", prediction.Optimization.EnergySavingPercent),
		Reasoning:           fmt.Sprintf("%s is overloaded at %.0f%% CPU while %s idles at %.0f%%", busiest.Name, busiest.CPU, idlest.Name, idlest.CPU),
	}
}
