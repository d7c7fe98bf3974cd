package unity

import "time"

type MessageType string

const (
	MessageSensorUpdate MessageType = "SENSOR_UPDATE"
	MessageAIDecision   MessageType = "AI_DECISION"
	MessageCommand      MessageType = "COMMAND"
	MessageMetrics      MessageType = "METRICS"
	MessageHeartbeat    MessageType = "HEARTBEAT"
)

// Message is one entry exchanged with the Unity client.
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type CommandType string

const (
	CommandStartSimulation CommandType = "START_SIMULATION"
	CommandStopSimulation  CommandType = "STOP_SIMULATION"
	CommandResetSimulation CommandType = "RESET_SIMULATION"
	CommandAdjustCooling   CommandType = "ADJUST_COOLING"
	CommandMigrateWorkload CommandType = "MIGRATE_WORKLOAD"
	CommandShutdownServer  CommandType = "SHUTDOWN_SERVER"
	CommandRestartServer   CommandType = "RESTART_SERVER"
)

func ValidCommands() []CommandType {
	return []CommandType{
		CommandStartSimulation,
		CommandStopSimulation,
		CommandResetSimulation,
		CommandAdjustCooling,
		CommandMigrateWorkload,
		CommandShutdownServer,
		CommandRestartServer,
	}
}

func (c CommandType) Valid() bool {
	for _, v := range ValidCommands() {
		if c == v {
			return true
		}
	}
	return false
}

// Command is what the dashboard asks Unity, and the simulator, to do.
type Command struct {
	Command    CommandType            `json:"command"`
	TargetID   string                 `json:"targetId,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type CommandResult struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	CommandID string      `json:"commandId"`
	Timestamp time.Time   `json:"timestamp"`
	Result    interface{} `json:"result,omitempty"`
}

// ServerUpdate is a server state report posted by Unity.
type ServerUpdate struct {
	ServerID    string   `json:"serverId"`
	CPU         *float64 `json:"cpu,omitempty"`
	Memory      *float64 `json:"memory,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Status      string   `json:"status,omitempty"`
}

type SensorUpdate struct {
	ServerID   string   `json:"serverId"`
	SensorType string   `json:"sensorType"`
	Value      *float64 `json:"value"`
}

// AIDecision is an action chosen by an agent inside the Unity scene.
type AIDecision struct {
	AgentID    string                 `json:"agentId"`
	Decision   string                 `json:"decision"`
	Confidence float64                `json:"confidence,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Reward     float64                `json:"reward,omitempty"`
}

type Recommendation struct {
	Action              string  `json:"action"`
	SourceServer        string  `json:"sourceServer,omitempty"`
	TargetServer        string  `json:"targetServer,omitempty"`
	Confidence          float64 `json:"confidence"`
	ExpectedImprovement string  `json:"expectedImprovement"`
	Reasoning           string  `json:"reasoning"`
}
