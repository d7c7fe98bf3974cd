package config

import "time"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Line       LineConfig       `mapstructure:"line"`
	Predictor  PredictorConfig  `mapstructure:"predictor"`
	Unity      UnityConfig      `mapstructure:"unity"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Timezone        string        `mapstructure:"timezone"`
}

type SimulationConfig struct {
	ServerCount      int           `mapstructure:"server_count"`
	EventProbability float64       `mapstructure:"event_probability"`
	MaxActiveEvents  int           `mapstructure:"max_active_events"`
	HistoryCap       int           `mapstructure:"history_cap"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	AutoStart        bool          `mapstructure:"auto_start"`

	// TickOnRead advances the simulation once per read request.
	TickOnRead bool `mapstructure:"tick_on_read"`

	// Seed fixes the random source; zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int `mapstructure:"rate_limit"`
	RateBurst int `mapstructure:"rate_burst"`

	DefaultLimit int        `mapstructure:"default_limit"`
	MaxLimit     int        `mapstructure:"max_limit"`
	CORS         CORSConfig `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type LineConfig struct {
	Enabled            bool                 `mapstructure:"enabled"`
	ChannelSecret      string               `mapstructure:"channel_secret"`
	ChannelAccessToken string               `mapstructure:"channel_access_token"`
	APIBaseURL         string               `mapstructure:"api_base_url"`
	Timeout            time.Duration        `mapstructure:"timeout"`
	DedupeSize         int                  `mapstructure:"dedupe_size"`
	NotifySeverity     string               `mapstructure:"notify_severity"`
	NotifyInterval     time.Duration        `mapstructure:"notify_interval"`
	NotifyBurst        int                  `mapstructure:"notify_burst"`
	CircuitBreaker     CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type PredictorConfig struct {
	// Endpoint of a remote model service; empty means heuristics only.
	Endpoint string `mapstructure:"endpoint"`

	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration        `mapstructure:"retry_delay"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type UnityConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type EventsConfig struct {
	BufferSize int        `mapstructure:"buffer_size"`
	NATS       NATSConfig `mapstructure:"nats"`
}

type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}
