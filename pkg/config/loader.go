package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dcsim")
	}

	// Environment variable settings
	v.SetEnvPrefix("DCSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dcsim")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "10s")
	v.SetDefault("app.timezone", "Asia/Bangkok")

	// Simulation defaults
	v.SetDefault("simulation.server_count", 8)
	v.SetDefault("simulation.event_probability", 0.15)
	v.SetDefault("simulation.max_active_events", 3)
	v.SetDefault("simulation.history_cap", 500)
	v.SetDefault("simulation.tick_interval", "5s")
	v.SetDefault("simulation.auto_start", true)
	v.SetDefault("simulation.tick_on_read", true)
	v.SetDefault("simulation.seed", 0)

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 600)
	v.SetDefault("api.rate_burst", 50)
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Trace-ID"})
	v.SetDefault("api.cors.exposed_headers", []string{"X-Trace-ID"})

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.max_message_size", 512)
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 256)

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// LINE defaults
	v.SetDefault("line.enabled", false)
	v.SetDefault("line.api_base_url", "https://api.line.me/v2/bot/message")
	v.SetDefault("line.timeout", "10s")
	v.SetDefault("line.dedupe_size", 1024)
	v.SetDefault("line.notify_severity", "high")
	v.SetDefault("line.notify_interval", "30s")
	v.SetDefault("line.notify_burst", 3)
	v.SetDefault("line.circuit_breaker.max_failures", 5)
	v.SetDefault("line.circuit_breaker.timeout", "30s")

	// Predictor defaults
	v.SetDefault("predictor.endpoint", "")
	v.SetDefault("predictor.timeout", "5s")
	v.SetDefault("predictor.retry_attempts", 2)
	v.SetDefault("predictor.retry_delay", "200ms")
	v.SetDefault("predictor.circuit_breaker.max_failures", 5)
	v.SetDefault("predictor.circuit_breaker.timeout", "30s")

	// Unity defaults
	v.SetDefault("unity.queue_size", 100)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.nats.enabled", false)
	v.SetDefault("events.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("events.nats.subject_prefix", "dcsim.events")
}
