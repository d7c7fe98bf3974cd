package config

import (
	"errors"
	"fmt"
	"time"
	// Timezone names must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/OldStager01/dcsim/pkg/models"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("app.timezone is invalid: %w", err))
	}

	// Simulation validation
	if c.Simulation.ServerCount <= 0 {
		errs = append(errs, errors.New("simulation.server_count must be positive"))
	}
	if c.Simulation.EventProbability < 0 || c.Simulation.EventProbability > 1 {
		errs = append(errs, errors.New("simulation.event_probability must be between 0 and 1"))
	}
	if c.Simulation.MaxActiveEvents <= 0 {
		errs = append(errs, errors.New("simulation.max_active_events must be positive"))
	}
	if c.Simulation.HistoryCap <= 0 {
		errs = append(errs, errors.New("simulation.history_cap must be positive"))
	}
	if c.Simulation.TickInterval <= 0 {
		errs = append(errs, errors.New("simulation.tick_interval must be positive"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if c.API.DefaultLimit <= 0 || c.API.DefaultLimit > c.API.MaxLimit {
		errs = append(errs, errors.New("api.default_limit must be positive and <= api.max_limit"))
	}

	// Prometheus validation
	if c.Prometheus.Enabled && (c.Prometheus.Port <= 0 || c.Prometheus.Port > 65535) {
		errs = append(errs, errors.New("prometheus.port must be between 1 and 65535"))
	}
	if c.Prometheus.Enabled && c.Prometheus.Port == c.API.Port {
		errs = append(errs, errors.New("prometheus.port must differ from api.port"))
	}

	// LINE validation
	if c.Line.Enabled {
		if c.Line.ChannelSecret == "" {
			errs = append(errs, errors.New("line.channel_secret is required when line is enabled"))
		}
		if c.Line.ChannelAccessToken == "" {
			errs = append(errs, errors.New("line.channel_access_token is required when line is enabled"))
		}
	}
	if !models.Severity(c.Line.NotifySeverity).Valid() {
		errs = append(errs, errors.New("line.notify_severity must be one of: low, medium, high, critical"))
	}

	// Predictor validation
	if c.Predictor.Endpoint != "" && c.Predictor.Timeout <= 0 {
		errs = append(errs, errors.New("predictor.timeout must be positive"))
	}

	// Events validation
	if c.Events.NATS.Enabled && c.Events.NATS.URL == "" {
		errs = append(errs, errors.New("events.nats.url is required when nats is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
