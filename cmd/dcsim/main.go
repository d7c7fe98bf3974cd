package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/dcsim/api"
	"github.com/OldStager01/dcsim/internal/events"
	"github.com/OldStager01/dcsim/internal/linebot"
	"github.com/OldStager01/dcsim/internal/logger"
	"github.com/OldStager01/dcsim/internal/metrics"
	"github.com/OldStager01/dcsim/internal/predictor"
	"github.com/OldStager01/dcsim/internal/resilience"
	"github.com/OldStager01/dcsim/internal/simulator"
	"github.com/OldStager01/dcsim/internal/unity"
	"github.com/OldStager01/dcsim/pkg/config"
	"github.com/OldStager01/dcsim/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	m := metrics.Get()
	onBreakerChange := func(name string, from, to resilience.State) {
		m.SetCircuitBreakerState(name, int(to))
		logger.WithField("breaker", name).Warnf("Circuit breaker %s -> %s", from, to)
		if to == resilience.StateOpen {
			publisher.Error("", fmt.Sprintf("%s circuit breaker opened", name), resilience.ErrCircuitOpen)
		}
	}

	store := simulator.NewStore(simulator.Config{
		ServerCount:      cfg.Simulation.ServerCount,
		EventProbability: cfg.Simulation.EventProbability,
		MaxActiveEvents:  cfg.Simulation.MaxActiveEvents,
		HistoryCap:       cfg.Simulation.HistoryCap,
		Rand:             simulator.NewRand(cfg.Simulation.Seed),
	})
	store.AddObserver(publisher)
	store.AddObserver(m)
	store.Initialize()

	sensorWatch := events.NewSensorWatch(publisher)
	runner := simulator.NewRunner(store, simulator.RunnerConfig{
		Interval: cfg.Simulation.TickInterval,
		AfterTick: func(*models.SimulationEvent) {
			sensors := store.ListSensors()
			m.IncTick()
			m.ObserveServers(store.ListServers())
			m.ObserveSensors(sensors)
			sensorWatch.Observe(sensors)
			publisher.Tick(store.Stats())
		},
	})
	if cfg.Simulation.AutoStart {
		runner.Start()
	}
	defer runner.Stop()

	prediction := newPredictor(cfg.Predictor, onBreakerChange)
	defer prediction.Close()

	bridge := unity.NewBridge(store, runner, unity.BridgeConfig{
		QueueSize: cfg.Unity.QueueSize,
		Observer:  publisher,
	})

	logSub := bus.SubscribeAll()
	eventLogger := events.NewEventLogger(logSub)
	eventLogger.Start()
	defer eventLogger.Stop()

	if cfg.Events.NATS.Enabled {
		sink, err := events.DialNATS(cfg.Events.NATS.URL, cfg.Events.NATS.SubjectPrefix, bus.SubscribeAll())
		if err != nil {
			return err
		}
		sink.Start()
		defer sink.Stop()
	}

	deps := api.Dependencies{
		Store:         store,
		Runner:        runner,
		Predictor:     prediction,
		Unity:         bridge,
		Metrics:       m,
		Notifications: bus.SubscribeAll(),
	}

	if cfg.Line.Enabled {
		client := linebot.NewClient(linebot.ClientConfig{
			BaseURL:            cfg.Line.APIBaseURL,
			ChannelAccessToken: cfg.Line.ChannelAccessToken,
			Timeout:            cfg.Line.Timeout,
			MaxFailures:        cfg.Line.CircuitBreaker.MaxFailures,
			BreakerTimeout:     cfg.Line.CircuitBreaker.Timeout,
			OnStateChange:      onBreakerChange,
		})
		formatter := linebot.NewFormatter(store, location)
		deps.LineClient = client
		deps.Bot = linebot.NewBot(linebot.BotConfig{
			ChannelSecret: cfg.Line.ChannelSecret,
			DedupeSize:    cfg.Line.DedupeSize,
			OnMessage:     m.IncLineMessage,
		}, client, formatter)

		notifier := linebot.NewNotifier(bus.Subscribe(models.NotificationEventGenerated), client, formatter, linebot.NotifierConfig{
			MinSeverity: models.Severity(cfg.Line.NotifySeverity),
			Interval:    cfg.Line.NotifyInterval,
			Burst:       cfg.Line.NotifyBurst,
			SendTimeout: cfg.Line.Timeout,
			OnMessage:   m.IncLineMessage,
		})
		notifier.Start()
		defer notifier.Stop()
		logger.Info("LINE bot enabled")
	}

	if cfg.Prometheus.Enabled {
		metricsServer := metrics.StartServer(cfg.Prometheus.Port)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsServer.Shutdown(ctx)
		}()
	}

	server := api.NewServer(cfg, deps)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	// The websocket bridge has stopped reading; keep the bus from filling its channel.
	bus.Unsubscribe(deps.Notifications)

	logger.Info("Server stopped gracefully")
	return nil
}

func newPredictor(cfg config.PredictorConfig, onStateChange func(string, resilience.State, resilience.State)) *predictor.ResilientPredictor {
	rc := predictor.ResilientPredictorConfig{
		MaxFailures:   cfg.CircuitBreaker.MaxFailures,
		Timeout:       cfg.CircuitBreaker.Timeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		OnStateChange: onStateChange,
	}
	if cfg.Endpoint != "" {
		rc.Remote = predictor.NewHTTPPredictor(predictor.HTTPPredictorConfig{
			Endpoint: cfg.Endpoint,
			Timeout:  cfg.Timeout,
		})
		logger.WithField("endpoint", cfg.Endpoint).Info("Remote prediction service configured")
	}
	return predictor.NewResilientPredictor(rc)
}
