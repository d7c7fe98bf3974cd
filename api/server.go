package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/OldStager01/dcsim/api/handlers"
	"github.com/OldStager01/dcsim/api/middleware"
	"github.com/OldStager01/dcsim/api/websocket"
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

const maxRequestBytes = 1 << 20

// Dependencies are the running components the API serves. Bot, LineClient
// and Notifications may be nil; Metrics defaults to the process registry.
type Dependencies struct {
	Store         *simulator.Store
	Runner        *simulator.Runner
	Predictor     *predictor.ResilientPredictor
	Unity         *unity.Bridge
	Bot           *linebot.Bot
	LineClient    *linebot.Client
	Metrics       *metrics.Metrics
	Notifications <-chan *models.Notification
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}

	router := gin.New()
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router: router,
		config: cfg,
		deps:   deps,
		wsHub:  wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if deps.Notifications != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, deps.Notifications)
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.API.CORS)))
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBytes))

	s.router.Use(middleware.Metrics(s.deps.Metrics))

	if s.config.API.RateLimit > 0 {
		rateLimiter := middleware.NewBurstRateLimiter(s.config.API.RateLimit, s.config.API.RateBurst, time.Minute)
		s.router.Use(middleware.RateLimit(rateLimiter))
	}

	// Outbound LINE calls and fault injection get tighter budgets.
	endpointLimiter := middleware.NewEndpointRateLimiter()
	endpointLimiter.AddEndpoint(http.MethodPost, "/api/line/push", 10, time.Minute)
	endpointLimiter.AddEndpoint(http.MethodPost, "/api/line/broadcast", 5, time.Minute)
	endpointLimiter.AddEndpoint(http.MethodPost, "/api/events", 30, time.Minute)
	s.router.Use(endpointLimiter.Middleware())
}

func (s *Server) tickFunc() handlers.TickFunc {
	if !s.config.Simulation.TickOnRead {
		return nil
	}
	return s.deps.Runner.TickOnce
}

func (s *Server) healthHandler() *handlers.HealthHandler {
	store := s.deps.Store
	h := handlers.NewHealthHandler().
		AddCheck("simulator", func(context.Context) error {
			if len(store.ListServers()) == 0 {
				return errors.New("no servers")
			}
			return nil
		}, true).
		AddCheck("runner", func(context.Context) error {
			if !s.deps.Runner.IsRunning() {
				return errors.New("background ticking stopped")
			}
			return nil
		}, false).
		AddCheck("predictor", func(ctx context.Context) error {
			if s.deps.Predictor.CircuitState() == resilience.StateOpen {
				return errors.New("circuit open, serving heuristics")
			}
			return s.deps.Predictor.HealthCheck(ctx)
		}, false)

	if client := s.deps.LineClient; client != nil {
		h.AddCheck("line", func(context.Context) error {
			if !client.Configured() {
				return linebot.ErrNotConfigured
			}
			if client.CircuitState() == resilience.StateOpen {
				return resilience.ErrCircuitOpen
			}
			return nil
		}, false)
	}
	return h
}

// snapshot is the first message a websocket client receives.
func (s *Server) snapshot(serverID string) interface{} {
	servers := s.deps.Store.ListServers()
	if serverID != "" {
		filtered := servers[:0]
		for _, srv := range servers {
			if srv.ID == serverID {
				filtered = append(filtered, srv)
			}
		}
		servers = filtered
	}
	return gin.H{
		"servers": servers,
		"stats":   s.deps.Store.Stats(),
	}
}

func (s *Server) setupRoutes() {
	tick := s.tickFunc()

	healthHandler := s.healthHandler()
	simHandler := handlers.NewSimulationHandler(s.deps.Store, tick)
	eventHandler := handlers.NewEventHandler(s.deps.Store, tick, &s.config.API)
	aiHandler := handlers.NewAIHandler(s.deps.Predictor, s.deps.Metrics)
	unityHandler := handlers.NewUnityHandler(s.deps.Store, s.deps.Unity, s.deps.Metrics)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub, s.snapshot))

	api := s.router.Group("/api")
	{
		api.GET("/servers", simHandler.ListServers)
		api.GET("/servers/:id", simHandler.GetServer)
		api.GET("/sensors", simHandler.ListSensors)
		api.GET("/stats", simHandler.Stats)
		api.GET("/realtime", simHandler.Realtime)

		api.GET("/events/active", eventHandler.Active)
		api.GET("/events/history", eventHandler.History)
		api.POST("/events", eventHandler.Inject)

		api.GET("/ai/predict", aiHandler.Models)
		api.POST("/ai/predict", aiHandler.Predict)

		unityGroup := api.Group("/unity")
		unityGroup.GET("/servers", unityHandler.Servers)
		unityGroup.POST("/servers", unityHandler.UpdateServer)
		unityGroup.GET("/sensors", unityHandler.Sensors)
		unityGroup.POST("/sensors", unityHandler.UpdateSensor)
		unityGroup.POST("/commands", unityHandler.Command)
		unityGroup.GET("/queue", unityHandler.Queue)
		unityGroup.GET("/ai-decisions", unityHandler.Recommendation)
		unityGroup.POST("/ai-decisions", unityHandler.RecordDecision)
	}

	if s.deps.Bot != nil && s.deps.LineClient != nil {
		lineHandler := handlers.NewLineHandler(s.deps.Bot, s.deps.LineClient)
		line := api.Group("/line")
		line.POST("/webhook", lineHandler.Webhook)
		line.POST("/push", lineHandler.Push)
		line.POST("/broadcast", lineHandler.Broadcast)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
		ErrorLog:     log.New(logger.Writer(logrus.WarnLevel), "", 0),
	}

	logger.Infof("API server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

