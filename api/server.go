package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AnarQorp/qnet-scheduler/api/handlers"
	"github.com/AnarQorp/qnet-scheduler/api/middleware"
	"github.com/AnarQorp/qnet-scheduler/api/websocket"
	"github.com/AnarQorp/qnet-scheduler/internal/auth"
	"github.com/AnarQorp/qnet-scheduler/pkg/config"
	"github.com/AnarQorp/qnet-scheduler/pkg/database"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

const maxRequestBody = 1 << 20 // 1 MiB

// ControlPlane is what the server needs from the scheduler.
type ControlPlane interface {
	handlers.ControlPlane
	IsRunning() bool
	SubscribeAllEvents() <-chan *models.Event
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	db          *database.DB
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	cp          ControlPlane
}

func NewServer(cfg *config.Config, db *database.DB, cp ControlPlane) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	authService := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration, cfg.API.JWTIssuer)
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		authService: authService,
		wsHub:       wsHub,
		cp:          cp,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if cp != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, cp.SubscribeAllEvents())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.API.CORS)))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBody))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db, s.cp)
	statusHandler := handlers.NewStatusHandler(s.cp)
	historyHandler := handlers.NewHistoryHandler(s.db)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Operator routes
	protected := s.router.Group("/api/v1")
	protected.Use(middleware.JWTAuth(s.authService))
	{
		// Load balancer
		protected.GET("/distribution", statusHandler.GetDistribution)
		protected.GET("/decisions", statusHandler.GetDecisions)
		protected.PUT("/strategy", statusHandler.SetStrategy)
		protected.GET("/nodes/:id/load", statusHandler.GetNodeLoad)
		protected.POST("/nodes/:id/load", statusHandler.ReportNodeLoad)
		protected.POST("/placements", statusHandler.PlaceTask)

		// Autoscaler
		protected.GET("/scaling/status", statusHandler.GetScalingStatus)
		protected.GET("/recommendations", statusHandler.GetRecommendations)
		protected.GET("/optimizations", statusHandler.GetOptimizations)
		protected.GET("/forecast", statusHandler.GetForecast)
		protected.POST("/policies", statusHandler.AddPolicy)
		protected.POST("/pools", statusHandler.AddNodePool)
		protected.GET("/pools/:id", statusHandler.GetPool)

		// Performance optimizer
		protected.GET("/predictions", statusHandler.GetPredictions)
		protected.GET("/profiles/:id", statusHandler.GetProfile)
		protected.GET("/patterns", statusHandler.GetPatterns)
		protected.GET("/optimizer/stats", statusHandler.GetOptimizerStats)
		protected.POST("/metrics", statusHandler.RecordMetric)
		protected.POST("/selections", statusHandler.SelectOptimalNodes)

		// Persisted event history
		protected.GET("/history", historyHandler.GetHistory)
		protected.GET("/history/summary", historyHandler.GetHistorySummary)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	idleTimeout := s.config.API.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
