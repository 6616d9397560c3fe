package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
)

// AgentServer impersonates a fleet of QNET node agents over HTTP so the
// collector has something to poll without real nodes. Each node's load
// walks randomly around a pattern-shaped base.
type AgentServer struct {
	port     int
	pattern  Pattern
	baseCPU  float64
	baseMem  float64
	variance float64

	nodes      map[string]*agentState
	rng        *rand.Rand
	httpServer *http.Server
	mu         sync.Mutex
}

type agentState struct {
	cpu          float64
	memory       float64
	network      float64
	disk         float64
	connections  int
	queued       int
	responseTime float64
}

type AgentConfig struct {
	Port     int
	Nodes    []string
	Pattern  Pattern
	BaseCPU  float64
	BaseMem  float64
	Variance float64
}

func NewAgentServer(cfg AgentConfig) *AgentServer {
	if cfg.Pattern == nil {
		cfg.Pattern = &SteadyPattern{}
	}
	if cfg.BaseCPU == 0 {
		cfg.BaseCPU = 50
	}
	if cfg.BaseMem == 0 {
		cfg.BaseMem = 60
	}
	if cfg.Variance == 0 {
		cfg.Variance = 10
	}

	s := &AgentServer{
		port:     cfg.Port,
		pattern:  cfg.Pattern,
		baseCPU:  cfg.BaseCPU,
		baseMem:  cfg.BaseMem,
		variance: cfg.Variance,
		nodes:    make(map[string]*agentState),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, nodeID := range cfg.Nodes {
		s.nodes[nodeID] = &agentState{
			cpu:          cfg.BaseCPU,
			memory:       cfg.BaseMem,
			network:      30,
			disk:         20,
			connections:  100,
			queued:       3,
			responseTime: 200,
		}
	}

	return s
}

func (s *AgentServer) Start() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "nodes": s.NodeCount()})
	})
	router.GET("/nodes/:id/load", s.handleLoad)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: router,
	}

	go func() {
		logger.Infof("node agent simulator listening on :%d (%d nodes, pattern=%s)",
			s.port, s.NodeCount(), s.pattern.Name())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("agent server error: %v", err)
		}
	}()

	return nil
}

func (s *AgentServer) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *AgentServer) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *AgentServer) handleLoad(c *gin.Context) {
	nodeID := c.Param("id")

	s.mu.Lock()
	state, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown node"})
		return
	}

	s.stepLocked(state)
	report := gin.H{
		"node_id":              nodeID,
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"cpu_usage":            state.cpu,
		"memory_usage":         state.memory,
		"network_usage":        state.network,
		"disk_usage":           state.disk,
		"active_connections":   state.connections,
		"queued_tasks":         state.queued,
		"avg_response_time_ms": state.responseTime,
		"throughput_per_sec":   float64(state.connections) / 10,
		"error_rate_percent":   s.rng.Float64() * 2,
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, report)
}

func (s *AgentServer) stepLocked(state *agentState) {
	state.cpu = clampUtilization(s.pattern.Apply(s.walkLocked(state.cpu, s.baseCPU)))
	state.memory = clampUtilization(s.walkLocked(state.memory, s.baseMem))
	state.network = clampUtilization(s.walkLocked(state.network, 30))
	state.disk = clampUtilization(s.walkLocked(state.disk, 20))

	state.connections += s.rng.Intn(21) - 10
	if state.connections < 0 {
		state.connections = 0
	}
	state.queued += s.rng.Intn(3) - 1
	if state.queued < 0 {
		state.queued = 0
	}
	state.responseTime += (s.rng.Float64()*2 - 1) * 30
	if state.responseTime < 10 {
		state.responseTime = 10
	}
}

// walkLocked takes a bounded step that drifts back toward the base value.
func (s *AgentServer) walkLocked(v, base float64) float64 {
	step := (s.rng.Float64()*2 - 1) * s.variance
	pull := (base - v) * 0.1
	return v + step + pull
}
