package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/autoscaler"
	"github.com/AnarQorp/qnet-scheduler/internal/balancer"
	"github.com/AnarQorp/qnet-scheduler/internal/collector"
	"github.com/AnarQorp/qnet-scheduler/internal/events"
	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/internal/optimizer"
	"github.com/AnarQorp/qnet-scheduler/internal/resilience"
	"github.com/AnarQorp/qnet-scheduler/internal/simulator"
	"github.com/AnarQorp/qnet-scheduler/pkg/config"
	"github.com/AnarQorp/qnet-scheduler/pkg/database"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// Scheduler owns the control loops and wires the balancer, autoscaler and
// optimizer together over the event bus.
type Scheduler struct {
	config    *config.Config
	db        *database.DB
	bus       *events.Bus
	publisher *events.Publisher
	sink      *events.HistorySink

	balancer  *balancer.LoadBalancer
	manager   *autoscaler.Manager
	optimizer *optimizer.Optimizer
	jitter    *simulator.Jitter
	agents    collector.Collector
	poller    *collector.Poller

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func New(cfg *config.Config, db *database.DB) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	bufferSize := cfg.Events.BufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}
	bus := events.NewBus(bufferSize)
	publisher := events.NewPublisher(bus)

	var sink *events.HistorySink
	if db != nil {
		sink = events.NewHistorySink(db, bus.SubscribeAll())
	}

	lb := balancer.New(balancer.Config{
		Strategy:               models.Strategy(cfg.Balancer.Strategy),
		Params:                 strategyParams(cfg),
		DecisionLogSize:        cfg.Balancer.DecisionLogSize,
		OverloadThreshold:      cfg.Balancer.OverloadThreshold,
		UnderutilizedThreshold: cfg.Balancer.UnderutilizedThreshold,
	}, publisher)

	mgr := autoscaler.New(autoscaler.Config{
		TargetUtilization:  cfg.Autoscaler.TargetUtilization,
		GrowthRatePerDay:   cfg.Autoscaler.GrowthRatePerDay,
		ForecastTTL:        cfg.Autoscaler.ForecastTTL,
		ActionLogSize:      cfg.Autoscaler.ActionLogSize,
		UtilizationHistory: cfg.Autoscaler.UtilizationHistory,
	}, lb, publisher)

	opt := optimizer.New(optimizer.Config{
		MetricWindow:       cfg.Optimizer.MetricWindow,
		ProfileWindow:      cfg.Optimizer.ProfileWindow,
		PredictionTTL:      cfg.Optimizer.PredictionTTL,
		PatternScanSize:    cfg.Optimizer.PatternScanSize,
		MinTrainingSamples: cfg.Optimizer.MinTrainingSamples,
	}, publisher)

	// The predictive strategy consults the optimizer, and every load
	// update gives the autoscaler a chance to react between ticks.
	lb.SetPredictor(opt)
	lb.SetScalingNeedCheck(mgr.CheckScalingNeed)

	s := &Scheduler{
		config:    cfg,
		db:        db,
		bus:       bus,
		publisher: publisher,
		sink:      sink,
		balancer:  lb,
		manager:   mgr,
		optimizer: opt,
		ctx:       ctx,
		cancel:    cancel,
	}

	if cfg.Scheduler.JitterEnabled {
		s.jitter = simulator.NewJitter(lb, simulator.ParsePattern(cfg.Scheduler.JitterPattern))
	}

	if cfg.Collector.Enabled && cfg.Collector.Endpoint != "" {
		agents := collector.NewResilientCollector(collector.ResilientCollectorConfig{
			Collector: collector.NewHTTPCollector(collector.HTTPCollectorConfig{
				Endpoint: cfg.Collector.Endpoint,
				Timeout:  cfg.Collector.Timeout,
			}),
			MaxFailures:   cfg.Collector.MaxFailures,
			RetryAttempts: cfg.Collector.RetryAttempts,
			RetryDelay:    cfg.Collector.RetryDelay,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warnf("%s circuit %s -> %s", name, from, to)
			},
		})
		s.agents = agents
		s.poller = collector.NewPoller(agents, lb, cfg.Collector.Timeout)
	}

	return s
}

func strategyParams(cfg *config.Config) models.StrategyParams {
	params := models.DefaultStrategyParams()
	if cfg.Balancer.CPUWeight > 0 {
		params.CPUWeight = cfg.Balancer.CPUWeight
	}
	if cfg.Balancer.MemoryWeight > 0 {
		params.MemoryWeight = cfg.Balancer.MemoryWeight
	}
	if cfg.Balancer.ResponseTimeWeight > 0 {
		params.ResponseTimeWeight = cfg.Balancer.ResponseTimeWeight
	}
	if cfg.Balancer.ThroughputWeight > 0 {
		params.ThroughputWeight = cfg.Balancer.ThroughputWeight
	}
	return params
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.running = true

	logger.Info("Scheduler starting")

	if s.sink != nil {
		s.sink.Start()
	}

	s.balancer.Started()
	s.manager.Started()
	s.optimizer.Started()

	sched := s.config.Scheduler
	if s.jitter != nil {
		s.runEvery(sched.JitterInterval, 5*time.Second, s.jitter.Tick)
	}
	if s.poller != nil {
		s.runEvery(s.config.Collector.Interval, 10*time.Second, s.poller.Tick)
	}
	s.runEvery(sched.PredictionInterval, 60*time.Second, s.refreshPredictions)
	s.runEvery(sched.TriggerInterval, 30*time.Second, func() {
		s.manager.EvaluateTriggers(time.Now())
	})
	s.runEvery(sched.ForecastInterval, 5*time.Minute, s.manager.RefreshForecasts)
	s.runEvery(sched.TrainingInterval, 5*time.Minute, s.optimizer.TrainTick)
	s.runEvery(sched.AdaptiveInterval, time.Minute, s.optimizer.AdaptTick)
	s.runEvery(sched.PatternInterval, 2*time.Minute, s.optimizer.DetectPatterns)

	logger.Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	logger.Info("Scheduler stopping")

	s.cancel()
	s.wg.Wait()

	if s.agents != nil {
		s.agents.Close()
	}
	if s.sink != nil {
		s.sink.Stop()
	}
	s.bus.Close()

	logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runEvery launches a loop that fires fn immediately and then on every
// tick until the scheduler context is cancelled.
func (s *Scheduler) runEvery(interval, fallback time.Duration, fn func()) {
	if interval <= 0 {
		interval = fallback
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// refreshPredictions keeps a warm prediction set for every node currently
// reporting load.
func (s *Scheduler) refreshPredictions() {
	loads := s.balancer.NodeLoadsSnapshot()
	if len(loads) == 0 {
		return
	}

	nodeIDs := make([]string, 0, len(loads))
	for _, load := range loads {
		nodeIDs = append(nodeIDs, load.NodeID)
	}

	if _, err := s.optimizer.PredictNodePerformance(nodeIDs, models.WorkloadCharacteristics{
		TaskType: "steady-state",
	}); err != nil {
		logger.Debugf("prediction refresh skipped: %v", err)
	}
}

func (s *Scheduler) Balancer() *balancer.LoadBalancer {
	return s.balancer
}

func (s *Scheduler) Autoscaler() *autoscaler.Manager {
	return s.manager
}

func (s *Scheduler) Optimizer() *optimizer.Optimizer {
	return s.optimizer
}

func (s *Scheduler) SubscribeEvents(topic models.EventTopic) <-chan *models.Event {
	return s.bus.Subscribe(topic)
}

func (s *Scheduler) SubscribeAllEvents() <-chan *models.Event {
	return s.bus.SubscribeAll()
}
