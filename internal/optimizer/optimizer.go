package optimizer

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/events"
	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/internal/metrics"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

var ErrConfidenceNotMet = errors.New("no nodes meet the minimum prediction confidence")

type Config struct {
	MetricWindow          time.Duration
	ProfileWindow         int
	PredictionTTL         time.Duration
	PatternScanSize       int
	MinTrainingSamples    int
	AdaptationHistorySize int
}

// Optimizer ingests performance samples, maintains per-node profiles and
// answers prediction and selection queries. All state is in-memory and
// guarded by one mutex; background work is driven externally by the
// scheduler's tickers.
type Optimizer struct {
	cfg Config

	samples     []*models.PerformanceMetric
	byNode      map[string][]*models.PerformanceMetric
	profiles    map[string]*models.NodePerformanceProfile
	predictions []*models.PredictionResult
	patterns    map[string]*models.ExecutionPattern

	model      PredictionModel
	modelStats models.ModelStats
	algorithms map[string]*models.AlgorithmState
	adaptation []models.AdaptationRecord

	publisher *events.Publisher
	rng       *rand.Rand
	mu        sync.RWMutex
}

func New(cfg Config, publisher *events.Publisher) *Optimizer {
	if cfg.MetricWindow <= 0 {
		cfg.MetricWindow = 24 * time.Hour
	}
	if cfg.ProfileWindow <= 0 {
		cfg.ProfileWindow = 100
	}
	if cfg.PredictionTTL <= 0 {
		cfg.PredictionTTL = time.Hour
	}
	if cfg.PatternScanSize <= 0 {
		cfg.PatternScanSize = 200
	}
	if cfg.MinTrainingSamples <= 0 {
		cfg.MinTrainingSamples = 100
	}
	if cfg.AdaptationHistorySize <= 0 {
		cfg.AdaptationHistorySize = 100
	}

	o := &Optimizer{
		cfg:        cfg,
		byNode:     make(map[string][]*models.PerformanceMetric),
		profiles:   make(map[string]*models.NodePerformanceProfile),
		patterns:   make(map[string]*models.ExecutionPattern),
		model:      newHeuristicModel(),
		algorithms: make(map[string]*models.AlgorithmState),
		publisher:  publisher,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	o.modelStats = models.ModelStats{
		Accuracy:  0.70,
		Precision: 0.68,
		Recall:    0.65,
	}

	for _, name := range []string{
		string(models.StrategyRoundRobin),
		string(models.StrategyLeastConnections),
		string(models.StrategyLeastResponseTime),
		string(models.StrategyResourceBased),
		string(models.StrategyPredictive),
	} {
		o.algorithms[name] = &models.AlgorithmState{
			Name:        name,
			Score:       50,
			Convergence: models.Converging,
			UpdatedAt:   time.Now(),
		}
	}

	return o
}

// SetModel swaps the prediction model. Callers are unaffected; only the
// estimates change.
func (o *Optimizer) SetModel(model PredictionModel) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = model
}

func (o *Optimizer) Started() {
	o.mu.RLock()
	algorithms := len(o.algorithms)
	profiles := len(o.profiles)
	o.mu.RUnlock()

	if o.publisher != nil {
		o.publisher.OptimizerStarted(1, algorithms, profiles)
	}
}

// RecordMetric appends one execution sample to the rolling window and
// synchronously rebuilds the affected node's profile.
func (o *Optimizer) RecordMetric(metric *models.PerformanceMetric) {
	if metric.ID == "" {
		metric.ID = models.NewUUID()
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}

	o.mu.Lock()
	o.samples = append(o.samples, metric)
	o.byNode[metric.NodeID] = append(o.byNode[metric.NodeID], metric)
	o.pruneLocked(time.Now())

	profile := o.rebuildProfileLocked(metric.NodeID)
	o.mu.Unlock()

	metrics.RecordMetricIngested()
	if profile != nil {
		metrics.SetProfileOverall(metric.NodeID, profile.Overall)
	}
	if o.publisher != nil {
		o.publisher.MetricRecorded(metric)
	}
}

// pruneLocked drops samples outside the rolling window. Caller holds o.mu.
func (o *Optimizer) pruneLocked(now time.Time) {
	cutoff := now.Add(-o.cfg.MetricWindow)

	o.samples = pruneBefore(o.samples, cutoff)
	for nodeID, nodeSamples := range o.byNode {
		pruned := pruneBefore(nodeSamples, cutoff)
		if len(pruned) == 0 {
			delete(o.byNode, nodeID)
		} else {
			o.byNode[nodeID] = pruned
		}
	}
}

func pruneBefore(samples []*models.PerformanceMetric, cutoff time.Time) []*models.PerformanceMetric {
	// Samples arrive in time order, so find the first one inside the window.
	for i, s := range samples {
		if !s.Timestamp.Before(cutoff) {
			return samples[i:]
		}
	}
	return nil
}

// GetNodeProfile returns a copy of the derived profile for a node.
func (o *Optimizer) GetNodeProfile(nodeID string) (models.NodePerformanceProfile, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	profile, exists := o.profiles[nodeID]
	if !exists {
		return models.NodePerformanceProfile{}, false
	}
	return *profile, true
}

// GetExecutionPatterns returns the detected recurring conditions.
func (o *Optimizer) GetExecutionPatterns() []models.ExecutionPattern {
	o.mu.RLock()
	defer o.mu.RUnlock()

	patterns := make([]models.ExecutionPattern, 0, len(o.patterns))
	for _, p := range o.patterns {
		patterns = append(patterns, *p)
	}
	return patterns
}

// GetLoadPredictions returns the predictions still inside their retention
// window, newest first.
func (o *Optimizer) GetLoadPredictions() []models.PredictionResult {
	o.mu.Lock()
	o.prunePredictionsLocked(time.Now())
	out := make([]models.PredictionResult, 0, len(o.predictions))
	for i := len(o.predictions) - 1; i >= 0; i-- {
		out = append(out, *o.predictions[i])
	}
	o.mu.Unlock()
	return out
}

// GetOptimizationStats summarizes the optimizer for operators.
func (o *Optimizer) GetOptimizationStats() models.OptimizationStats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	stats := models.OptimizationStats{
		Model:        o.modelStats,
		ProfileCount: len(o.profiles),
		MetricCount:  len(o.samples),
		PatternCount: len(o.patterns),
		Profiles:     make(map[string]float64, len(o.profiles)),
		GeneratedAt:  time.Now(),
	}

	for _, algo := range o.algorithms {
		stats.Algorithms = append(stats.Algorithms, *algo)
	}
	for nodeID, profile := range o.profiles {
		stats.Profiles[nodeID] = profile.Overall
	}

	historyTail := 10
	if len(o.adaptation) < historyTail {
		historyTail = len(o.adaptation)
	}
	stats.RecentAdaptation = append(stats.RecentAdaptation, o.adaptation[len(o.adaptation)-historyTail:]...)

	return stats
}

// TrainTick nudges model quality upward while enough training data exists.
// Driven by the scheduler's 5-minute timer.
func (o *Optimizer) TrainTick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.samples) < o.cfg.MinTrainingSamples {
		logger.Debugf("Skipping model training: %d/%d samples", len(o.samples), o.cfg.MinTrainingSamples)
		return
	}

	o.model.Train(o.samples)

	o.modelStats.Accuracy = improveToward(o.modelStats.Accuracy, 0.98)
	o.modelStats.Precision = improveToward(o.modelStats.Precision, 0.96)
	o.modelStats.Recall = improveToward(o.modelStats.Recall, 0.95)
	o.modelStats.TrainingSamples = len(o.samples)
	o.modelStats.LastTrained = time.Now()

	metrics.SetModelAccuracy(o.modelStats.Accuracy)
	logger.Debugf("Model trained on %d samples (accuracy %.3f)", len(o.samples), o.modelStats.Accuracy)
}

func improveToward(current, ceiling float64) float64 {
	next := current + (ceiling-current)*0.05
	if next > ceiling {
		return ceiling
	}
	return next
}

// AdaptTick perturbs each algorithm's score and classifies convergence
// from the sign and magnitude of the delta. Driven by the 1-minute timer.
func (o *Optimizer) AdaptTick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	for _, algo := range o.algorithms {
		delta := (o.rng.Float64() - 0.45) * 2

		var convergence models.Convergence
		switch {
		case delta > -0.1 && delta < 0.1:
			convergence = models.Converged
		case delta > 0:
			convergence = models.Converging
		default:
			convergence = models.Diverging
		}

		algo.Score = clampScore(algo.Score + delta)
		algo.Convergence = convergence
		algo.UpdatedAt = now

		o.adaptation = append(o.adaptation, models.AdaptationRecord{
			Algorithm:   algo.Name,
			Delta:       delta,
			Convergence: convergence,
			Timestamp:   now,
		})
	}

	if excess := len(o.adaptation) - o.cfg.AdaptationHistorySize; excess > 0 {
		o.adaptation = o.adaptation[excess:]
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
