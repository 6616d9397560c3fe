package balancer

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/events"
	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/internal/metrics"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

var (
	ErrNoNodesAvailable = errors.New("no nodes available for load balancing")
	ErrUnknownStrategy  = errors.New("unknown load balancing strategy")
)

// LoadPredictor answers performance queries for the predictive strategy.
// The performance optimizer implements it.
type LoadPredictor interface {
	PredictNodePerformance(nodeIDs []string, workload models.WorkloadCharacteristics) ([]models.PredictionResult, error)
}

// ScalingNeedFunc is invoked after every load update with the fresh
// fleet-wide distribution so the autoscaler can react between ticks.
type ScalingNeedFunc func(distribution *models.LoadDistribution)

type Config struct {
	Strategy               models.Strategy
	Params                 models.StrategyParams
	DecisionLogSize        int
	OverloadThreshold      float64
	UnderutilizedThreshold float64
}

// LoadBalancer scores candidate nodes for incoming tasks and owns the
// per-node load snapshots.
type LoadBalancer struct {
	strategy      models.Strategy
	params        models.StrategyParams
	loads         map[string]*models.NodeLoad
	decisions     *decisionLog
	rrIndex       int
	overload      float64
	underutilized float64

	predictor     LoadPredictor
	onScalingNeed ScalingNeedFunc
	publisher     *events.Publisher

	mu sync.RWMutex
}

func New(cfg Config, publisher *events.Publisher) *LoadBalancer {
	if cfg.Strategy == "" {
		cfg.Strategy = models.StrategyResourceBased
	}
	if cfg.Params == (models.StrategyParams{}) {
		cfg.Params = models.DefaultStrategyParams()
	}
	if cfg.DecisionLogSize <= 0 {
		cfg.DecisionLogSize = 1000
	}
	if cfg.OverloadThreshold == 0 {
		cfg.OverloadThreshold = 80.0
	}
	if cfg.UnderutilizedThreshold == 0 {
		cfg.UnderutilizedThreshold = 20.0
	}

	return &LoadBalancer{
		strategy:      cfg.Strategy,
		params:        cfg.Params,
		loads:         make(map[string]*models.NodeLoad),
		decisions:     newDecisionLog(cfg.DecisionLogSize),
		overload:      cfg.OverloadThreshold,
		underutilized: cfg.UnderutilizedThreshold,
		publisher:     publisher,
	}
}

// SetPredictor wires the performance optimizer in for the predictive
// strategy. Without one, predictive scoring falls back to resource-based.
func (lb *LoadBalancer) SetPredictor(p LoadPredictor) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.predictor = p
}

func (lb *LoadBalancer) SetScalingNeedCheck(fn ScalingNeedFunc) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.onScalingNeed = fn
}

func (lb *LoadBalancer) Started() {
	lb.mu.RLock()
	strategy := lb.strategy
	monitored := len(lb.loads)
	lb.mu.RUnlock()

	if lb.publisher != nil {
		lb.publisher.BalancerStarted(strategy, monitored)
	}
}

// SelectNode scores every candidate under the active strategy and returns
// the ranked decision. Fails iff the candidate list is empty.
func (lb *LoadBalancer) SelectNode(candidates []string, req models.TaskRequirements) (*models.LoadBalancingDecision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoNodesAvailable
	}

	lb.mu.Lock()
	strategy := lb.strategy
	scored := lb.scoreCandidates(candidates, req)

	var selected scoredNode
	if strategy == models.StrategyRoundRobin {
		// Rotation order must not depend on map iteration; scored is
		// already sorted lexicographically for the round-robin case.
		selected = scored[lb.rrIndex%len(scored)]
		lb.rrIndex++
	} else {
		selected = scored[0]
	}

	decision := &models.LoadBalancingDecision{
		ID:           models.NewUUID(),
		SelectedNode: selected.nodeID,
		Strategy:     strategy,
		Score:        selected.score,
		Alternatives: alternativesFor(scored, selected.nodeID),
		Factors:      selected.factors,
		TaskPriority: req.Workload.Priority,
		Timestamp:    time.Now(),
	}
	lb.decisions.append(decision)
	lb.mu.Unlock()

	metrics.RecordDecision(string(strategy))
	if lb.publisher != nil {
		lb.publisher.Decision(decision)
	}

	logger.WithNode(selected.nodeID).Debugf(
		"Selected node with score %.1f (strategy: %s)", selected.score, strategy,
	)

	return decision, nil
}

// UpdateNodeLoad merges a partial load report into the stored snapshot. A
// node seen for the first time gets zeroed defaults. As a side effect the
// fresh distribution is handed to the scaling-need check.
func (lb *LoadBalancer) UpdateNodeLoad(nodeID string, update models.NodeLoadUpdate) {
	lb.mu.Lock()
	load, exists := lb.loads[nodeID]
	if !exists {
		load = models.NewNodeLoad(nodeID)
		lb.loads[nodeID] = load
	}
	load.Apply(update)
	snapshot := *load
	check := lb.onScalingNeed
	lb.mu.Unlock()

	metrics.SetNodeCompositeLoad(nodeID, snapshot.CompositeLoad())
	if lb.publisher != nil {
		lb.publisher.NodeLoadUpdated(&snapshot)
	}

	if check != nil {
		check(lb.GetLoadDistribution())
	}
}

// SeedNodeLoad installs a full snapshot for a node, used when the
// autoscaler provisions a fresh node with known low utilization.
func (lb *LoadBalancer) SeedNodeLoad(load *models.NodeLoad) {
	lb.mu.Lock()
	snapshot := *load
	snapshot.LastUpdated = time.Now()
	lb.loads[load.NodeID] = &snapshot
	lb.mu.Unlock()

	metrics.SetNodeCompositeLoad(load.NodeID, snapshot.CompositeLoad())
	if lb.publisher != nil {
		lb.publisher.NodeLoadUpdated(&snapshot)
	}
}

// RemoveNode drops the load snapshot for a decommissioned node.
func (lb *LoadBalancer) RemoveNode(nodeID string) {
	lb.mu.Lock()
	delete(lb.loads, nodeID)
	lb.mu.Unlock()

	metrics.DeleteNodeCompositeLoad(nodeID)
}

// GetNodeLoad returns a copy of the stored snapshot, if any.
func (lb *LoadBalancer) GetNodeLoad(nodeID string) (models.NodeLoad, bool) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	load, exists := lb.loads[nodeID]
	if !exists {
		return models.NodeLoad{}, false
	}
	return *load, true
}

// NodeLoadsSnapshot returns copies of every stored load snapshot. The
// autoscaler aggregates raw metrics from this when evaluating triggers.
func (lb *LoadBalancer) NodeLoadsSnapshot() []models.NodeLoad {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	snapshot := make([]models.NodeLoad, 0, len(lb.loads))
	for _, load := range lb.loads {
		snapshot = append(snapshot, *load)
	}
	return snapshot
}

// GetLoadDistribution computes the fleet-wide composite load view consumed
// by the autoscaler.
func (lb *LoadBalancer) GetLoadDistribution() *models.LoadDistribution {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	dist := &models.LoadDistribution{
		Timestamp: time.Now(),
		NodeLoads: make(map[string]float64, len(lb.loads)),
	}

	if len(lb.loads) == 0 {
		return dist
	}

	var total float64
	for id, load := range lb.loads {
		composite := load.CompositeLoad()
		dist.NodeLoads[id] = composite
		total += composite

		if composite > lb.overload {
			dist.OverloadedNodes = append(dist.OverloadedNodes, id)
		} else if composite < lb.underutilized {
			dist.UnderutilizedNodes = append(dist.UnderutilizedNodes, id)
		}
	}

	dist.AverageLoad = total / float64(len(lb.loads))

	var sumSquares float64
	for _, composite := range dist.NodeLoads {
		diff := composite - dist.AverageLoad
		sumSquares += diff * diff
	}
	dist.Variance = sumSquares / float64(len(lb.loads))

	sort.Strings(dist.OverloadedNodes)
	sort.Strings(dist.UnderutilizedNodes)

	return dist
}

// SetStrategy switches the active strategy at runtime.
func (lb *LoadBalancer) SetStrategy(strategy models.Strategy, params *models.StrategyParams) error {
	if !strategy.Valid() {
		return ErrUnknownStrategy
	}

	lb.mu.Lock()
	lb.strategy = strategy
	if params != nil {
		lb.params = *params
	}
	activeParams := lb.params
	lb.mu.Unlock()

	logger.Infof("Load balancing strategy changed to %s", strategy)
	if lb.publisher != nil {
		lb.publisher.StrategyChanged(strategy, activeParams)
	}
	return nil
}

func (lb *LoadBalancer) Strategy() models.Strategy {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.strategy
}

// Decisions returns the retained decision history, oldest first.
func (lb *LoadBalancer) Decisions() []*models.LoadBalancingDecision {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.decisions.snapshot()
}

func (lb *LoadBalancer) NodeCount() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return len(lb.loads)
}

func alternativesFor(scored []scoredNode, selected string) []models.NodeScore {
	alternatives := make([]models.NodeScore, 0, 4)
	for _, s := range scored {
		if s.nodeID == selected {
			continue
		}
		alternatives = append(alternatives, models.NodeScore{NodeID: s.nodeID, Score: s.score})
		if len(alternatives) == 4 {
			break
		}
	}
	return alternatives
}

// decisionLog is a fixed-size ring buffer of selection decisions.
type decisionLog struct {
	entries []*models.LoadBalancingDecision
	next    int
	full    bool
}

func newDecisionLog(size int) *decisionLog {
	return &decisionLog{entries: make([]*models.LoadBalancingDecision, size)}
}

func (l *decisionLog) append(d *models.LoadBalancingDecision) {
	l.entries[l.next] = d
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

func (l *decisionLog) snapshot() []*models.LoadBalancingDecision {
	if !l.full {
		out := make([]*models.LoadBalancingDecision, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]*models.LoadBalancingDecision, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

func (l *decisionLog) len() int {
	if l.full {
		return len(l.entries)
	}
	return l.next
}
