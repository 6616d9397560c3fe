package autoscaler

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/events"
	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/internal/metrics"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
	"github.com/AnarQorp/qnet-scheduler/pkg/validation"
)

var (
	ErrPolicyExists = errors.New("scaling policy already exists")
	ErrPoolExists   = errors.New("node pool already exists")
	ErrPoolNotFound = errors.New("node pool not found")
)

// FleetView is what the autoscaler consumes from the load balancer: the
// composite distribution for trigger evaluation plus the load mutations a
// scaling action needs.
type FleetView interface {
	GetLoadDistribution() *models.LoadDistribution
	NodeLoadsSnapshot() []models.NodeLoad
	SeedNodeLoad(load *models.NodeLoad)
	UpdateNodeLoad(nodeID string, update models.NodeLoadUpdate)
	RemoveNode(nodeID string)
}

type Config struct {
	TargetUtilization  float64
	GrowthRatePerDay   float64
	ForecastTTL        time.Duration
	ActionLogSize      int
	UtilizationHistory int
}

// Manager owns scaling policies, node pools and per-trigger evaluation
// state. Trigger evaluation is driven externally by the scheduler's ticker;
// everything here is synchronous and mutex-guarded.
type Manager struct {
	cfg Config

	policies      map[string]*models.ScalingPolicy
	pools         map[string]*models.NodePool
	triggerStates map[string]*models.TriggerState
	lastFired     map[string]time.Time
	nodeConfigs   map[string]models.NodeConfiguration
	utilization   map[string][]models.NodeLoad

	actions    []*models.ScalingAction
	lastRecomm *models.ScalingRecommendation
	forecasts  map[int]*models.CapacityForecast

	fleet     FleetView
	publisher *events.Publisher
	rng       *rand.Rand
	mu        sync.RWMutex
}

func New(cfg Config, fleet FleetView, publisher *events.Publisher) *Manager {
	if cfg.TargetUtilization <= 0 {
		cfg.TargetUtilization = 0.70
	}
	if cfg.GrowthRatePerDay <= 0 {
		cfg.GrowthRatePerDay = 0.02
	}
	if cfg.ForecastTTL <= 0 {
		cfg.ForecastTTL = time.Hour
	}
	if cfg.ActionLogSize <= 0 {
		cfg.ActionLogSize = 500
	}
	if cfg.UtilizationHistory <= 0 {
		cfg.UtilizationHistory = 100
	}

	return &Manager{
		cfg:           cfg,
		policies:      make(map[string]*models.ScalingPolicy),
		pools:         make(map[string]*models.NodePool),
		triggerStates: make(map[string]*models.TriggerState),
		lastFired:     make(map[string]time.Time),
		nodeConfigs:   make(map[string]models.NodeConfiguration),
		utilization:   make(map[string][]models.NodeLoad),
		forecasts:     make(map[int]*models.CapacityForecast),
		fleet:         fleet,
		publisher:     publisher,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Manager) Started() {
	m.mu.RLock()
	active := 0
	for _, p := range m.policies {
		if p.Enabled {
			active++
		}
	}
	pools := len(m.pools)
	m.mu.RUnlock()

	if m.publisher != nil {
		m.publisher.AutoscalingStarted(active, pools)
	}
}

// AddPolicy registers a scaling policy after validating its triggers.
func (m *Manager) AddPolicy(policy *models.ScalingPolicy) error {
	if err := validation.ValidateScalingPolicy(policy); err != nil {
		return err
	}
	if policy.ID == "" {
		policy.ID = models.NewUUID()
	}

	m.mu.Lock()
	if _, exists := m.policies[policy.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPolicyExists, policy.ID)
	}
	m.policies[policy.ID] = policy
	for _, trigger := range policy.Triggers {
		m.triggerStates[trigger.ID] = &models.TriggerState{Phase: models.TriggerIdle}
	}
	m.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"policy_id": policy.ID,
		"triggers":  len(policy.Triggers),
		"enabled":   policy.Enabled,
	}).Infof("Scaling policy added: %s", policy.Name)

	if m.publisher != nil {
		m.publisher.PolicyAdded(policy)
	}
	return nil
}

// AddNodePool registers a pool and seeds a load snapshot for each of its
// initial nodes so the balancer can place work on them immediately.
func (m *Manager) AddNodePool(pool *models.NodePool) error {
	if err := validation.ValidateNodePool(pool); err != nil {
		return err
	}
	if pool.ID == "" {
		pool.ID = models.NewUUID()
	}
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = time.Now()
	}
	if pool.TargetSize == 0 {
		pool.TargetSize = pool.CurrentSize
	}

	m.mu.Lock()
	if _, exists := m.pools[pool.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPoolExists, pool.ID)
	}
	m.pools[pool.ID] = pool
	for _, nodeID := range pool.Nodes {
		m.nodeConfigs[nodeID] = pool.DefaultConfig
	}
	m.mu.Unlock()

	for _, nodeID := range pool.Nodes {
		m.fleet.SeedNodeLoad(models.NewNodeLoad(nodeID))
	}
	metrics.SetPoolSize(pool.ID, pool.CurrentSize)

	logger.WithPool(pool.ID).Infof("Node pool added: %s (%d-%d nodes, %d provisioned)",
		pool.Name, pool.MinSize, pool.MaxSize, pool.CurrentSize)

	if m.publisher != nil {
		m.publisher.NodePoolAdded(pool)
	}
	return nil
}

// GetNodePool returns a copy of one pool.
func (m *Manager) GetNodePool(poolID string) (models.NodePool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, exists := m.pools[poolID]
	if !exists {
		return models.NodePool{}, false
	}
	return snapshotPool(pool), true
}

// EvaluateTriggers runs one evaluation pass over every enabled policy.
// Driven by the scheduler's 30-second ticker.
func (m *Manager) EvaluateTriggers(now time.Time) {
	distribution := m.fleet.GetLoadDistribution()
	loads := m.fleet.NodeLoadsSnapshot()

	m.recordUtilization(loads)

	type firing struct {
		policy  *models.ScalingPolicy
		trigger models.ScalingTrigger
	}
	var firings []firing

	m.mu.Lock()
	for _, policy := range m.policies {
		if !policy.Enabled {
			continue
		}
		if cooldown := policy.Cooldown; cooldown > 0 {
			if last, exists := m.lastFired[policy.ID]; exists && now.Sub(last) < cooldown {
				continue
			}
		}

		for _, trigger := range policy.Triggers {
			observed := aggregateMetric(trigger.Metric, distribution, loads)
			if m.stepTriggerLocked(trigger, observed, now) {
				m.lastFired[policy.ID] = now
				firings = append(firings, firing{policy: policy, trigger: trigger})
			}
		}
	}
	m.mu.Unlock()

	for _, f := range firings {
		metrics.RecordTriggerFiring(string(f.trigger.Action))
		logger.WithFields(map[string]interface{}{
			"policy_id":  f.policy.ID,
			"trigger_id": f.trigger.ID,
			"metric":     f.trigger.Metric,
			"action":     f.trigger.Action,
		}).Infof("Scaling trigger fired after sustained condition")

		action := models.NewScalingAction(f.trigger.Action, fmt.Sprintf(
			"trigger %s: %s %s %.1f sustained for %s",
			f.trigger.ID, f.trigger.Metric, f.trigger.Comparison, f.trigger.Threshold, f.trigger.Duration))
		action.PolicyID = f.policy.ID
		action.TriggerID = f.trigger.ID
		m.ExecuteAction(action)
	}
}

// stepTriggerLocked advances one trigger's state machine and reports whether
// it fired. Firing resets the state to idle, so the condition must go false
// and true again before the trigger can fire a second time. Caller holds m.mu.
func (m *Manager) stepTriggerLocked(trigger models.ScalingTrigger, observed float64, now time.Time) bool {
	state, exists := m.triggerStates[trigger.ID]
	if !exists {
		state = &models.TriggerState{Phase: models.TriggerIdle}
		m.triggerStates[trigger.ID] = state
	}

	conditionMet := trigger.Comparison.Evaluate(observed, trigger.Threshold)

	switch state.Phase {
	case models.TriggerIdle:
		if conditionMet {
			state.Phase = models.TriggerArmed
			state.ArmedSince = now
		}
	case models.TriggerArmed:
		if !conditionMet {
			state.Phase = models.TriggerIdle
			state.ArmedSince = time.Time{}
			return false
		}
		if now.Sub(state.ArmedSince) >= trigger.Duration {
			state.Phase = models.TriggerIdle
			state.ArmedSince = time.Time{}
			state.LastFired = now
			state.FireCount++
			return true
		}
	}
	return false
}

// aggregateMetric reduces the fleet to the single value a trigger compares
// against its threshold.
func aggregateMetric(metric models.ScalingMetric, distribution *models.LoadDistribution, loads []models.NodeLoad) float64 {
	if metric == models.MetricCompositeLoad {
		return distribution.AverageLoad
	}
	if len(loads) == 0 {
		return 0
	}

	var sum float64
	for _, load := range loads {
		switch metric {
		case models.MetricCPUUtilization:
			sum += load.CPUUtilization
		case models.MetricMemoryUtilization:
			sum += load.MemoryUtilization
		case models.MetricResponseTime:
			sum += load.AvgResponseTime
		case models.MetricQueueDepth:
			sum += float64(load.QueuedTasks)
		case models.MetricErrorRate:
			sum += load.ErrorRate
		}
	}
	return sum / float64(len(loads))
}

// recordUtilization appends each node's current load to its bounded history
// used by optimization analysis.
func (m *Manager) recordUtilization(loads []models.NodeLoad) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, load := range loads {
		history := append(m.utilization[load.NodeID], load)
		if len(history) > m.cfg.UtilizationHistory {
			history = history[len(history)-m.cfg.UtilizationHistory:]
		}
		m.utilization[load.NodeID] = history
	}
}

// CheckScalingNeed is wired as the balancer's load-update callback. It keeps
// the latest derived recommendation available for status queries.
func (m *Manager) CheckScalingNeed(distribution *models.LoadDistribution) {
	recommendation := deriveRecommendation(distribution)

	m.mu.Lock()
	m.lastRecomm = recommendation
	m.mu.Unlock()

	if recommendation.Direction != models.DirectionHold {
		logger.Debugf("Scaling need: %s (%s) - %s",
			recommendation.Direction, recommendation.Urgency, recommendation.Reason)
	}
}

// GetScalingRecommendations derives suggestions from the current load
// distribution without mutating any pool.
func (m *Manager) GetScalingRecommendations() []models.ScalingRecommendation {
	recommendation := deriveRecommendation(m.fleet.GetLoadDistribution())

	m.mu.Lock()
	m.lastRecomm = recommendation
	m.mu.Unlock()

	return []models.ScalingRecommendation{*recommendation}
}

func deriveRecommendation(distribution *models.LoadDistribution) *models.ScalingRecommendation {
	recommendation := &models.ScalingRecommendation{
		Direction:   models.DirectionHold,
		Urgency:     models.UrgencyLow,
		Reason:      "load within normal parameters",
		GeneratedAt: time.Now(),
	}

	fleetSize := distribution.NodeCount()
	if fleetSize == 0 {
		recommendation.Reason = "no nodes reporting load"
		return recommendation
	}

	overloaded := len(distribution.OverloadedNodes)
	halfFleet := overloaded*2 >= fleetSize

	switch {
	case distribution.AverageLoad > 75 || halfFleet:
		recommendation.Direction = models.DirectionScaleUp
		recommendation.SuggestedNodes = 1 + overloaded/2
		switch {
		case distribution.AverageLoad > 90:
			recommendation.Urgency = models.UrgencyCritical
		case distribution.AverageLoad > 80:
			recommendation.Urgency = models.UrgencyHigh
		default:
			recommendation.Urgency = models.UrgencyMedium
		}
		recommendation.Reason = fmt.Sprintf(
			"average composite load %.1f with %d of %d nodes overloaded",
			distribution.AverageLoad, overloaded, fleetSize)
	case distribution.AverageLoad < 25 && len(distribution.UnderutilizedNodes) > 0:
		recommendation.Direction = models.DirectionScaleDown
		recommendation.SuggestedNodes = 1
		recommendation.Reason = fmt.Sprintf(
			"average composite load %.1f with %d underutilized nodes",
			distribution.AverageLoad, len(distribution.UnderutilizedNodes))
	}
	return recommendation
}

// GetScalingStatus snapshots policies, pools, trigger states and recent
// actions for operators.
func (m *Manager) GetScalingStatus() models.ScalingStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := models.ScalingStatus{
		TriggerStates: make(map[string]models.TriggerState, len(m.triggerStates)),
		GeneratedAt:   time.Now(),
	}

	for _, policy := range m.policies {
		status.Policies = append(status.Policies, *policy)
	}
	for _, pool := range m.pools {
		status.Pools = append(status.Pools, snapshotPool(pool))
	}
	for id, state := range m.triggerStates {
		status.TriggerStates[id] = *state
	}
	for _, action := range m.actions {
		status.RecentActions = append(status.RecentActions, *action)
	}
	if m.lastRecomm != nil {
		recommendation := *m.lastRecomm
		status.LastRecommendation = &recommendation
	}
	return status
}

// snapshotPool deep-copies a pool so callers cannot mutate the node slice.
func snapshotPool(pool *models.NodePool) models.NodePool {
	copied := *pool
	copied.Nodes = append([]string(nil), pool.Nodes...)
	return copied
}
