package autoscaler

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/internal/metrics"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

var (
	ErrNoPoolCapacity       = errors.New("no pool with spare capacity available")
	ErrNoUnderutilizedNodes = errors.New("No underutilized nodes available for removal")
	ErrNoRemovablePool      = errors.New("every underutilized node belongs to a pool at minimum size")
	ErrNoTargetNode         = errors.New("no target node available for the action")
	ErrNothingToBalance     = errors.New("redistribution requires both overloaded and underutilized nodes")
)

// impactFor returns the static pre-declared estimate for an action type.
// These are planning figures, not post-hoc measurements.
func impactFor(actionType models.ScalingActionType) models.ScalingImpact {
	switch actionType {
	case models.ActionAddNode:
		return models.ScalingImpact{LoadChangePercent: -15, CostChangePercent: 10, PerformanceChangePercent: 12}
	case models.ActionRemoveNode:
		return models.ScalingImpact{LoadChangePercent: 10, CostChangePercent: -10, PerformanceChangePercent: -5}
	case models.ActionUpgradeNode:
		return models.ScalingImpact{LoadChangePercent: -8, CostChangePercent: 15, PerformanceChangePercent: 20}
	case models.ActionDowngradeNode:
		return models.ScalingImpact{LoadChangePercent: 5, CostChangePercent: -12, PerformanceChangePercent: -8}
	case models.ActionRedistributeLoad:
		return models.ScalingImpact{LoadChangePercent: -10, CostChangePercent: 0, PerformanceChangePercent: 8}
	}
	return models.ScalingImpact{}
}

// ExecuteAction runs one scaling action through its full lifecycle. Every
// precondition is validated before any pool state changes, so a failed
// action leaves pools exactly as they were.
func (m *Manager) ExecuteAction(action *models.ScalingAction) *models.ScalingAction {
	action.Status = models.ActionInProgress
	action.Impact = impactFor(action.Type)

	if m.publisher != nil {
		m.publisher.ActionStarted(action)
	}

	var err error
	switch action.Type {
	case models.ActionAddNode:
		err = m.performAddNode(action)
	case models.ActionRemoveNode:
		err = m.performRemoveNode(action)
	case models.ActionUpgradeNode:
		err = m.performUpgradeNode(action)
	case models.ActionDowngradeNode:
		err = m.performDowngradeNode(action)
	case models.ActionRedistributeLoad:
		err = m.performRedistributeLoad(action)
	default:
		err = fmt.Errorf("unknown scaling action type: %s", action.Type)
	}

	now := time.Now()
	action.CompletedAt = &now

	if err != nil {
		action.Status = models.ActionFailed
		action.Error = err.Error()
		metrics.RecordScalingAction(string(action.Type), "failed")
		logger.WithAction(action.ID).Warnf("Scaling action %s failed: %v", action.Type, err)
		if m.publisher != nil {
			m.publisher.ActionFailed(action)
		}
	} else {
		action.Status = models.ActionCompleted
		metrics.RecordScalingAction(string(action.Type), "completed")
		logger.WithAction(action.ID).Infof("Scaling action %s completed in %s (targets: %v)",
			action.Type, action.Duration(), action.TargetNodes)
		if m.publisher != nil {
			m.publisher.ActionCompleted(action)
		}
	}

	m.logAction(action)
	return action
}

// logAction appends to the bounded action log, rotating out the oldest
// entries once the cap is reached.
func (m *Manager) logAction(action *models.ScalingAction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.actions = append(m.actions, action)
	if len(m.actions) > m.cfg.ActionLogSize {
		m.actions = m.actions[len(m.actions)-m.cfg.ActionLogSize:]
	}
}

// performAddNode provisions a synthetic node in the cheapest pool that has
// spare capacity and autoscaling enabled.
func (m *Manager) performAddNode(action *models.ScalingAction) error {
	m.mu.Lock()

	var target *models.NodePool
	for _, pool := range m.pools {
		if !pool.AutoScaling || !pool.HasCapacity() {
			continue
		}
		if target == nil || pool.CostPerHour < target.CostPerHour {
			target = pool
		}
	}
	if target == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w for add-node", ErrNoPoolCapacity)
	}

	nodeID := fmt.Sprintf("%s-node-%s", target.ID, models.NewUUID()[:8])
	target.CurrentSize++
	target.TargetSize = target.CurrentSize
	target.Nodes = append(target.Nodes, nodeID)
	m.nodeConfigs[nodeID] = target.DefaultConfig

	poolID := target.ID
	poolSize := target.CurrentSize
	m.mu.Unlock()

	// The new node starts nearly idle so the balancer prefers it.
	seed := models.NewNodeLoad(nodeID)
	seed.CPUUtilization = 5
	seed.MemoryUtilization = 10
	m.fleet.SeedNodeLoad(seed)

	action.PoolID = poolID
	action.TargetNodes = []string{nodeID}
	metrics.SetPoolSize(poolID, poolSize)
	return nil
}

// performRemoveNode decommissions one underutilized node whose pool stays
// at or above its minimum size afterwards.
func (m *Manager) performRemoveNode(action *models.ScalingAction) error {
	underutilized := m.fleet.GetLoadDistribution().UnderutilizedNodes
	if len(underutilized) == 0 {
		return ErrNoUnderutilizedNodes
	}

	m.mu.Lock()

	var (
		nodeID string
		target *models.NodePool
	)
	for _, candidate := range underutilized {
		for _, pool := range m.pools {
			if pool.ContainsNode(candidate) && pool.AboveMinimum() {
				nodeID, target = candidate, pool
				break
			}
		}
		if target != nil {
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return ErrNoRemovablePool
	}

	kept := target.Nodes[:0]
	for _, id := range target.Nodes {
		if id != nodeID {
			kept = append(kept, id)
		}
	}
	target.Nodes = kept
	target.CurrentSize--
	target.TargetSize = target.CurrentSize
	delete(m.nodeConfigs, nodeID)
	delete(m.utilization, nodeID)

	poolID := target.ID
	poolSize := target.CurrentSize
	m.mu.Unlock()

	m.fleet.RemoveNode(nodeID)

	action.PoolID = poolID
	action.TargetNodes = []string{nodeID}
	metrics.SetPoolSize(poolID, poolSize)
	return nil
}

// performUpgradeNode adds two CPU cores to the most loaded node's tracked
// configuration.
func (m *Manager) performUpgradeNode(action *models.ScalingAction) error {
	nodeID := m.pickTargetNode(action, true)
	if nodeID == "" {
		return ErrNoTargetNode
	}

	m.mu.Lock()
	cfg := m.nodeConfigOrDefaultLocked(nodeID)
	cfg.CPUCores += 2
	m.nodeConfigs[nodeID] = cfg
	m.mu.Unlock()

	action.TargetNodes = []string{nodeID}
	return nil
}

// performDowngradeNode removes two CPU cores from the least loaded node,
// never going below two.
func (m *Manager) performDowngradeNode(action *models.ScalingAction) error {
	nodeID := m.pickTargetNode(action, false)
	if nodeID == "" {
		return ErrNoTargetNode
	}

	m.mu.Lock()
	cfg := m.nodeConfigOrDefaultLocked(nodeID)
	if cfg.CPUCores-2 < 2 {
		m.mu.Unlock()
		return fmt.Errorf("node %s already at the minimum of 2 cores", nodeID)
	}
	cfg.CPUCores -= 2
	m.nodeConfigs[nodeID] = cfg
	m.mu.Unlock()

	action.TargetNodes = []string{nodeID}
	return nil
}

// pickTargetNode resolves the action's target: an explicit target if the
// caller named one, otherwise the most or least loaded node in the fleet.
func (m *Manager) pickTargetNode(action *models.ScalingAction, mostLoaded bool) string {
	if len(action.TargetNodes) > 0 {
		return action.TargetNodes[0]
	}

	distribution := m.fleet.GetLoadDistribution()
	var (
		nodeID string
		best   float64
	)
	for id, composite := range distribution.NodeLoads {
		better := composite > best
		if !mostLoaded {
			better = composite < best
		}
		if nodeID == "" || better || (composite == best && id < nodeID) {
			nodeID, best = id, composite
		}
	}
	return nodeID
}

func (m *Manager) nodeConfigOrDefaultLocked(nodeID string) models.NodeConfiguration {
	if cfg, exists := m.nodeConfigs[nodeID]; exists {
		return cfg
	}
	for _, pool := range m.pools {
		if pool.ContainsNode(nodeID) {
			return pool.DefaultConfig
		}
	}
	return models.NodeConfiguration{CPUCores: 4, MemoryGB: 16, DiskGB: 100, DiskType: models.DiskTypeSSD, DiskIOPS: 3000, NetworkMbps: 1000}
}

// performRedistributeLoad shifts half the queued tasks off each overloaded
// node, spreading them across the underutilized set round-robin.
func (m *Manager) performRedistributeLoad(action *models.ScalingAction) error {
	distribution := m.fleet.GetLoadDistribution()
	if len(distribution.OverloadedNodes) == 0 || len(distribution.UnderutilizedNodes) == 0 {
		return ErrNothingToBalance
	}

	queued := make(map[string]int)
	for _, load := range m.fleet.NodeLoadsSnapshot() {
		queued[load.NodeID] = load.QueuedTasks
	}

	receivers := distribution.UnderutilizedNodes
	next := 0
	var touched []string

	for _, nodeID := range distribution.OverloadedNodes {
		moved := queued[nodeID] / 2
		if moved == 0 {
			continue
		}

		remaining := queued[nodeID] - moved
		m.fleet.UpdateNodeLoad(nodeID, models.NodeLoadUpdate{QueuedTasks: &remaining})
		touched = append(touched, nodeID)

		receiver := receivers[next%len(receivers)]
		next++
		receiverQueue := queued[receiver] + moved
		queued[receiver] = receiverQueue
		m.fleet.UpdateNodeLoad(receiver, models.NodeLoadUpdate{QueuedTasks: &receiverQueue})
		touched = append(touched, receiver)
	}

	action.TargetNodes = touched
	return nil
}
