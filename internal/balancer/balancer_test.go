package balancer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func newTestBalancer(strategy models.Strategy) *LoadBalancer {
	return New(Config{Strategy: strategy}, nil)
}

func seedLoad(lb *LoadBalancer, nodeID string, cpu, mem float64) {
	load := models.NewNodeLoad(nodeID)
	load.CPUUtilization = cpu
	load.MemoryUtilization = mem
	load.Throughput = 5
	lb.SeedNodeLoad(load)
}

func TestSelectNodeEmptyCandidates(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)
	_, err := lb.SelectNode(nil, models.TaskRequirements{})
	assert.ErrorIs(t, err, ErrNoNodesAvailable)
}

func TestResourceBasedPrefersIdleNode(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)
	seedLoad(lb, "node-a", 10, 10)
	seedLoad(lb, "node-b", 90, 90)

	decision, err := lb.SelectNode([]string{"node-a", "node-b"}, models.TaskRequirements{})
	require.NoError(t, err)
	assert.Equal(t, "node-a", decision.SelectedNode)
	require.Len(t, decision.Alternatives, 1)
	assert.Equal(t, "node-b", decision.Alternatives[0].NodeID)
	assert.Greater(t, decision.Score, decision.Alternatives[0].Score)
}

func TestUnknownNodeGetsWarmupScore(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)
	seedLoad(lb, "node-a", 50, 50)

	decision, err := lb.SelectNode([]string{"node-a", "node-new"}, models.TaskRequirements{})
	require.NoError(t, err)
	assert.Equal(t, "node-new", decision.SelectedNode)
	assert.Equal(t, 100.0, decision.Score)
}

func TestRoundRobinRotates(t *testing.T) {
	lb := newTestBalancer(models.StrategyRoundRobin)
	candidates := []string{"node-c", "node-a", "node-b"}

	var order []string
	for i := 0; i < 4; i++ {
		decision, err := lb.SelectNode(candidates, models.TaskRequirements{})
		require.NoError(t, err)
		order = append(order, decision.SelectedNode)
	}
	assert.Equal(t, []string{"node-a", "node-b", "node-c", "node-a"}, order)
}

func TestRoundRobinScoresCarryAdjustments(t *testing.T) {
	lb := newTestBalancer(models.StrategyRoundRobin)

	flaky := models.NewNodeLoad("node-a")
	flaky.CPUUtilization = 80
	flaky.ErrorRate = 0.5
	lb.SeedNodeLoad(flaky)

	req := models.TaskRequirements{
		CPURequired: 30,
		Workload:    models.WorkloadCharacteristics{Priority: models.PriorityCritical},
	}

	decision, err := lb.SelectNode([]string{"node-a"}, req)
	require.NoError(t, err)
	assert.Equal(t, "node-a", decision.SelectedNode)
	// 50 base, halved for the error rate, halved again for cpu overcommit.
	assert.InDelta(t, 12.5, decision.Score, 0.001)
	assert.Contains(t, decision.Factors, "error_rate_discount")
	assert.Contains(t, decision.Factors, "cpu_overcommit_penalty")

	// A node never seen still gets the warmup score under round-robin.
	decision, err = lb.SelectNode([]string{"node-new"}, req)
	require.NoError(t, err)
	assert.Equal(t, 100.0, decision.Score)
}

func TestLeastConnectionsStrategy(t *testing.T) {
	lb := newTestBalancer(models.StrategyLeastConnections)

	busy := models.NewNodeLoad("node-busy")
	busy.ActiveConnections = 40
	lb.SeedNodeLoad(busy)

	quiet := models.NewNodeLoad("node-quiet")
	quiet.ActiveConnections = 2
	lb.SeedNodeLoad(quiet)

	decision, err := lb.SelectNode([]string{"node-busy", "node-quiet"}, models.TaskRequirements{})
	require.NoError(t, err)
	assert.Equal(t, "node-quiet", decision.SelectedNode)
}

func TestLeastResponseTimeStrategy(t *testing.T) {
	lb := newTestBalancer(models.StrategyLeastResponseTime)

	slow := models.NewNodeLoad("node-slow")
	slow.AvgResponseTime = 5000
	lb.SeedNodeLoad(slow)

	fast := models.NewNodeLoad("node-fast")
	fast.AvgResponseTime = 100
	lb.SeedNodeLoad(fast)

	decision, err := lb.SelectNode([]string{"node-slow", "node-fast"}, models.TaskRequirements{})
	require.NoError(t, err)
	assert.Equal(t, "node-fast", decision.SelectedNode)
}

func TestOvercommitPenaltyFlipsSelection(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)
	seedLoad(lb, "node-a", 60, 10)
	seedLoad(lb, "node-b", 40, 40)

	// Without the requirement node-a wins on raw utilization.
	decision, err := lb.SelectNode([]string{"node-a", "node-b"}, models.TaskRequirements{})
	require.NoError(t, err)
	require.Equal(t, "node-a", decision.SelectedNode)

	// A 50% cpu ask would push node-a past 100%, halving its score.
	decision, err = lb.SelectNode([]string{"node-a", "node-b"}, models.TaskRequirements{
		CPURequired: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "node-b", decision.SelectedNode)
	assert.Contains(t, decision.Factors, "cpu_overcommit_penalty")
}

func TestCriticalTaskAvoidsErrorProneNode(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)

	flaky := models.NewNodeLoad("node-flaky")
	flaky.CPUUtilization = 30
	flaky.MemoryUtilization = 30
	flaky.ErrorRate = 0.5
	lb.SeedNodeLoad(flaky)

	steady := models.NewNodeLoad("node-steady")
	steady.CPUUtilization = 40
	steady.MemoryUtilization = 40
	lb.SeedNodeLoad(steady)

	decision, err := lb.SelectNode([]string{"node-flaky", "node-steady"}, models.TaskRequirements{
		Workload: models.WorkloadCharacteristics{Priority: models.PriorityCritical},
	})
	require.NoError(t, err)
	assert.Equal(t, "node-steady", decision.SelectedNode)
}

type stubPredictor struct {
	results []models.PredictionResult
	err     error
}

func (s *stubPredictor) PredictNodePerformance(nodeIDs []string, workload models.WorkloadCharacteristics) ([]models.PredictionResult, error) {
	return s.results, s.err
}

func TestPredictiveStrategyUsesPredictor(t *testing.T) {
	lb := newTestBalancer(models.StrategyPredictive)
	seedLoad(lb, "node-a", 20, 20)
	seedLoad(lb, "node-b", 20, 20)

	lb.SetPredictor(&stubPredictor{results: []models.PredictionResult{
		{NodeID: "node-a", PredictedCPU: 90, PredictedMemory: 90, Confidence: 0.8},
		{NodeID: "node-b", PredictedCPU: 10, PredictedMemory: 10, Confidence: 0.8},
	}})

	decision, err := lb.SelectNode([]string{"node-a", "node-b"}, models.TaskRequirements{})
	require.NoError(t, err)
	assert.Equal(t, "node-b", decision.SelectedNode)
	assert.Contains(t, decision.Factors, "predicted_load")
}

func TestPredictiveStrategyFallsBack(t *testing.T) {
	lb := newTestBalancer(models.StrategyPredictive)
	seedLoad(lb, "node-a", 10, 10)
	seedLoad(lb, "node-b", 90, 90)

	lb.SetPredictor(&stubPredictor{err: errors.New("no history")})

	decision, err := lb.SelectNode([]string{"node-a", "node-b"}, models.TaskRequirements{})
	require.NoError(t, err)
	assert.Equal(t, "node-a", decision.SelectedNode)
}

func TestLoadDistributionClassifiesNodes(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)

	hot := models.NewNodeLoad("node-hot")
	hot.CPUUtilization = 95
	hot.MemoryUtilization = 90
	hot.NetworkUtilization = 90
	hot.DiskUtilization = 90
	hot.QueuedTasks = 30
	lb.SeedNodeLoad(hot)

	cold := models.NewNodeLoad("node-cold")
	cold.CPUUtilization = 5
	cold.MemoryUtilization = 5
	lb.SeedNodeLoad(cold)

	seedLoad(lb, "node-mid", 50, 50)

	dist := lb.GetLoadDistribution()
	assert.Equal(t, []string{"node-hot"}, dist.OverloadedNodes)
	assert.Equal(t, []string{"node-cold"}, dist.UnderutilizedNodes)
	assert.Len(t, dist.NodeLoads, 3)
	assert.Greater(t, dist.Variance, 0.0)

	// A node is never in both sets.
	for _, over := range dist.OverloadedNodes {
		assert.NotContains(t, dist.UnderutilizedNodes, over)
	}
}

func TestDecisionLogIsBounded(t *testing.T) {
	lb := New(Config{Strategy: models.StrategyResourceBased, DecisionLogSize: 3}, nil)
	seedLoad(lb, "node-a", 10, 10)

	for i := 0; i < 5; i++ {
		_, err := lb.SelectNode([]string{"node-a"}, models.TaskRequirements{})
		require.NoError(t, err)
	}

	decisions := lb.Decisions()
	require.Len(t, decisions, 3)
	assert.Equal(t, 3, lb.decisions.len())
	// Oldest first.
	assert.True(t, decisions[0].Timestamp.Before(decisions[2].Timestamp) ||
		decisions[0].Timestamp.Equal(decisions[2].Timestamp))
}

func TestSetStrategyRejectsUnknown(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)
	err := lb.SetStrategy(models.Strategy("bogus"), nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, models.StrategyResourceBased, lb.Strategy())
}

func TestUpdateNodeLoadNotifiesScalingCheck(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)

	var got *models.LoadDistribution
	lb.SetScalingNeedCheck(func(dist *models.LoadDistribution) {
		got = dist
	})

	cpu := 75.0
	lb.UpdateNodeLoad("node-a", models.NodeLoadUpdate{CPUUtilization: &cpu})

	require.NotNil(t, got)
	assert.Contains(t, got.NodeLoads, "node-a")
}

func TestRemoveNodeDropsSnapshot(t *testing.T) {
	lb := newTestBalancer(models.StrategyResourceBased)
	seedLoad(lb, "node-a", 10, 10)

	lb.RemoveNode("node-a")
	_, ok := lb.GetNodeLoad("node-a")
	assert.False(t, ok)
	assert.Equal(t, 0, lb.NodeCount())
}
