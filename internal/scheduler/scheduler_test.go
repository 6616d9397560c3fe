package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/pkg/config"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Balancer.Strategy = "resource-based"
	cfg.Scheduler.JitterEnabled = true
	cfg.Scheduler.JitterPattern = "steady"
	cfg.Scheduler.JitterInterval = 10 * time.Millisecond
	cfg.Scheduler.PredictionInterval = 10 * time.Millisecond
	cfg.Scheduler.TriggerInterval = 10 * time.Millisecond
	cfg.Scheduler.ForecastInterval = 10 * time.Millisecond
	cfg.Scheduler.TrainingInterval = 10 * time.Millisecond
	cfg.Scheduler.AdaptiveInterval = 10 * time.Millisecond
	cfg.Scheduler.PatternInterval = 10 * time.Millisecond
	cfg.Events.BufferSize = 100
	return cfg
}

func TestSchedulerStartStop(t *testing.T) {
	s := New(testConfig(), nil)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	// Start is idempotent while running.
	require.NoError(t, s.Start())

	time.Sleep(50 * time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())

	// Stop after stop is a no-op.
	s.Stop()
}

func TestSchedulerLoopsDriveComponents(t *testing.T) {
	s := New(testConfig(), nil)

	load := models.NewNodeLoad("qnet-node-1")
	load.CPUUtilization = 40
	load.MemoryUtilization = 30
	s.Balancer().SeedNodeLoad(load)

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(80 * time.Millisecond)

	// Jitter drifts the seeded load away from its starting point.
	after, ok := s.Balancer().GetNodeLoad("qnet-node-1")
	require.True(t, ok)
	assert.True(t, after.LastUpdated.After(load.LastUpdated) ||
		after.CPUUtilization != 40 || after.MemoryUtilization != 30)

	// The forecast loop fills the standard horizons.
	forecast := s.Autoscaler().GetCapacityForecast(7)
	require.NotNil(t, forecast)
	assert.Len(t, forecast.Points, 7)
}

func TestSchedulerWiresPredictorIntoBalancer(t *testing.T) {
	s := New(testConfig(), nil)

	load := models.NewNodeLoad("qnet-node-1")
	load.CPUUtilization = 20
	s.Balancer().SeedNodeLoad(load)

	decision, err := s.Balancer().SelectNode([]string{"qnet-node-1"}, models.TaskRequirements{
		Workload: models.WorkloadCharacteristics{TaskType: "compute"},
	})
	require.NoError(t, err)
	assert.Equal(t, "qnet-node-1", decision.SelectedNode)
}
