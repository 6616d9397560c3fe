package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/internal/balancer"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func TestJitterTickKeepsLoadsBounded(t *testing.T) {
	fleet := balancer.New(balancer.Config{Strategy: models.StrategyResourceBased}, nil)

	seed := models.NewNodeLoad("node-a")
	seed.CPUUtilization = 99
	seed.MemoryUtilization = 1
	seed.AvgResponseTime = 5
	fleet.SeedNodeLoad(seed)
	fleet.SeedNodeLoad(models.NewNodeLoad("node-b"))

	j := NewJitter(fleet, &SteadyPattern{})
	for i := 0; i < 50; i++ {
		j.Tick()
	}

	loads := fleet.NodeLoadsSnapshot()
	require.Len(t, loads, 2)
	for _, load := range loads {
		assert.GreaterOrEqual(t, load.CPUUtilization, 0.0)
		assert.LessOrEqual(t, load.CPUUtilization, 100.0)
		assert.GreaterOrEqual(t, load.MemoryUtilization, 0.0)
		assert.LessOrEqual(t, load.MemoryUtilization, 100.0)
		assert.GreaterOrEqual(t, load.ActiveConnections, 0)
		assert.GreaterOrEqual(t, load.QueuedTasks, 0)
		assert.GreaterOrEqual(t, load.AvgResponseTime, 1.0)
	}
}

func TestJitterTickChangesLoads(t *testing.T) {
	fleet := balancer.New(balancer.Config{Strategy: models.StrategyResourceBased}, nil)

	seed := models.NewNodeLoad("node-a")
	seed.CPUUtilization = 50
	seed.MemoryUtilization = 50
	seed.AvgResponseTime = 200
	fleet.SeedNodeLoad(seed)

	j := NewJitter(fleet, nil)
	j.Tick()

	after, ok := fleet.GetNodeLoad("node-a")
	require.True(t, ok)
	changed := after.CPUUtilization != 50 ||
		after.MemoryUtilization != 50 ||
		after.AvgResponseTime != 200
	assert.True(t, changed, "expected at least one metric to drift")
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"daily", "daily"},
		{"weekly", "weekly"},
		{"sine", "sine"},
		{"steady", "steady"},
		{"bogus", "steady"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePattern(tt.name).Name())
	}
}

func TestSteadyPatternPassesThrough(t *testing.T) {
	p := &SteadyPattern{}
	assert.Equal(t, 42.0, p.Apply(42))
}

func TestSinePatternStaysWithinBounds(t *testing.T) {
	p := &SineWavePattern{}
	for base := 0.0; base <= 100; base += 10 {
		v := p.Apply(base)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}
