package autoscaler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func seedHistory(m *Manager, nodeID string, loads ...models.NodeLoad) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range loads {
		loads[i].NodeID = nodeID
	}
	m.utilization[nodeID] = loads
}

func TestManager_GenerateOptimizations_CPUDowngrade(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	pool := testPool("pool-1", 1, 5, 1)
	require.NoError(t, m.AddNodePool(pool))
	nodeID := pool.Nodes[0]

	seedHistory(m, nodeID,
		models.NodeLoad{CPUUtilization: 10},
		models.NodeLoad{CPUUtilization: 20},
		models.NodeLoad{CPUUtilization: 15},
	)

	optimizations := m.GenerateOptimizations()

	var cpuOpt *models.ResourceOptimization
	for i := range optimizations {
		if optimizations[i].Recommended.CPUCores != optimizations[i].Current.CPUCores {
			cpuOpt = &optimizations[i]
		}
	}
	require.NotNil(t, cpuOpt, "expected a CPU recommendation")
	assert.Equal(t, 8, cpuOpt.Current.CPUCores)
	assert.Equal(t, 6, cpuOpt.Recommended.CPUCores)
	assert.False(t, cpuOpt.Expired(time.Now()))
	assert.True(t, cpuOpt.Expired(time.Now().Add(25*time.Hour)))
}

func TestManager_GenerateOptimizations_CPUUpgradeOnPeak(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	pool := testPool("pool-1", 1, 5, 1)
	require.NoError(t, m.AddNodePool(pool))
	nodeID := pool.Nodes[0]

	seedHistory(m, nodeID,
		models.NodeLoad{CPUUtilization: 50},
		models.NodeLoad{CPUUtilization: 92},
		models.NodeLoad{CPUUtilization: 60},
	)

	optimizations := m.GenerateOptimizations()

	require.NotEmpty(t, optimizations)
	var found bool
	for _, opt := range optimizations {
		if opt.Recommended.CPUCores == 10 {
			found = true
			assert.Greater(t, opt.ExpectedBenefit.PerformanceDelta, 0.0)
		}
	}
	assert.True(t, found, "expected a +2 core recommendation")
}

func TestManager_GenerateOptimizations_CPUFloor(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	pool := testPool("pool-1", 1, 5, 1)
	pool.DefaultConfig.CPUCores = 2
	pool.DefaultConfig.MemoryGB = 64
	require.NoError(t, m.AddNodePool(pool))

	seedHistory(m, pool.Nodes[0], models.NodeLoad{CPUUtilization: 5, MemoryUtilization: 60})

	for _, opt := range m.GenerateOptimizations() {
		assert.GreaterOrEqual(t, opt.Recommended.CPUCores, 2)
	}
}

func TestManager_GenerateOptimizations_MemoryDownsize(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	pool := testPool("pool-1", 1, 5, 1)
	require.NoError(t, m.AddNodePool(pool))

	seedHistory(m, pool.Nodes[0], models.NodeLoad{CPUUtilization: 50, MemoryUtilization: 20})

	var found bool
	for _, opt := range m.GenerateOptimizations() {
		if opt.Recommended.MemoryGB == 24 {
			found = true
			assert.GreaterOrEqual(t, opt.Recommended.MemoryGB, 8)
		}
	}
	assert.True(t, found, "expected a -8 GB memory recommendation")
}

func TestManager_GenerateOptimizations_DiskUpgrade(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	pool := testPool("pool-1", 1, 5, 1)
	pool.DefaultConfig.DiskType = models.DiskTypeHDD
	pool.DefaultConfig.DiskIOPS = 500
	require.NoError(t, m.AddNodePool(pool))

	seedHistory(m, pool.Nodes[0], models.NodeLoad{CPUUtilization: 50, MemoryUtilization: 50, DiskUtilization: 85})

	var found bool
	for _, opt := range m.GenerateOptimizations() {
		if opt.Recommended.DiskType == models.DiskTypeSSD {
			found = true
			assert.Equal(t, 5000, opt.Recommended.DiskIOPS)
		}
	}
	assert.True(t, found, "expected an HDD to SSD recommendation")
}

func TestManager_GenerateOptimizations_NoHistoryNoOutput(t *testing.T) {
	m := newTestManager(newTestFleet())
	assert.Empty(t, m.GenerateOptimizations())
}

func TestManager_GenerateCapacityForecast(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	pool := testPool("pool-1", 2, 20, 4)
	require.NoError(t, m.AddNodePool(pool))
	for _, nodeID := range pool.Nodes {
		reportLoad(fleet, nodeID, 60, 60)
	}

	forecast := m.GenerateCapacityForecast(7)

	require.Len(t, forecast.Points, 7)
	assert.Equal(t, 7, forecast.HorizonDays)
	assert.NotEmpty(t, forecast.Recommendations)

	for i, point := range forecast.Points {
		assert.Equal(t, i+1, point.Day)
		assert.GreaterOrEqual(t, point.RequiredNodes, 1)
		assert.Greater(t, point.RequiredResources.CPUCores, 0)
		assert.GreaterOrEqual(t, point.Confidence, 0.5-0.001)
		assert.LessOrEqual(t, point.Confidence, 0.9+0.001)
	}

	// Confidence decays across the horizon.
	first := forecast.Points[0].Confidence
	last := forecast.Points[len(forecast.Points)-1].Confidence
	assert.Greater(t, first, last)
	assert.InDelta(t, 0.9, first, 0.01)
	assert.InDelta(t, 0.5, last, 0.01)
}

func TestManager_GetCapacityForecast_CachesUntilStale(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	reportLoad(fleet, "n1", 50, 50)

	first := m.GetCapacityForecast(7)
	second := m.GetCapacityForecast(7)
	assert.Same(t, first, second)

	m.mu.Lock()
	m.forecasts[7].GeneratedAt = time.Now().Add(-2 * time.Hour)
	m.mu.Unlock()

	third := m.GetCapacityForecast(7)
	assert.NotSame(t, first, third)
}

func TestManager_RefreshForecasts_CoversFixedHorizons(t *testing.T) {
	fleet := newTestFleet()
	m := newTestManager(fleet)
	reportLoad(fleet, "n1", 50, 50)

	m.RefreshForecasts()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, horizon := range []int{7, 30, 90} {
		assert.Contains(t, m.forecasts, horizon)
	}
}
