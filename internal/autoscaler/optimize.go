package autoscaler

import (
	"fmt"
	"sort"
	"time"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

const (
	cpuDowngradeAvg  = 30.0
	cpuUpgradePeak   = 85.0
	memoryDowngrade  = 40.0
	diskUpgradeAvg   = 70.0
	optimizationTTL  = 24 * time.Hour
	minCPUCores      = 2
	minMemoryGB      = 8
	upgradedDiskIOPS = 5000
)

// GenerateOptimizations proposes per-node configuration changes from each
// node's tracked utilization history. Nodes without history are skipped.
func (m *Manager) GenerateOptimizations() []models.ResourceOptimization {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var optimizations []models.ResourceOptimization

	nodeIDs := make([]string, 0, len(m.utilization))
	for nodeID := range m.utilization {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Strings(nodeIDs)

	for _, nodeID := range nodeIDs {
		history := m.utilization[nodeID]
		if len(history) == 0 {
			continue
		}

		current := m.nodeConfigOrDefaultLocked(nodeID)
		stats := summarizeUtilization(history)

		if opt := cpuOptimization(nodeID, current, stats, now); opt != nil {
			optimizations = append(optimizations, *opt)
		}
		if opt := memoryOptimization(nodeID, current, stats, now); opt != nil {
			optimizations = append(optimizations, *opt)
		}
		if opt := diskOptimization(nodeID, current, stats, now); opt != nil {
			optimizations = append(optimizations, *opt)
		}
	}
	return optimizations
}

type utilizationStats struct {
	avgCPU     float64
	peakCPU    float64
	avgMemory  float64
	avgDisk    float64
	sampleSize int
}

func summarizeUtilization(history []models.NodeLoad) utilizationStats {
	stats := utilizationStats{sampleSize: len(history)}
	for _, load := range history {
		stats.avgCPU += load.CPUUtilization
		stats.avgMemory += load.MemoryUtilization
		stats.avgDisk += load.DiskUtilization
		if load.CPUUtilization > stats.peakCPU {
			stats.peakCPU = load.CPUUtilization
		}
	}
	n := float64(len(history))
	stats.avgCPU /= n
	stats.avgMemory /= n
	stats.avgDisk /= n
	return stats
}

func cpuOptimization(nodeID string, current models.NodeConfiguration, stats utilizationStats, now time.Time) *models.ResourceOptimization {
	recommended := current

	switch {
	case stats.peakCPU > cpuUpgradePeak:
		recommended.CPUCores = current.CPUCores + 2
		return newOptimization(nodeID, current, recommended, now,
			fmt.Sprintf("peak CPU utilization %.1f%% exceeds %.0f%%", stats.peakCPU, cpuUpgradePeak),
			models.BenefitEstimate{PerformanceDelta: 15, CostDelta: 12, EfficiencyDelta: 5}, 0.8)
	case stats.avgCPU < cpuDowngradeAvg && current.CPUCores-2 >= minCPUCores:
		recommended.CPUCores = current.CPUCores - 2
		return newOptimization(nodeID, current, recommended, now,
			fmt.Sprintf("average CPU utilization %.1f%% below %.0f%%", stats.avgCPU, cpuDowngradeAvg),
			models.BenefitEstimate{PerformanceDelta: -3, CostDelta: -12, EfficiencyDelta: 10}, 0.75)
	}
	return nil
}

func memoryOptimization(nodeID string, current models.NodeConfiguration, stats utilizationStats, now time.Time) *models.ResourceOptimization {
	if stats.avgMemory >= memoryDowngrade || current.MemoryGB-8 < minMemoryGB {
		return nil
	}

	recommended := current
	recommended.MemoryGB = current.MemoryGB - 8
	return newOptimization(nodeID, current, recommended, now,
		fmt.Sprintf("average memory utilization %.1f%% below %.0f%%", stats.avgMemory, memoryDowngrade),
		models.BenefitEstimate{PerformanceDelta: -2, CostDelta: -8, EfficiencyDelta: 8}, 0.75)
}

func diskOptimization(nodeID string, current models.NodeConfiguration, stats utilizationStats, now time.Time) *models.ResourceOptimization {
	if current.DiskType != models.DiskTypeHDD || stats.avgDisk <= diskUpgradeAvg {
		return nil
	}

	recommended := current
	recommended.DiskType = models.DiskTypeSSD
	recommended.DiskIOPS = upgradedDiskIOPS
	return newOptimization(nodeID, current, recommended, now,
		fmt.Sprintf("average disk utilization %.1f%% above %.0f%% on HDD", stats.avgDisk, diskUpgradeAvg),
		models.BenefitEstimate{PerformanceDelta: 25, CostDelta: 8, EfficiencyDelta: 15}, 0.85)
}

func newOptimization(nodeID string, current, recommended models.NodeConfiguration, now time.Time, reason string, benefit models.BenefitEstimate, confidence float64) *models.ResourceOptimization {
	return &models.ResourceOptimization{
		ID:              models.NewUUID(),
		NodeID:          nodeID,
		Current:         current,
		Recommended:     recommended,
		ExpectedBenefit: benefit,
		Confidence:      confidence,
		Reason:          reason,
		GeneratedAt:     now,
		ValidUntil:      now.Add(optimizationTTL),
	}
}
