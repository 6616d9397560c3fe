package optimizer

import (
	"fmt"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

const (
	peakHourVolumeShare    = 0.80
	workloadDominanceShare = 0.30
	highUtilizationAvg     = 80
)

// DetectPatterns scans the most recent samples for recurring conditions and
// upserts what it finds, keyed by pattern id so repeated detections refresh
// rather than duplicate. Driven by the scheduler's 2-minute timer.
func (o *Optimizer) DetectPatterns() {
	o.mu.Lock()
	defer o.mu.Unlock()

	window := o.samples
	if len(window) > o.cfg.PatternScanSize {
		window = window[len(window)-o.cfg.PatternScanSize:]
	}
	if len(window) == 0 {
		return
	}

	now := time.Now()
	o.detectPeakHourLocked(window, now)
	o.detectWorkloadDominanceLocked(window, now)
	o.detectHighUtilizationLocked(window, now)
}

// detectPeakHourLocked flags the busiest hour of day when it holds a
// dominant share of the scanned volume.
func (o *Optimizer) detectPeakHourLocked(window []*models.PerformanceMetric, now time.Time) {
	byHour := make(map[int]int)
	for _, s := range window {
		byHour[s.Timestamp.Hour()]++
	}

	peakHour, peakCount := -1, 0
	for hour, count := range byHour {
		if count > peakCount || (count == peakCount && hour < peakHour) {
			peakHour, peakCount = hour, count
		}
	}

	share := float64(peakCount) / float64(len(window))
	if share < peakHourVolumeShare {
		return
	}

	o.upsertPatternLocked(&models.ExecutionPattern{
		ID:          fmt.Sprintf("peak-hour-%02d", peakHour),
		Type:        models.PatternPeakHour,
		Description: fmt.Sprintf("%.0f%% of recent executions fall in hour %02d:00", share*100, peakHour),
		Frequency:   share,
		Impact:      "load concentrates in a narrow daily window",
		Recommendations: []string{
			"pre-scale the fleet before the peak hour",
			"schedule deferrable work outside the peak window",
		},
	}, now)
}

// detectWorkloadDominanceLocked flags any workload type holding more than a
// 30% share of the scanned samples.
func (o *Optimizer) detectWorkloadDominanceLocked(window []*models.PerformanceMetric, now time.Time) {
	byType := make(map[string]int)
	for _, s := range window {
		if s.Workload.TaskType != "" {
			byType[s.Workload.TaskType]++
		}
	}

	for taskType, count := range byType {
		share := float64(count) / float64(len(window))
		if share <= workloadDominanceShare {
			continue
		}

		o.upsertPatternLocked(&models.ExecutionPattern{
			ID:          fmt.Sprintf("workload-dominance-%s", taskType),
			Type:        models.PatternWorkloadDominance,
			Description: fmt.Sprintf("workload type %q accounts for %.0f%% of recent executions", taskType, share*100),
			Frequency:   share,
			Impact:      "fleet performance is coupled to a single workload type",
			Recommendations: []string{
				fmt.Sprintf("tune node configurations for %q workloads", taskType),
				"route the dominant type to its optimal nodes",
			},
		}, now)
	}
}

// detectHighUtilizationLocked flags each resource axis whose average stays
// above the threshold across the scanned samples. A single pinned resource
// is a pattern even when the others sit idle.
func (o *Optimizer) detectHighUtilizationLocked(window []*models.PerformanceMetric, now time.Time) {
	resources := []struct {
		name  string
		value func(*models.PerformanceMetric) float64
	}{
		{"cpu", func(s *models.PerformanceMetric) float64 { return s.CPUUtilization }},
		{"memory", func(s *models.PerformanceMetric) float64 { return s.MemoryUtilization }},
		{"network", func(s *models.PerformanceMetric) float64 { return s.NetworkUtilization }},
		{"disk", func(s *models.PerformanceMetric) float64 { return s.DiskUtilization }},
	}

	for _, resource := range resources {
		var utilSum float64
		for _, s := range window {
			utilSum += resource.value(s)
		}
		avg := utilSum / float64(len(window))
		if avg <= highUtilizationAvg {
			continue
		}

		o.upsertPatternLocked(&models.ExecutionPattern{
			ID:          fmt.Sprintf("high-utilization-%s", resource.name),
			Type:        models.PatternHighUtilization,
			Description: fmt.Sprintf("average %s utilization is %.1f%% across recent executions", resource.name, avg),
			Frequency:   avg / 100,
			Impact:      fmt.Sprintf("sustained %s pressure leaves no headroom for load spikes", resource.name),
			Recommendations: []string{
				"add capacity or raise pool maximums",
				"review scaling trigger thresholds",
			},
		}, now)
	}
}

// upsertPatternLocked refreshes an existing pattern in place or records a
// new one. Caller holds o.mu.
func (o *Optimizer) upsertPatternLocked(pattern *models.ExecutionPattern, now time.Time) {
	if existing, exists := o.patterns[pattern.ID]; exists {
		existing.Description = pattern.Description
		existing.Frequency = pattern.Frequency
		existing.Impact = pattern.Impact
		existing.Recommendations = pattern.Recommendations
		existing.UpdatedAt = now
		return
	}

	pattern.DetectedAt = now
	pattern.UpdatedAt = now
	o.patterns[pattern.ID] = pattern
	logger.Debugf("Detected execution pattern %s (%s)", pattern.ID, pattern.Type)
}
