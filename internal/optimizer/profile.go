package optimizer

import (
	"math"
	"sort"
	"time"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

const (
	strengthThreshold = 85
	weaknessThreshold = 60

	optimalWorkloadMinSamples = 5
	optimalWorkloadMinSuccess = 0.90

	trendShiftRatio = 0.05
)

// rebuildProfileLocked recomputes a node's profile from its most recent
// samples. Caller holds o.mu. Returns nil when the node has no samples.
func (o *Optimizer) rebuildProfileLocked(nodeID string) *models.NodePerformanceProfile {
	nodeSamples := o.byNode[nodeID]
	if len(nodeSamples) == 0 {
		delete(o.profiles, nodeID)
		return nil
	}

	window := nodeSamples
	if len(window) > o.cfg.ProfileWindow {
		window = window[len(window)-o.cfg.ProfileWindow:]
	}

	profile := &models.NodePerformanceProfile{
		NodeID:      nodeID,
		Reliability: reliabilityScore(window),
		Speed:       speedScore(window),
		Efficiency:  efficiencyScore(window),
		Consistency: consistencyScore(window),
		Trend:       executionTrend(window),
		SampleCount: len(window),
		UpdatedAt:   time.Now(),
	}

	profile.Overall = 0.3*profile.Reliability +
		0.25*profile.Speed +
		0.25*profile.Efficiency +
		0.2*profile.Consistency

	profile.Strengths, profile.Weaknesses = classifyAxes(profile)
	profile.OptimalWorkloads = optimalWorkloads(window)

	o.profiles[nodeID] = profile
	return profile
}

func reliabilityScore(samples []*models.PerformanceMetric) float64 {
	var successSum, errorSum float64
	for _, s := range samples {
		successSum += s.SuccessRate
		errorSum += s.ErrorRate
	}
	n := float64(len(samples))
	return clampScore(successSum/n*100 - errorSum/n*50)
}

func speedScore(samples []*models.PerformanceMetric) float64 {
	var execSum, respSum float64
	for _, s := range samples {
		execSum += s.ExecutionTime
		respSum += s.ResponseTime
	}
	n := float64(len(samples))

	execScore := math.Max(0, 100-execSum/n/1000)
	respScore := math.Max(0, 100-respSum/n/100)
	return (execScore + respScore) / 2
}

func efficiencyScore(samples []*models.PerformanceMetric) float64 {
	var throughputSum, utilSum float64
	for _, s := range samples {
		throughputSum += s.Throughput
		utilSum += s.AvgResourceUtilization()
	}
	n := float64(len(samples))

	throughputScore := math.Min(100, throughputSum/n*10)
	utilScore := 100 - utilSum/n
	return (throughputScore + utilScore) / 2
}

// consistencyScore inverts the coefficient of variation of execution time.
// Fewer than two samples cannot vary, so the score is 100.
func consistencyScore(samples []*models.PerformanceMetric) float64 {
	if len(samples) < 2 {
		return 100
	}

	var sum float64
	for _, s := range samples {
		sum += s.ExecutionTime
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return 100
	}

	var variance float64
	for _, s := range samples {
		d := s.ExecutionTime - mean
		variance += d * d
	}
	variance /= float64(len(samples))

	cov := math.Sqrt(variance) / mean
	return clampScore(100 - cov*100)
}

// executionTrend compares the mean execution time of the older half of the
// window against the newer half. A shift of at least 5% in either direction
// counts as a trend.
func executionTrend(samples []*models.PerformanceMetric) models.TrendDirection {
	if len(samples) < 2 {
		return models.TrendStable
	}

	mid := len(samples) / 2
	older := meanExecution(samples[:mid])
	newer := meanExecution(samples[mid:])

	if older == 0 {
		return models.TrendStable
	}

	switch {
	case newer < older*(1-trendShiftRatio):
		return models.TrendImproving
	case newer > older*(1+trendShiftRatio):
		return models.TrendDegrading
	default:
		return models.TrendStable
	}
}

func meanExecution(samples []*models.PerformanceMetric) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.ExecutionTime
	}
	return sum / float64(len(samples))
}

func classifyAxes(p *models.NodePerformanceProfile) (strengths, weaknesses []string) {
	axes := []struct {
		name  string
		score float64
	}{
		{"reliability", p.Reliability},
		{"speed", p.Speed},
		{"efficiency", p.Efficiency},
		{"consistency", p.Consistency},
	}

	for _, axis := range axes {
		switch {
		case axis.score > strengthThreshold:
			strengths = append(strengths, axis.name)
		case axis.score < weaknessThreshold:
			weaknesses = append(weaknesses, axis.name)
		}
	}
	return strengths, weaknesses
}

// optimalWorkloads collects the workload types a node handles well: at least
// five samples of that type with a 90%+ average success rate.
func optimalWorkloads(samples []*models.PerformanceMetric) []string {
	type tally struct {
		count      int
		successSum float64
	}

	byType := make(map[string]*tally)
	for _, s := range samples {
		taskType := s.Workload.TaskType
		if taskType == "" {
			continue
		}
		t, exists := byType[taskType]
		if !exists {
			t = &tally{}
			byType[taskType] = t
		}
		t.count++
		t.successSum += s.SuccessRate
	}

	var optimal []string
	for taskType, t := range byType {
		if t.count >= optimalWorkloadMinSamples && t.successSum/float64(t.count) >= optimalWorkloadMinSuccess {
			optimal = append(optimal, taskType)
		}
	}
	sort.Strings(optimal)
	return optimal
}
