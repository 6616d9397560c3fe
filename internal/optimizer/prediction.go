package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

const trendVolatilityDiscount = 0.85

// PredictNodePerformance estimates how each candidate node would handle the
// given workload, best execution time first. Nodes without a profile get a
// low-confidence default estimate so a fresh fleet still gets answers.
func (o *Optimizer) PredictNodePerformance(nodeIDs []string, workload models.WorkloadCharacteristics) ([]models.PredictionResult, error) {
	if len(nodeIDs) == 0 {
		return nil, fmt.Errorf("no candidate nodes for prediction")
	}

	now := time.Now()
	results := make([]models.PredictionResult, 0, len(nodeIDs))

	o.mu.Lock()
	accuracy := o.modelStats.Accuracy
	for _, nodeID := range nodeIDs {
		profile, hasProfile := o.profiles[nodeID]
		result := o.predictOneLocked(nodeID, profile, hasProfile, workload, accuracy, now)
		results = append(results, result)
		o.predictions = append(o.predictions, &result)
	}
	o.prunePredictionsLocked(now)
	o.mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].PredictedExecutionTime != results[j].PredictedExecutionTime {
			return results[i].PredictedExecutionTime < results[j].PredictedExecutionTime
		}
		return results[i].NodeID < results[j].NodeID
	})
	return results, nil
}

// predictOneLocked builds one prediction. Caller holds o.mu.
func (o *Optimizer) predictOneLocked(nodeID string, profile *models.NodePerformanceProfile, hasProfile bool, workload models.WorkloadCharacteristics, accuracy float64, now time.Time) models.PredictionResult {
	features := Features{
		Complexity: workload.Complexity,
		DataSizeMB: workload.DataSizeMB,
		Priority:   workload.Priority,
	}

	var reasoning []string
	confidence := accuracy

	if hasProfile {
		features.Reliability = profile.Reliability
		features.Speed = profile.Speed
		features.Efficiency = profile.Efficiency
		features.Consistency = profile.Consistency

		reasoning = append(reasoning, fmt.Sprintf("profile from %d samples (overall %.1f)", profile.SampleCount, profile.Overall))
		if profile.Trend != models.TrendStable {
			confidence *= trendVolatilityDiscount
			reasoning = append(reasoning, fmt.Sprintf("performance trend is %s", profile.Trend))
		}
	} else {
		// No history: assume a middling node and say so.
		features.Reliability = 50
		features.Speed = 50
		features.Efficiency = 50
		features.Consistency = 50
		confidence *= 0.5
		reasoning = append(reasoning, "no performance history for node")
	}

	estimate := o.model.Predict(features)

	return models.PredictionResult{
		ID:                     models.NewUUID(),
		NodeID:                 nodeID,
		PredictedExecutionTime: estimate.ExecutionTime,
		SuccessProbability:     estimate.SuccessProbability,
		PredictedCPU:           estimate.CPUUtilization,
		PredictedMemory:        estimate.MemoryUtilization,
		Confidence:             confidence,
		Reasoning:              reasoning,
		Workload:               workload,
		GeneratedAt:            now,
	}
}

// prunePredictionsLocked drops predictions past their retention window.
// Caller holds o.mu.
func (o *Optimizer) prunePredictionsLocked(now time.Time) {
	cutoff := now.Add(-o.cfg.PredictionTTL)
	for i, p := range o.predictions {
		if !p.GeneratedAt.Before(cutoff) {
			o.predictions = o.predictions[i:]
			return
		}
	}
	o.predictions = nil
}

// GetOptimalNodeSelection picks the best nodes for a workload under the
// given criteria. Candidates below the minimum confidence are excluded, and
// an empty survivor set is a hard failure rather than a degraded answer.
func (o *Optimizer) GetOptimalNodeSelection(nodeIDs []string, workload models.WorkloadCharacteristics, criteria models.SelectionCriteria) (*models.NodeSelection, error) {
	if criteria.Count <= 0 {
		criteria.Count = 1
	}
	if criteria.Priority == "" {
		criteria.Priority = models.PrioritizeSpeed
	}

	predictions, err := o.PredictNodePerformance(nodeIDs, workload)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.PredictionResult, 0, len(predictions))
	for _, p := range predictions {
		if p.Confidence >= criteria.MinConfidence {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrConfidenceNotMet
	}

	o.mu.RLock()
	rankByPriority(eligible, criteria.Priority, o.profiles)
	selection := &models.NodeSelection{
		Rankings:    eligible,
		Criteria:    criteria,
		GeneratedAt: time.Now(),
	}

	count := criteria.Count
	if count > len(eligible) {
		count = len(eligible)
	}

	var confidenceSum float64
	for i := 0; i < count; i++ {
		selection.SelectedNodes = append(selection.SelectedNodes, eligible[i].NodeID)
		confidenceSum += eligible[i].Confidence
	}
	selection.Confidence = confidenceSum / float64(count)

	selection.Alternatives = alternativeRankings(eligible, criteria.Priority, o.profiles)
	o.mu.RUnlock()

	if o.publisher != nil {
		o.publisher.Selection(selection)
	}
	return selection, nil
}

// rankByPriority reorders predictions in place along one selection axis.
// Ties fall back to node id so repeated queries agree.
func rankByPriority(predictions []models.PredictionResult, priority models.SelectionPriority, profiles map[string]*models.NodePerformanceProfile) {
	key := func(p *models.PredictionResult) float64 {
		switch priority {
		case models.PrioritizeReliability:
			return p.SuccessProbability
		case models.PrioritizeEfficiency, models.PrioritizeCost:
			if profile, exists := profiles[p.NodeID]; exists {
				return profile.Efficiency
			}
			return 0
		default:
			// Speed: lower predicted execution time ranks higher.
			return -p.PredictedExecutionTime
		}
	}

	sort.Slice(predictions, func(i, j int) bool {
		ki, kj := key(&predictions[i]), key(&predictions[j])
		if ki != kj {
			return ki > kj
		}
		return predictions[i].NodeID < predictions[j].NodeID
	})
}

// alternativeRankings produces up to two secondary orderings of the same
// candidates along axes other than the requested one.
func alternativeRankings(predictions []models.PredictionResult, requested models.SelectionPriority, profiles map[string]*models.NodePerformanceProfile) []models.AlternativeRanking {
	axes := []models.SelectionPriority{
		models.PrioritizeSpeed,
		models.PrioritizeReliability,
		models.PrioritizeEfficiency,
	}

	var alternatives []models.AlternativeRanking
	for _, axis := range axes {
		if axis == requested || len(alternatives) == 2 {
			continue
		}

		ranked := make([]models.PredictionResult, len(predictions))
		copy(ranked, predictions)
		rankByPriority(ranked, axis, profiles)

		nodes := make([]string, len(ranked))
		for i, p := range ranked {
			nodes[i] = p.NodeID
		}
		alternatives = append(alternatives, models.AlternativeRanking{Priority: axis, Nodes: nodes})
	}
	return alternatives
}
