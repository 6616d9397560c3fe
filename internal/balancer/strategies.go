package balancer

import (
	"math"
	"sort"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

const (
	// warmupScore is given to nodes with no load record yet so fresh
	// capacity is preferred until it reports real utilization.
	warmupScore = 100.0

	roundRobinScore = 50.0
)

type scoredNode struct {
	nodeID  string
	score   float64
	factors map[string]float64
}

// scoreCandidates scores every candidate under the active strategy and
// returns them ranked. Round-robin returns candidates in lexicographic
// order so the rotation index is deterministic. Caller holds lb.mu.
func (lb *LoadBalancer) scoreCandidates(candidates []string, req models.TaskRequirements) []scoredNode {
	if lb.strategy == models.StrategyRoundRobin {
		ordered := append([]string(nil), candidates...)
		sort.Strings(ordered)
		scored := make([]scoredNode, len(ordered))
		for i, id := range ordered {
			load, known := lb.loads[id]
			if !known {
				scored[i] = scoredNode{
					nodeID:  id,
					score:   warmupScore,
					factors: map[string]float64{"warmup": warmupScore},
				}
				continue
			}
			factors := map[string]float64{"rotation": roundRobinScore}
			scored[i] = scoredNode{
				nodeID:  id,
				score:   lb.adjustScore(roundRobinScore, load, req, factors),
				factors: factors,
			}
		}
		return scored
	}

	var predictions map[string]*models.PredictionResult
	if lb.strategy == models.StrategyPredictive {
		predictions = lb.collectPredictions(candidates, req.Workload)
	}

	scored := make([]scoredNode, 0, len(candidates))
	for _, id := range candidates {
		scored = append(scored, lb.scoreOne(id, req, predictions))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].nodeID < scored[j].nodeID
	})

	return scored
}

func (lb *LoadBalancer) scoreOne(nodeID string, req models.TaskRequirements, predictions map[string]*models.PredictionResult) scoredNode {
	load, known := lb.loads[nodeID]
	if !known {
		return scoredNode{
			nodeID:  nodeID,
			score:   warmupScore,
			factors: map[string]float64{"warmup": warmupScore},
		}
	}

	factors := make(map[string]float64)
	var base float64

	switch lb.strategy {
	case models.StrategyLeastConnections:
		base = math.Max(0, 100-2*float64(load.ActiveConnections))
		factors["connections"] = base
	case models.StrategyLeastResponseTime:
		base = math.Max(0, 100-load.AvgResponseTime/100)
		factors["response_time"] = base
	case models.StrategyPredictive:
		base = lb.predictiveScore(nodeID, load, predictions, factors)
	default:
		base = lb.resourceScore(load, factors)
	}

	score := lb.adjustScore(base, load, req, factors)

	return scoredNode{nodeID: nodeID, score: score, factors: factors}
}

// resourceScore is the default weighted multi-resource score.
func (lb *LoadBalancer) resourceScore(load *models.NodeLoad, factors map[string]float64) float64 {
	cpuScore := clamp(100 - load.CPUUtilization)
	memScore := clamp(100 - load.MemoryUtilization)
	respScore := clamp(100 - load.AvgResponseTime/50)
	thrScore := math.Min(100, load.Throughput*10)

	factors["cpu"] = cpuScore
	factors["memory"] = memScore
	factors["response_time"] = respScore
	factors["throughput"] = thrScore

	return cpuScore*lb.params.CPUWeight +
		memScore*lb.params.MemoryWeight +
		respScore*lb.params.ResponseTimeWeight +
		thrScore*lb.params.ThroughputWeight
}

// predictiveScore inverts the optimizer's predicted load for the node.
// Without a usable prediction it degrades to resource-based scoring.
func (lb *LoadBalancer) predictiveScore(nodeID string, load *models.NodeLoad, predictions map[string]*models.PredictionResult, factors map[string]float64) float64 {
	if p, ok := predictions[nodeID]; ok {
		predicted := clamp(100 - p.PredictedLoad())
		factors["predicted_load"] = p.PredictedLoad()
		factors["prediction_confidence"] = p.Confidence
		return predicted
	}
	return lb.resourceScore(load, factors)
}

func (lb *LoadBalancer) collectPredictions(candidates []string, workload models.WorkloadCharacteristics) map[string]*models.PredictionResult {
	if lb.predictor == nil {
		return nil
	}

	results, err := lb.predictor.PredictNodePerformance(candidates, workload)
	if err != nil {
		logger.Warnf("Predictive scoring unavailable, falling back to resource-based: %v", err)
		return nil
	}

	predictions := make(map[string]*models.PredictionResult, len(results))
	for i := range results {
		predictions[results[i].NodeID] = &results[i]
	}
	return predictions
}

// adjustScore applies the strategy-independent post adjustments: error-rate
// discount for critical tasks and over-commit penalties when the task's
// requirement would push a resource past 100%.
func (lb *LoadBalancer) adjustScore(score float64, load *models.NodeLoad, req models.TaskRequirements, factors map[string]float64) float64 {
	if req.Workload.Priority == models.PriorityCritical {
		score *= 1 - load.ErrorRate
		factors["error_rate_discount"] = load.ErrorRate
	}

	if load.CPUUtilization+req.CPURequired > 100 {
		score *= 0.5
		factors["cpu_overcommit_penalty"] = 0.5
	}
	if load.MemoryUtilization+req.MemoryRequired > 100 {
		score *= 0.3
		factors["memory_overcommit_penalty"] = 0.3
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
