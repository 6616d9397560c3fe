package models

import "time"

type Strategy string

const (
	StrategyRoundRobin        Strategy = "round-robin"
	StrategyLeastConnections  Strategy = "least-connections"
	StrategyLeastResponseTime Strategy = "least-response-time"
	StrategyResourceBased     Strategy = "resource-based"
	StrategyPredictive        Strategy = "predictive"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyRoundRobin, StrategyLeastConnections, StrategyLeastResponseTime,
		StrategyResourceBased, StrategyPredictive:
		return true
	}
	return false
}

// StrategyParams holds the tunable weights of the resource-based strategy.
type StrategyParams struct {
	CPUWeight          float64 `json:"cpu_weight"`
	MemoryWeight       float64 `json:"memory_weight"`
	ResponseTimeWeight float64 `json:"response_time_weight"`
	ThroughputWeight   float64 `json:"throughput_weight"`
}

func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		CPUWeight:          0.3,
		MemoryWeight:       0.3,
		ResponseTimeWeight: 0.2,
		ThroughputWeight:   0.2,
	}
}

// NodeScore is one ranked candidate within a decision.
type NodeScore struct {
	NodeID string  `json:"node_id"`
	Score  float64 `json:"score"`
}

// LoadBalancingDecision is the immutable record of one selection event.
type LoadBalancingDecision struct {
	ID           string             `json:"id"`
	SelectedNode string             `json:"selected_node"`
	Strategy     Strategy           `json:"strategy"`
	Score        float64            `json:"score"`
	Alternatives []NodeScore        `json:"alternatives"`
	Factors      map[string]float64 `json:"factors,omitempty"`
	TaskPriority TaskPriority       `json:"task_priority"`
	Timestamp    time.Time          `json:"timestamp"`
}

// LoadDistribution is the fleet-wide composite load view. It is the only
// input the autoscaler needs from the balancer.
type LoadDistribution struct {
	Timestamp          time.Time          `json:"timestamp"`
	NodeLoads          map[string]float64 `json:"node_loads"`
	AverageLoad        float64            `json:"average_load"`
	Variance           float64            `json:"variance"`
	OverloadedNodes    []string           `json:"overloaded_nodes"`
	UnderutilizedNodes []string           `json:"underutilized_nodes"`
}

func (d *LoadDistribution) NodeCount() int {
	return len(d.NodeLoads)
}
