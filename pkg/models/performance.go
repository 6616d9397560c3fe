package models

import "time"

// PerformanceMetric is one observed execution sample on a node.
type PerformanceMetric struct {
	ID                 string                  `json:"id"`
	NodeID             string                  `json:"node_id"`
	Timestamp          time.Time               `json:"timestamp"`
	ExecutionTime      float64                 `json:"execution_time_ms"`
	Throughput         float64                 `json:"throughput"`
	ErrorRate          float64                 `json:"error_rate"`
	CPUUtilization     float64                 `json:"cpu_utilization"`
	MemoryUtilization  float64                 `json:"memory_utilization"`
	NetworkUtilization float64                 `json:"network_utilization"`
	DiskUtilization    float64                 `json:"disk_utilization"`
	ResponseTime       float64                 `json:"response_time_ms"`
	QueueTime          float64                 `json:"queue_time_ms"`
	SuccessRate        float64                 `json:"success_rate"`
	Workload           WorkloadCharacteristics `json:"workload"`
}

// AvgResourceUtilization averages the four per-resource utilization figures.
func (m *PerformanceMetric) AvgResourceUtilization() float64 {
	return (m.CPUUtilization + m.MemoryUtilization + m.NetworkUtilization + m.DiskUtilization) / 4
}

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
	TrendStable    TrendDirection = "stable"
)

// NodePerformanceProfile is the derived characterization of a node, rebuilt
// from its recent metric window on every new sample.
type NodePerformanceProfile struct {
	NodeID           string         `json:"node_id"`
	Reliability      float64        `json:"reliability"`
	Speed            float64        `json:"speed"`
	Efficiency       float64        `json:"efficiency"`
	Consistency      float64        `json:"consistency"`
	Overall          float64        `json:"overall"`
	Trend            TrendDirection `json:"trend"`
	Strengths        []string       `json:"strengths"`
	Weaknesses       []string       `json:"weaknesses"`
	OptimalWorkloads []string       `json:"optimal_workloads"`
	SampleCount      int            `json:"sample_count"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// PredictionResult is the answer to one performance query for one node.
type PredictionResult struct {
	ID                     string                  `json:"id"`
	NodeID                 string                  `json:"node_id"`
	PredictedExecutionTime float64                 `json:"predicted_execution_time_ms"`
	SuccessProbability     float64                 `json:"success_probability"`
	PredictedCPU           float64                 `json:"predicted_cpu"`
	PredictedMemory        float64                 `json:"predicted_memory"`
	Confidence             float64                 `json:"confidence"`
	Reasoning              []string                `json:"reasoning"`
	Workload               WorkloadCharacteristics `json:"workload"`
	GeneratedAt            time.Time               `json:"generated_at"`
}

// PredictedLoad collapses the predicted resource usage into one number so
// the predictive balancing strategy can invert it into a score.
func (p *PredictionResult) PredictedLoad() float64 {
	return (p.PredictedCPU + p.PredictedMemory) / 2
}

type SelectionPriority string

const (
	PrioritizeSpeed       SelectionPriority = "speed"
	PrioritizeReliability SelectionPriority = "reliability"
	PrioritizeEfficiency  SelectionPriority = "efficiency"
	PrioritizeCost        SelectionPriority = "cost"
)

// SelectionCriteria drives an optimal-node-selection query.
type SelectionCriteria struct {
	Count         int               `json:"count"`
	MinConfidence float64           `json:"min_confidence"`
	Priority      SelectionPriority `json:"priority"`
}

// AlternativeRanking is a secondary ranking of the same candidates under a
// different priority axis.
type AlternativeRanking struct {
	Priority SelectionPriority `json:"priority"`
	Nodes    []string          `json:"nodes"`
}

// NodeSelection is the result of an optimal-node-selection query.
type NodeSelection struct {
	SelectedNodes []string             `json:"selected_nodes"`
	Rankings      []PredictionResult   `json:"rankings"`
	Alternatives  []AlternativeRanking `json:"alternatives"`
	Confidence    float64              `json:"confidence"`
	Criteria      SelectionCriteria    `json:"criteria"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

type PatternType string

const (
	PatternPeakHour          PatternType = "peak-hour"
	PatternWorkloadDominance PatternType = "workload-dominance"
	PatternHighUtilization   PatternType = "high-utilization"
)

// ExecutionPattern is a detected recurring condition, upserted by id.
type ExecutionPattern struct {
	ID              string      `json:"id"`
	Type            PatternType `json:"type"`
	Description     string      `json:"description"`
	Frequency       float64     `json:"frequency"`
	Impact          string      `json:"impact"`
	Recommendations []string    `json:"recommendations"`
	DetectedAt      time.Time   `json:"detected_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ModelStats tracks the health of the prediction model.
type ModelStats struct {
	Accuracy        float64   `json:"accuracy"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	TrainingSamples int       `json:"training_samples"`
	LastTrained     time.Time `json:"last_trained,omitempty"`
}

type Convergence string

const (
	Converging Convergence = "converging"
	Converged  Convergence = "converged"
	Diverging  Convergence = "diverging"
)

// AlgorithmState is the adaptive-tuning score of one selection algorithm.
type AlgorithmState struct {
	Name        string      `json:"name"`
	Score       float64     `json:"score"`
	Convergence Convergence `json:"convergence"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AdaptationRecord is one adaptive-tuning history entry.
type AdaptationRecord struct {
	Algorithm   string      `json:"algorithm"`
	Delta       float64     `json:"delta"`
	Convergence Convergence `json:"convergence"`
	Timestamp   time.Time   `json:"timestamp"`
}

// OptimizationStats is the operator-facing summary of the optimizer.
type OptimizationStats struct {
	Model            ModelStats                 `json:"model"`
	Algorithms       []AlgorithmState           `json:"algorithms"`
	ProfileCount     int                        `json:"profile_count"`
	MetricCount      int                        `json:"metric_count"`
	PatternCount     int                        `json:"pattern_count"`
	RecentAdaptation []AdaptationRecord         `json:"recent_adaptation,omitempty"`
	Profiles         map[string]float64         `json:"profiles,omitempty"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}
