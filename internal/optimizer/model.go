package optimizer

import (
	"math"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// Features is the input vector for a performance prediction: the node's
// current sub-scores plus the workload shape being placed.
type Features struct {
	Reliability float64
	Speed       float64
	Efficiency  float64
	Consistency float64
	Complexity  float64
	DataSizeMB  float64
	Priority    models.TaskPriority
}

// Estimate is a model's raw output before confidence weighting.
type Estimate struct {
	ExecutionTime      float64
	SuccessProbability float64
	CPUUtilization     float64
	MemoryUtilization  float64
}

// PredictionModel is the pluggable estimator boundary. The heuristic
// implementation below can be swapped for a trained model without touching
// any caller.
type PredictionModel interface {
	Train(samples []*models.PerformanceMetric)
	Predict(features Features) Estimate
}

// heuristicModel derives estimates directly from profile sub-scores. It is
// the reference estimator used until a trained model is plugged in.
type heuristicModel struct {
	trained int
}

func newHeuristicModel() *heuristicModel {
	return &heuristicModel{}
}

func (m *heuristicModel) Train(samples []*models.PerformanceMetric) {
	m.trained += len(samples)
}

func (m *heuristicModel) Predict(f Features) Estimate {
	execTime := math.Max(100, 2000-f.Speed*15-f.Efficiency*10)
	success := math.Min(1, (f.Reliability+f.Consistency)/200)

	baseUsage := 100 - f.Efficiency
	cpu := math.Min(100, math.Max(0, baseUsage+f.Complexity*2))
	mem := math.Min(100, math.Max(0, baseUsage+f.DataSizeMB/100))

	return Estimate{
		ExecutionTime:      execTime,
		SuccessProbability: success,
		CPUUtilization:     cpu,
		MemoryUtilization:  mem,
	}
}
