package simulator

import (
	"math/rand"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// Fleet is the slice of the load balancer the jitter driver needs.
type Fleet interface {
	NodeLoadsSnapshot() []models.NodeLoad
	UpdateNodeLoad(nodeID string, update models.NodeLoadUpdate)
}

// Jitter perturbs reported node loads on every tick so the control loops
// have realistic drifting input when no real fleet is attached. Utilization
// walks are bounded steps shaped by the configured pattern.
type Jitter struct {
	fleet   Fleet
	pattern Pattern
	rng     *rand.Rand
}

func NewJitter(fleet Fleet, pattern Pattern) *Jitter {
	if pattern == nil {
		pattern = &SteadyPattern{}
	}
	return &Jitter{
		fleet:   fleet,
		pattern: pattern,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tick applies one jitter step to every node the fleet currently tracks.
func (j *Jitter) Tick() {
	loads := j.fleet.NodeLoadsSnapshot()
	for _, load := range loads {
		update := j.stepNode(load)
		j.fleet.UpdateNodeLoad(load.NodeID, update)
	}
	if len(loads) > 0 {
		logger.Debugf("jitter tick applied to %d nodes (pattern=%s)", len(loads), j.pattern.Name())
	}
}

func (j *Jitter) stepNode(load models.NodeLoad) models.NodeLoadUpdate {
	cpu := clampUtilization(j.pattern.Apply(j.walk(load.CPUUtilization, 5)))
	mem := clampUtilization(j.walk(load.MemoryUtilization, 3))
	net := clampUtilization(j.walk(load.NetworkUtilization, 4))
	disk := clampUtilization(j.walk(load.DiskUtilization, 2))

	connections := load.ActiveConnections + j.rng.Intn(11) - 5
	if connections < 0 {
		connections = 0
	}
	queued := load.QueuedTasks + j.rng.Intn(5) - 2
	if queued < 0 {
		queued = 0
	}

	responseTime := j.walk(load.AvgResponseTime, 20)
	if responseTime < 1 {
		responseTime = 1
	}

	return models.NodeLoadUpdate{
		CPUUtilization:     &cpu,
		MemoryUtilization:  &mem,
		NetworkUtilization: &net,
		DiskUtilization:    &disk,
		ActiveConnections:  &connections,
		QueuedTasks:        &queued,
		AvgResponseTime:    &responseTime,
	}
}

// walk takes one bounded random step from v, at most +-step wide.
func (j *Jitter) walk(v, step float64) float64 {
	return v + (j.rng.Float64()*2-1)*step
}
