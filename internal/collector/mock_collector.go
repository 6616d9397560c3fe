package collector

import (
	"context"
	"math/rand"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// MockCollector serves synthetic load reports for known nodes. Used in
// tests and by the demo driver when no node agents exist.
type MockCollector struct {
	nodes        map[string]bool
	baseCPU      float64
	baseMemory   float64
	variance     float64
	shouldFail   bool
	failureError error
}

type MockCollectorConfig struct {
	BaseCPU    float64
	BaseMemory float64
	Variance   float64
}

func NewMockCollector(cfg MockCollectorConfig) *MockCollector {
	baseCPU := cfg.BaseCPU
	if baseCPU == 0 {
		baseCPU = 50.0
	}

	baseMemory := cfg.BaseMemory
	if baseMemory == 0 {
		baseMemory = 60.0
	}

	variance := cfg.Variance
	if variance == 0 {
		variance = 10.0
	}

	return &MockCollector{
		nodes:      make(map[string]bool),
		baseCPU:    baseCPU,
		baseMemory: baseMemory,
		variance:   variance,
	}
}

func (c *MockCollector) AddNode(nodeID string) {
	c.nodes[nodeID] = true
}

func (c *MockCollector) SetBaseCPU(cpu float64) {
	c.baseCPU = cpu
}

func (c *MockCollector) SetShouldFail(shouldFail bool, err error) {
	c.shouldFail = shouldFail
	c.failureError = err
}

func (c *MockCollector) Collect(ctx context.Context, nodeID string) (*models.NodeLoadUpdate, error) {
	if c.shouldFail {
		if c.failureError != nil {
			return nil, c.failureError
		}
		return nil, ErrCollectionFailed
	}

	if !c.nodes[nodeID] {
		return nil, ErrNodeNotFound
	}

	cpu := c.randomValue(c.baseCPU, c.variance)
	memory := c.randomValue(c.baseMemory, c.variance)
	network := c.randomValue(30, c.variance)
	disk := c.randomValue(20, c.variance)
	connections := int(c.randomValue(100, 50))
	queued := int(c.randomValue(5, 5))
	responseTime := 200 + (rand.Float64()*2-1)*100

	return &models.NodeLoadUpdate{
		CPUUtilization:     &cpu,
		MemoryUtilization:  &memory,
		NetworkUtilization: &network,
		DiskUtilization:    &disk,
		ActiveConnections:  &connections,
		QueuedTasks:        &queued,
		AvgResponseTime:    &responseTime,
	}, nil
}

func (c *MockCollector) randomValue(base, variance float64) float64 {
	value := base + (rand.Float64()*2-1)*variance
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value
}

func (c *MockCollector) HealthCheck(ctx context.Context) error {
	if c.shouldFail {
		return ErrCollectionFailed
	}
	return nil
}

func (c *MockCollector) Close() error {
	return nil
}
