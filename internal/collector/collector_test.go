package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/internal/balancer"
	"github.com/AnarQorp/qnet-scheduler/internal/resilience"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func TestHTTPCollectorParsesAgentReport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nodes/qnet-node-1/load", r.URL.Path)
		json.NewEncoder(w).Encode(agentResponse{
			NodeID:            "qnet-node-1",
			CPUUsage:          62.5,
			MemoryUsage:       40,
			ActiveConnections: 12,
			AvgResponseTimeMS: 180,
		})
	}))
	defer ts.Close()

	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: ts.URL})
	defer c.Close()

	update, err := c.Collect(context.Background(), "qnet-node-1")
	require.NoError(t, err)
	require.NotNil(t, update.CPUUtilization)
	assert.Equal(t, 62.5, *update.CPUUtilization)
	assert.Equal(t, 12, *update.ActiveConnections)
	assert.Equal(t, 180.0, *update.AvgResponseTime)
}

func TestHTTPCollectorNodeNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: ts.URL})
	defer c.Close()

	_, err := c.Collect(context.Background(), "ghost-node")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestHTTPCollectorInvalidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	c := NewHTTPCollector(HTTPCollectorConfig{Endpoint: ts.URL})
	defer c.Close()

	_, err := c.Collect(context.Background(), "qnet-node-1")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestResilientCollectorRetries(t *testing.T) {
	mock := NewMockCollector(MockCollectorConfig{})
	mock.AddNode("qnet-node-1")

	rc := NewResilientCollector(ResilientCollectorConfig{
		Collector:     mock,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})

	update, err := rc.Collect(context.Background(), "qnet-node-1")
	require.NoError(t, err)
	assert.NotNil(t, update.CPUUtilization)
	assert.Equal(t, resilience.StateClosed, rc.CircuitState())
}

func TestResilientCollectorOpensCircuit(t *testing.T) {
	mock := NewMockCollector(MockCollectorConfig{})
	mock.SetShouldFail(true, nil)

	rc := NewResilientCollector(ResilientCollectorConfig{
		Collector:     mock,
		MaxFailures:   2,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_, err := rc.Collect(context.Background(), "qnet-node-1")
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, rc.CircuitState())

	// Further calls are rejected without touching the collector.
	_, err := rc.Collect(context.Background(), "qnet-node-1")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)

	rc.ResetCircuit()
	assert.Equal(t, resilience.StateClosed, rc.CircuitState())
}

func TestPollerUpdatesFleet(t *testing.T) {
	fleet := balancer.New(balancer.Config{Strategy: models.StrategyResourceBased}, nil)
	fleet.SeedNodeLoad(models.NewNodeLoad("qnet-node-1"))
	fleet.SeedNodeLoad(models.NewNodeLoad("qnet-node-2"))

	mock := NewMockCollector(MockCollectorConfig{BaseCPU: 70, Variance: 0.5})
	mock.AddNode("qnet-node-1")
	mock.AddNode("qnet-node-2")

	p := NewPoller(mock, fleet, time.Second)
	p.Tick()

	for _, nodeID := range []string{"qnet-node-1", "qnet-node-2"} {
		load, ok := fleet.GetNodeLoad(nodeID)
		require.True(t, ok)
		assert.InDelta(t, 70, load.CPUUtilization, 1)
	}
}

func TestPollerSkipsFailedNodes(t *testing.T) {
	fleet := balancer.New(balancer.Config{Strategy: models.StrategyResourceBased}, nil)
	seed := models.NewNodeLoad("qnet-node-1")
	seed.CPUUtilization = 33
	fleet.SeedNodeLoad(seed)

	mock := NewMockCollector(MockCollectorConfig{})
	mock.SetShouldFail(true, nil)

	p := NewPoller(mock, fleet, time.Second)
	p.Tick()

	load, ok := fleet.GetNodeLoad("qnet-node-1")
	require.True(t, ok)
	assert.Equal(t, 33.0, load.CPUUtilization)
}
