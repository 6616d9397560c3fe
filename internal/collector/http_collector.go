package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

type HTTPCollector struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

type HTTPCollectorConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPCollector(cfg HTTPCollectorConfig) *HTTPCollector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPCollector{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
		timeout:  timeout,
	}
}

// agentResponse matches the load report served by a QNET node agent.
type agentResponse struct {
	NodeID             string  `json:"node_id"`
	Timestamp          string  `json:"timestamp"`
	CPUUsage           float64 `json:"cpu_usage"`
	MemoryUsage        float64 `json:"memory_usage"`
	NetworkUsage       float64 `json:"network_usage"`
	DiskUsage          float64 `json:"disk_usage"`
	ActiveConnections  int     `json:"active_connections"`
	QueuedTasks        int     `json:"queued_tasks"`
	AvgResponseTimeMS  float64 `json:"avg_response_time_ms"`
	ThroughputPerSec   float64 `json:"throughput_per_sec"`
	ErrorRatePercent   float64 `json:"error_rate_percent"`
}

func (c *HTTPCollector) Collect(ctx context.Context, nodeID string) (*models.NodeLoadUpdate, error) {
	url := fmt.Sprintf("%s/nodes/%s/load", c.endpoint, nodeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrCollectionFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	logger.WithNode(nodeID).Debugf("collecting load from %s", url)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrCollectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNodeNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrCollectionFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrCollectionFailed, err)
	}

	var agent agentResponse
	if err := json.Unmarshal(body, &agent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return convertResponse(&agent), nil
}

func convertResponse(agent *agentResponse) *models.NodeLoadUpdate {
	return &models.NodeLoadUpdate{
		CPUUtilization:     &agent.CPUUsage,
		MemoryUtilization:  &agent.MemoryUsage,
		NetworkUtilization: &agent.NetworkUsage,
		DiskUtilization:    &agent.DiskUsage,
		ActiveConnections:  &agent.ActiveConnections,
		QueuedTasks:        &agent.QueuedTasks,
		AvgResponseTime:    &agent.AvgResponseTimeMS,
		Throughput:         &agent.ThroughputPerSec,
		ErrorRate:          &agent.ErrorRatePercent,
	}
}

func (c *HTTPCollector) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", c.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *HTTPCollector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
