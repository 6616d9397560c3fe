package collector

import (
	"context"
	"errors"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

var (
	ErrCollectionFailed = errors.New("load collection failed")
	ErrTimeout          = errors.New("collection timeout")
	ErrNodeNotFound     = errors.New("node not found")
	ErrInvalidResponse  = errors.New("invalid response from node agent")
)

// Collector fetches a load report from one node agent.
type Collector interface {
	Collect(ctx context.Context, nodeID string) (*models.NodeLoadUpdate, error)

	// HealthCheck verifies the collector can reach its data source
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the collector
	Close() error
}
