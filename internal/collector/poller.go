package collector

import (
	"context"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// Fleet is the slice of the load balancer the poller feeds.
type Fleet interface {
	NodeLoadsSnapshot() []models.NodeLoad
	UpdateNodeLoad(nodeID string, update models.NodeLoadUpdate)
}

// Poller sweeps every tracked node on each tick and pushes fresh agent
// reports into the fleet.
type Poller struct {
	collector Collector
	fleet     Fleet
	timeout   time.Duration
}

func NewPoller(coll Collector, fleet Fleet, timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Poller{
		collector: coll,
		fleet:     fleet,
		timeout:   timeout,
	}
}

func (p *Poller) Tick() {
	loads := p.fleet.NodeLoadsSnapshot()
	if len(loads) == 0 {
		return
	}

	collected := 0
	for _, load := range loads {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		update, err := p.collector.Collect(ctx, load.NodeID)
		cancel()

		if err != nil {
			logger.WithNode(load.NodeID).Debugf("poll failed: %v", err)
			continue
		}

		p.fleet.UpdateNodeLoad(load.NodeID, *update)
		collected++
	}

	logger.Debugf("polled %d/%d nodes", collected, len(loads))
}
