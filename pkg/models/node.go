package models

import (
	"math"
	"time"
)

// NodeLoad is the point-in-time resource snapshot for a single QNET node.
// Owned and mutated by the load balancer; the autoscaler only reads it.
type NodeLoad struct {
	NodeID             string    `json:"node_id"`
	CPUUtilization     float64   `json:"cpu_utilization"`
	MemoryUtilization  float64   `json:"memory_utilization"`
	NetworkUtilization float64   `json:"network_utilization"`
	DiskUtilization    float64   `json:"disk_utilization"`
	ActiveConnections  int       `json:"active_connections"`
	QueuedTasks        int       `json:"queued_tasks"`
	AvgResponseTime    float64   `json:"avg_response_time_ms"`
	Throughput         float64   `json:"throughput"`
	ErrorRate          float64   `json:"error_rate"`
	LastUpdated        time.Time `json:"last_updated"`
}

// NewNodeLoad returns a zeroed snapshot for a node seen for the first time.
func NewNodeLoad(nodeID string) *NodeLoad {
	return &NodeLoad{
		NodeID:      nodeID,
		LastUpdated: time.Now(),
	}
}

// NodeLoadUpdate is a partial load report. Nil fields leave the stored
// snapshot unchanged.
type NodeLoadUpdate struct {
	CPUUtilization     *float64 `json:"cpu_utilization,omitempty"`
	MemoryUtilization  *float64 `json:"memory_utilization,omitempty"`
	NetworkUtilization *float64 `json:"network_utilization,omitempty"`
	DiskUtilization    *float64 `json:"disk_utilization,omitempty"`
	ActiveConnections  *int     `json:"active_connections,omitempty"`
	QueuedTasks        *int     `json:"queued_tasks,omitempty"`
	AvgResponseTime    *float64 `json:"avg_response_time_ms,omitempty"`
	Throughput         *float64 `json:"throughput,omitempty"`
	ErrorRate          *float64 `json:"error_rate,omitempty"`
}

// Apply merges the supplied fields into the snapshot and stamps LastUpdated.
func (l *NodeLoad) Apply(u NodeLoadUpdate) {
	if u.CPUUtilization != nil {
		l.CPUUtilization = *u.CPUUtilization
	}
	if u.MemoryUtilization != nil {
		l.MemoryUtilization = *u.MemoryUtilization
	}
	if u.NetworkUtilization != nil {
		l.NetworkUtilization = *u.NetworkUtilization
	}
	if u.DiskUtilization != nil {
		l.DiskUtilization = *u.DiskUtilization
	}
	if u.ActiveConnections != nil {
		l.ActiveConnections = *u.ActiveConnections
	}
	if u.QueuedTasks != nil {
		l.QueuedTasks = *u.QueuedTasks
	}
	if u.AvgResponseTime != nil {
		l.AvgResponseTime = *u.AvgResponseTime
	}
	if u.Throughput != nil {
		l.Throughput = *u.Throughput
	}
	if u.ErrorRate != nil {
		l.ErrorRate = *u.ErrorRate
	}
	l.LastUpdated = time.Now()
}

// CompositeLoad collapses the multi-resource snapshot into a single 0-100
// score used for overload and underutilization classification.
func (l *NodeLoad) CompositeLoad() float64 {
	queuePressure := math.Min(100, float64(l.QueuedTasks)*5)
	composite := 0.4*l.CPUUtilization +
		0.3*l.MemoryUtilization +
		0.1*l.NetworkUtilization +
		0.1*l.DiskUtilization +
		0.1*queuePressure
	return clampScore(composite)
}

type DiskType string

const (
	DiskTypeHDD  DiskType = "hdd"
	DiskTypeSSD  DiskType = "ssd"
	DiskTypeNVMe DiskType = "nvme"
)

// NodeConfiguration is the hardware shape of a node. It doubles as the
// target of a resource optimization recommendation.
type NodeConfiguration struct {
	CPUCores    int      `json:"cpu_cores"`
	MemoryGB    int      `json:"memory_gb"`
	DiskGB      int      `json:"disk_gb"`
	DiskType    DiskType `json:"disk_type"`
	DiskIOPS    int      `json:"disk_iops"`
	NetworkMbps int      `json:"network_mbps"`
}

// NodePool is the authoritative set of provisioned nodes for one node type.
type NodePool struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	NodeType      string            `json:"node_type"`
	MinSize       int               `json:"min_size"`
	MaxSize       int               `json:"max_size"`
	CurrentSize   int               `json:"current_size"`
	TargetSize    int               `json:"target_size"`
	Nodes         []string          `json:"nodes"`
	AutoScaling   bool              `json:"auto_scaling"`
	DefaultConfig NodeConfiguration `json:"default_config"`
	CostPerHour   float64           `json:"cost_per_hour"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (p *NodePool) HasCapacity() bool {
	return p.CurrentSize < p.MaxSize
}

func (p *NodePool) AboveMinimum() bool {
	return p.CurrentSize > p.MinSize
}

// SizeInvariantHolds reports whether minSize <= currentSize <= maxSize.
// A violation after a scaling action is a hard error, not a degraded state.
func (p *NodePool) SizeInvariantHolds() bool {
	return p.MinSize <= p.CurrentSize && p.CurrentSize <= p.MaxSize
}

func (p *NodePool) ContainsNode(nodeID string) bool {
	for _, id := range p.Nodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// WorkloadCharacteristics tags a task or metric sample with the workload
// shape that produced it.
type WorkloadCharacteristics struct {
	TaskType   string       `json:"task_type"`
	Complexity float64      `json:"complexity"`
	DataSizeMB float64      `json:"data_size_mb"`
	Priority   TaskPriority `json:"priority"`
}

// TaskRequirements describes one unit of Qflow work submitted for placement.
type TaskRequirements struct {
	Workload       WorkloadCharacteristics `json:"workload"`
	CPURequired    float64                 `json:"cpu_required"`
	MemoryRequired float64                 `json:"memory_required"`
}
