package models

import "time"

type ScalingMetric string

const (
	MetricCPUUtilization    ScalingMetric = "cpu-utilization"
	MetricMemoryUtilization ScalingMetric = "memory-utilization"
	MetricCompositeLoad     ScalingMetric = "composite-load"
	MetricResponseTime      ScalingMetric = "response-time"
	MetricQueueDepth        ScalingMetric = "queue-depth"
	MetricErrorRate         ScalingMetric = "error-rate"
)

type Comparison string

const (
	CompareGreater      Comparison = "gt"
	CompareGreaterEqual Comparison = "gte"
	CompareLess         Comparison = "lt"
	CompareLessEqual    Comparison = "lte"
)

// Evaluate applies the comparison to an observed value.
func (c Comparison) Evaluate(observed, threshold float64) bool {
	switch c {
	case CompareGreater:
		return observed > threshold
	case CompareGreaterEqual:
		return observed >= threshold
	case CompareLess:
		return observed < threshold
	case CompareLessEqual:
		return observed <= threshold
	}
	return false
}

type ScalingActionType string

const (
	ActionAddNode          ScalingActionType = "add-node"
	ActionRemoveNode       ScalingActionType = "remove-node"
	ActionUpgradeNode      ScalingActionType = "upgrade-node"
	ActionDowngradeNode    ScalingActionType = "downgrade-node"
	ActionRedistributeLoad ScalingActionType = "redistribute-load"
)

// ScalingTrigger binds a metric condition to an action. The condition must
// hold continuously for Duration before the trigger fires.
type ScalingTrigger struct {
	ID         string            `json:"id"`
	Metric     ScalingMetric     `json:"metric"`
	Threshold  float64           `json:"threshold"`
	Comparison Comparison        `json:"comparison"`
	Duration   time.Duration     `json:"duration"`
	Action     ScalingActionType `json:"action"`
}

// ScalingPolicy owns one or more triggers. Cooldown of zero means the
// re-arming of the trigger is the only anti-flap mechanism.
type ScalingPolicy struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Enabled  bool             `json:"enabled"`
	Triggers []ScalingTrigger `json:"triggers"`
	Cooldown time.Duration    `json:"cooldown"`
}

type TriggerPhase string

const (
	TriggerIdle  TriggerPhase = "idle"
	TriggerArmed TriggerPhase = "armed"
)

// TriggerState is the transient evaluation state tracked per trigger id.
type TriggerState struct {
	Phase      TriggerPhase `json:"phase"`
	ArmedSince time.Time    `json:"armed_since,omitempty"`
	LastFired  time.Time    `json:"last_fired,omitempty"`
	FireCount  int          `json:"fire_count"`
}

type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionInProgress ActionStatus = "in-progress"
	ActionCompleted  ActionStatus = "completed"
	ActionFailed     ActionStatus = "failed"
)

// ScalingImpact is the pre-declared estimate attached to an action. Values
// are static per action type, not measured post-hoc.
type ScalingImpact struct {
	LoadChangePercent        float64 `json:"load_change_percent"`
	CostChangePercent        float64 `json:"cost_change_percent"`
	PerformanceChangePercent float64 `json:"performance_change_percent"`
}

// ScalingAction is the request and execution record of one fleet mutation.
type ScalingAction struct {
	ID          string            `json:"id"`
	Type        ScalingActionType `json:"type"`
	PolicyID    string            `json:"policy_id,omitempty"`
	TriggerID   string            `json:"trigger_id,omitempty"`
	PoolID      string            `json:"pool_id,omitempty"`
	TargetNodes []string          `json:"target_nodes,omitempty"`
	Status      ActionStatus      `json:"status"`
	Impact      ScalingImpact     `json:"impact"`
	Reason      string            `json:"reason,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
}

func NewScalingAction(actionType ScalingActionType, reason string) *ScalingAction {
	return &ScalingAction{
		ID:        NewUUID(),
		Type:      actionType,
		Status:    ActionPending,
		Reason:    reason,
		StartedAt: time.Now(),
	}
}

func (a *ScalingAction) Duration() time.Duration {
	if a.CompletedAt == nil {
		return 0
	}
	return a.CompletedAt.Sub(a.StartedAt)
}

type ScalingDirection string

const (
	DirectionScaleUp   ScalingDirection = "scale-up"
	DirectionScaleDown ScalingDirection = "scale-down"
	DirectionHold      ScalingDirection = "hold"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ScalingRecommendation is a derived suggestion from the current load
// distribution, surfaced to operators without mutating any pool.
type ScalingRecommendation struct {
	Direction      ScalingDirection `json:"direction"`
	Urgency        Urgency          `json:"urgency"`
	Reason         string           `json:"reason"`
	SuggestedNodes int              `json:"suggested_nodes"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// ScalingStatus is the operator-facing snapshot of the autoscaler.
type ScalingStatus struct {
	Policies           []ScalingPolicy          `json:"policies"`
	Pools              []NodePool               `json:"pools"`
	TriggerStates      map[string]TriggerState  `json:"trigger_states"`
	RecentActions      []ScalingAction          `json:"recent_actions"`
	LastRecommendation *ScalingRecommendation   `json:"last_recommendation,omitempty"`
	GeneratedAt        time.Time                `json:"generated_at"`
}

// BenefitEstimate is the expected effect of applying an optimization.
type BenefitEstimate struct {
	PerformanceDelta float64 `json:"performance_delta"`
	CostDelta        float64 `json:"cost_delta"`
	EfficiencyDelta  float64 `json:"efficiency_delta"`
}

// ResourceOptimization recommends a configuration change for one node.
type ResourceOptimization struct {
	ID              string            `json:"id"`
	NodeID          string            `json:"node_id"`
	Current         NodeConfiguration `json:"current"`
	Recommended     NodeConfiguration `json:"recommended"`
	ExpectedBenefit BenefitEstimate   `json:"expected_benefit"`
	Confidence      float64           `json:"confidence"`
	Reason          string            `json:"reason"`
	GeneratedAt     time.Time         `json:"generated_at"`
	ValidUntil      time.Time         `json:"valid_until"`
}

func (o *ResourceOptimization) Expired(now time.Time) bool {
	return now.After(o.ValidUntil)
}

// ResourceEstimate is the aggregate resource requirement of a forecast day.
type ResourceEstimate struct {
	CPUCores int `json:"cpu_cores"`
	MemoryGB int `json:"memory_gb"`
}

// ForecastPoint is one day of a capacity forecast.
type ForecastPoint struct {
	Day               int              `json:"day"`
	Date              time.Time        `json:"date"`
	PredictedLoad     float64          `json:"predicted_load"`
	RequiredNodes     int              `json:"required_nodes"`
	RequiredResources ResourceEstimate `json:"required_resources"`
	Confidence        float64          `json:"confidence"`
}

// CapacityForecast projects required fleet size over a horizon.
type CapacityForecast struct {
	HorizonDays     int             `json:"horizon_days"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Points          []ForecastPoint `json:"points"`
	Recommendations []string        `json:"recommendations"`
}

// Stale reports whether the forecast is older than the given TTL.
func (f *CapacityForecast) Stale(ttl time.Duration, now time.Time) bool {
	return now.Sub(f.GeneratedAt) > ttl
}

func (f *CapacityForecast) PeakRequiredNodes() int {
	peak := 0
	for _, p := range f.Points {
		if p.RequiredNodes > peak {
			peak = p.RequiredNodes
		}
	}
	return peak
}
