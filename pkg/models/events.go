package models

import "time"

// EventTopic identifies an event on the fleet bus. Transport is an external
// collaborator; this core only defines topic names and payload shapes.
type EventTopic string

const (
	TopicBalancerStarted    EventTopic = "loadbalancer.started"
	TopicBalancerDecision   EventTopic = "loadbalancer.decision"
	TopicNodeLoadUpdated    EventTopic = "node.load.updated"
	TopicStrategyChanged    EventTopic = "loadbalancer.strategy.changed"
	TopicAutoscalingStarted EventTopic = "autoscaling.started"
	TopicPolicyAdded        EventTopic = "scaling.policy.added"
	TopicActionStarted      EventTopic = "scaling.action.started"
	TopicActionCompleted    EventTopic = "scaling.action.completed"
	TopicActionFailed       EventTopic = "scaling.action.failed"
	TopicNodePoolAdded      EventTopic = "nodepool.added"
	TopicOptimizerStarted   EventTopic = "performance.optimizer.started"
	TopicMetricRecorded     EventTopic = "performance.metric.recorded"
	TopicSelection          EventTopic = "performance.selection"
)

// AllEventTopics lists every topic the scheduler publishes.
func AllEventTopics() []EventTopic {
	return []EventTopic{
		TopicBalancerStarted,
		TopicBalancerDecision,
		TopicNodeLoadUpdated,
		TopicStrategyChanged,
		TopicAutoscalingStarted,
		TopicPolicyAdded,
		TopicActionStarted,
		TopicActionCompleted,
		TopicActionFailed,
		TopicNodePoolAdded,
		TopicOptimizerStarted,
		TopicMetricRecorded,
		TopicSelection,
	}
}

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event is one published bus message.
type Event struct {
	ID        string        `json:"id"`
	Topic     EventTopic    `json:"topic"`
	Severity  EventSeverity `json:"severity"`
	NodeID    string        `json:"node_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Payload   interface{}   `json:"payload,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(topic EventTopic, nodeID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Topic:     topic,
		Severity:  SeverityInfo,
		NodeID:    nodeID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithPayload(payload interface{}) *Event {
	e.Payload = payload
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
