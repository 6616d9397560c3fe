package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func receiveEvent(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSubscribeFiltersByTopic(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	decisions := bus.Subscribe(models.TopicBalancerDecision)
	policies := bus.Subscribe(models.TopicPolicyAdded)

	bus.Publish(models.NewEvent(models.TopicBalancerDecision, "qnet-node-1", "node selected"))

	event := receiveEvent(t, decisions)
	assert.Equal(t, models.TopicBalancerDecision, event.Topic)
	assert.Equal(t, "qnet-node-1", event.NodeID)

	select {
	case event := <-policies:
		t.Fatalf("policy subscriber received unrelated event: %s", event.Topic)
	default:
	}
}

func TestSubscribeAllReceivesEveryTopic(t *testing.T) {
	bus := NewBus(len(models.AllEventTopics()))
	defer bus.Close()

	all := bus.SubscribeAll()

	for _, topic := range models.AllEventTopics() {
		bus.Publish(models.NewEvent(topic, "", "event"))
	}

	seen := make(map[models.EventTopic]bool)
	for range models.AllEventTopics() {
		event := receiveEvent(t, all)
		seen[event.Topic] = true
	}
	assert.Len(t, seen, len(models.AllEventTopics()))
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.TopicBalancerDecision)

	// The second publish must not block even though nothing drains ch.
	bus.Publish(models.NewEvent(models.TopicBalancerDecision, "", "first"))
	bus.Publish(models.NewEvent(models.TopicBalancerDecision, "", "second"))

	event := receiveEvent(t, ch)
	assert.Equal(t, "first", event.Message)

	select {
	case event := <-ch:
		t.Fatalf("dropped event was delivered: %s", event.Message)
	default:
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	bus := NewBus(10)

	topical := bus.Subscribe(models.TopicActionCompleted)
	all := bus.SubscribeAll()

	bus.Close()
	bus.Close()

	_, open := <-topical
	assert.False(t, open)
	_, open = <-all
	assert.False(t, open)

	// Publishing after close is a no-op rather than a panic.
	bus.Publish(models.NewEvent(models.TopicActionCompleted, "", "late"))
}

func TestPublisherDecisionPayload(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.TopicBalancerDecision)
	pub := NewPublisher(bus)

	pub.Decision(&models.LoadBalancingDecision{
		SelectedNode: "qnet-node-3",
		Strategy:     models.StrategyResourceBased,
		Score:        87.5,
	})

	event := receiveEvent(t, ch)
	assert.Equal(t, "qnet-node-3", event.NodeID)
	assert.Equal(t, models.SeverityInfo, event.Severity)
	assert.NotEmpty(t, event.ID)

	payload, ok := event.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.StrategyResourceBased, payload["strategy"])
}

func TestPublisherActionFailedIsCritical(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.TopicActionFailed)
	pub := NewPublisher(bus)

	pub.ActionFailed(&models.ScalingAction{
		ID:    "act-1",
		Type:  models.ActionAddNode,
		Error: "provisioner unavailable",
	})

	event := receiveEvent(t, ch)
	assert.Equal(t, models.SeverityCritical, event.Severity)
	assert.Contains(t, event.Message, "provisioner unavailable")
}

func TestPublisherWithTraceIDStampsEvents(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(models.TopicStrategyChanged)
	pub := NewPublisher(bus).WithTraceID("trace-42")

	pub.StrategyChanged(models.StrategyRoundRobin, models.StrategyParams{})

	event := receiveEvent(t, ch)
	assert.Equal(t, "trace-42", event.TraceID)
}
