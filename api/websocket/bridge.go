package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// EventBridge forwards scheduler bus events to websocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("websocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("websocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

// StreamMessage is the wire format sent to websocket clients.
type StreamMessage struct {
	Topic     string      `json:"topic"`
	NodeID    string      `json:"node_id,omitempty"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	// Per-node load updates fire on every report; they would swamp the
	// stream and clients can poll the distribution endpoint instead.
	if event.Topic == models.TopicNodeLoadUpdated {
		return
	}

	msg := StreamMessage{
		Topic:     string(event.Topic),
		NodeID:    event.NodeID,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Timestamp: event.Timestamp,
		Payload:   event.Payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("failed to marshal websocket message: %v", err)
		return
	}

	b.hub.Broadcast(string(event.Topic), data)
}
