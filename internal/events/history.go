package events

import (
	"context"
	"encoding/json"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/database"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// HistorySink persists balancing decisions and scaling actions from the bus
// to postgres. The in-memory rolling windows remain authoritative; this sink
// only exists so operators can query past the window.
type HistorySink struct {
	db        *database.DB
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewHistorySink(db *database.DB, eventChan <-chan *models.Event) *HistorySink {
	ctx, cancel := context.WithCancel(context.Background())
	return &HistorySink{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *HistorySink) Start() {
	go s.run()
}

func (s *HistorySink) Stop() {
	s.cancel()
}

func (s *HistorySink) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.eventChan:
			if !ok {
				return
			}
			s.processEvent(event)
		}
	}
}

func (s *HistorySink) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"topic":    event.Topic,
		"node_id":  event.NodeID,
		"severity": event.Severity,
		"trace_id": event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}

	if s.db == nil {
		return
	}

	switch event.Topic {
	case models.TopicBalancerDecision, models.TopicActionCompleted, models.TopicActionFailed:
		s.persistEvent(event)
	}
}

func (s *HistorySink) persistEvent(event *models.Event) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		logger.Errorf("Failed to marshal event payload: %v", err)
		return
	}

	query := `
		INSERT INTO scheduler_events (id, topic, node_id, severity, message, payload, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(s.ctx, query,
		event.ID,
		string(event.Topic),
		event.NodeID,
		string(event.Severity),
		event.Message,
		payload,
		event.TraceID,
		event.Timestamp,
	)

	if err != nil {
		logger.Errorf("Failed to persist event: %v", err)
	}
}
