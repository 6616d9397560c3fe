package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventRepository reads the scheduler_events table written by the history
// sink. Writes go through the sink; this repository is query-only.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

type EventRecord struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	NodeID    string          `json:"node_id,omitempty"`
	Severity  string          `json:"severity"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload"`
	TraceID   string          `json:"trace_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Recent returns the newest persisted events, optionally filtered by topic.
func (r *EventRepository) Recent(ctx context.Context, topic string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, topic, node_id, severity, message, payload, trace_id, created_at
		FROM scheduler_events`
	args := []interface{}{}

	if topic != "" {
		query += ` WHERE topic = $1`
		args = append(args, topic)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ByNode returns the newest persisted events involving one node.
func (r *EventRepository) ByNode(ctx context.Context, nodeID string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, topic, node_id, severity, message, payload, trace_id, created_at
		FROM scheduler_events
		WHERE node_id = $1
		ORDER BY created_at DESC
		LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for node %s: %w", nodeID, err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByTopic summarizes persisted volume per topic since a cutoff.
func (r *EventRepository) CountByTopic(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT topic, COUNT(*)
		FROM scheduler_events
		WHERE created_at >= $1
		GROUP BY topic`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			topic string
			count int
		)
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[topic] = count
	}
	return counts, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]EventRecord, error) {
	var records []EventRecord
	for rows.Next() {
		var record EventRecord
		if err := rows.Scan(
			&record.ID, &record.Topic, &record.NodeID, &record.Severity,
			&record.Message, &record.Payload, &record.TraceID, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
