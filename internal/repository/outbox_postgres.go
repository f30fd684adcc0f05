package repository

import (
	"context"
	"fmt"
)

type pgOutboxRepo struct {
	q querier
}

func (r *pgOutboxRepo) Append(ctx context.Context, event *OutboxEvent) error {
	query := `INSERT INTO outbox_events (aggregate_id, event_type, payload)
	          VALUES ($1, $2, $3) RETURNING id, created_at`

	err := r.q.QueryRowContext(ctx, query,
		event.AggregateID,
		event.EventType,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *pgOutboxRepo) GetUnprocessed(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at, processed_at
	          FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt, &ev.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *pgOutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
