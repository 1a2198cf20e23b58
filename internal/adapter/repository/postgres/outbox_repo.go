package postgres

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	db querier
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: pool}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = exec(ctx, conn(r.db, tx), psql.Insert("outbox_events").
		Columns("id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published").
		Values(event.ID, event.AggregateID, event.AggregateType, event.EventType, payload, event.CreatedAt, event.Published))

	return err
}

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := query(ctx, r.db, psql.
		Select("id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published").
		From("outbox_events").
		Where(sq.Eq{"published": false}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.OutboxEvent, 0)
	for rows.Next() {
		var (
			event       domain.OutboxEvent
			payload     []byte
			publishedAt pgtype.Timestamptz
		)

		err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.AggregateType,
			&event.EventType,
			&payload,
			&event.CreatedAt,
			&publishedAt,
			&event.Published,
		)
		if err != nil {
			return nil, err
		}

		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &event.Payload)
		}
		event.PublishedAt = timestamptzPtr(publishedAt)

		events = append(events, &event)
	}

	return events, rows.Err()
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := exec(ctx, r.db, psql.Update("outbox_events").
		Set("published", true).
		Set("published_at", publishedAt).
		Where(sq.Eq{"id": id}))
	return err
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := exec(ctx, r.db, psql.Delete("outbox_events").
		Where(sq.Eq{"published": true}).
		Where(sq.Lt{"published_at": before}))
	return err
}
