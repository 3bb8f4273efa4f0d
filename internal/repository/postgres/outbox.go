package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, aggregate_id, payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.AggregateID,
		[]byte(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// ClaimPending pushes retry_at forward on the claimed rows in the same
// statement that selects them, so a second relay skips them until the
// lease runs out.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET retry_at = NOW() + make_interval(secs => $2), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status IN ('pending', 'retry')
			AND (retry_at IS NULL OR retry_at <= NOW())
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, aggregate_id, payload, status, error_message,
			created_at, processed_at, updated_at, retry_count, retry_at
	`
	events := []*model.OutboxEvent{}
	if err := r.db.SelectContext(ctx, &events, query, limit, lease.Seconds()); err != nil {
		return nil, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = 'processed', error_message = NULL, retry_at = NULL,
			processed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark outbox event processed: %w", err)
	}
	return nil
}

// MarkFailed schedules a retry at retryAt, or parks the event as failed
// when retryAt is nil.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	status := model.OutboxStatusRetry
	if retryAt == nil {
		status = model.OutboxStatusFailed
	}
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_at = $3,
			retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $4
	`
	if _, err := r.db.ExecContext(ctx, query, status, errMsg, retryAt, id); err != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
