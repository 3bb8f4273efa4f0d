package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
)

// OutboxStore is the slice of the outbox repository the relay needs.
type OutboxStore interface {
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
}
