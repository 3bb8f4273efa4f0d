package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

type outboxStub struct {
	created []*model.OutboxEvent
	err     error
}

func (s *outboxStub) Create(ctx context.Context, event *model.OutboxEvent) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, event)
	return nil
}

func (s *outboxStub) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (s *outboxStub) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (s *outboxStub) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	return nil
}

func (s *outboxStub) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func TestEmitWritesPendingEvent(t *testing.T) {
	repo := &outboxStub{}
	svc := NewEventService(repo, logger.Nop())

	err := svc.Emit(context.Background(), model.EventAppointmentCreated, "apt-1", map[string]string{"id": "apt-1"})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	ev := repo.created[0]
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, model.EventAppointmentCreated, ev.EventType)
	assert.Equal(t, "apt-1", ev.AggregateID)
	assert.Equal(t, model.OutboxStatusPending, ev.Status)
	assert.JSONEq(t, `{"id":"apt-1"}`, string(ev.Payload))
}

func TestEmitPropagatesStoreError(t *testing.T) {
	svc := NewEventService(&outboxStub{err: errors.New("db down")}, logger.Nop())

	err := svc.Emit(context.Background(), model.EventAppointmentCreated, "apt-1", struct{}{})
	assert.Error(t, err)
}

func TestEmitRejectsUnmarshalablePayload(t *testing.T) {
	repo := &outboxStub{}
	svc := NewEventService(repo, logger.Nop())

	err := svc.Emit(context.Background(), "x", "y", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, repo.created)
}
