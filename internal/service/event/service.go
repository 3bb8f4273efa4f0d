package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

// Emitter records a domain event for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error
}

type EventService struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
}

func NewEventService(outboxRepo repository.OutboxRepository, logger *logger.Logger) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Emit writes the event to the outbox. Publishing happens in the relay
// worker, never on the request path.
func (s *EventService) Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()
	event := &model.OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payloadJSON,
		Status:      model.OutboxStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	s.logger.WithContext(ctx).Debug("event emitted",
		"event_id", event.ID.String(),
		"event_type", eventType,
		"aggregate_id", aggregateID)

	return nil
}

// Nop drops every event. Used when no outbox is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, string, interface{}) error { return nil }
