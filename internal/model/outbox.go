package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types written to the outbox.
const (
	EventAppointmentCreated       = "appointment.created"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventConsultationRequested    = "consultation.requested"
	EventAssessmentSubmitted      = "assessment.submitted"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  string          `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

// Envelope is what gets published to the broker for each outbox row.
type Envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

func (e *OutboxEvent) Envelope() Envelope {
	return Envelope{
		ID:          e.ID.String(),
		Type:        e.EventType,
		AggregateID: e.AggregateID,
		OccurredAt:  e.CreatedAt,
		Payload:     e.Payload,
	}
}
