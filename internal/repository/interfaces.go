package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository is the slot ledger's store. Create must be a
	// single conditional write: it either inserts the appointment or
	// returns ErrSlotTaken when another active appointment holds the key.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id string) (*model.Appointment, error)
		BookedSlots(ctx context.Context, counsellorID, date string) ([]string, error)
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error)
		// UpdateStatus moves id from one status to another only if it is
		// still in from; otherwise ErrStatusChanged.
		UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error)
	}

	CounsellorRepository interface {
		Create(ctx context.Context, counsellor *model.Counsellor) error
		Upsert(ctx context.Context, counsellor *model.Counsellor) error
		Get(ctx context.Context, id string) (*model.Counsellor, error)
		Update(ctx context.Context, counsellor *model.Counsellor) error
		Delete(ctx context.Context, id string) error
		List(ctx context.Context, filters model.CounsellorFilters) ([]*model.Counsellor, int, error)
		// ListActive returns the candidate pool in a stable order.
		ListActive(ctx context.Context) ([]*model.Counsellor, error)
		GetMany(ctx context.Context, ids []string) (map[string]*model.Counsellor, error)
		Count(ctx context.Context) (int, error)
	}

	ConsultationRepository interface {
		// Create returns ErrSlotTaken when (date, time) is already held.
		Create(ctx context.Context, consultation *model.Consultation) error
		BookedTimes(ctx context.Context, date string) ([]string, error)
	}

	AssessmentRepository interface {
		Create(ctx context.Context, assessment *model.Assessment) error
		ListByUser(ctx context.Context, userID string) ([]*model.Assessment, error)
		Count(ctx context.Context) (int, error)
	}

	// SeekerRepository derives the client list from bookings and assessments;
	// identities themselves live with the external identity provider.
	SeekerRepository interface {
		ListSeekers(ctx context.Context) ([]model.SeekerSummary, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending leases up to limit due events so concurrent relays
		// skip them until lease elapses.
		ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
