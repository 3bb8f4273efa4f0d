package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

const activeSlotConstraint = "appointments_active_slot_uq"

const appointmentColumns = `
	id, seeker_id, seeker_name, counsellor_id, counsellor_name, session_type,
	to_char(date, 'YYYY-MM-DD') AS date, time_slot, status, fee, payment_status,
	notes, source, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

// Create relies on appointments_active_slot_uq: the insert is rejected by
// the database when another non-cancelled row holds the same slot key.
func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, seeker_id, seeker_name, counsellor_id, counsellor_name, session_type,
			date, time_slot, status, fee, payment_status, notes, source, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.SeekerID,
		a.SeekerName,
		a.CounsellorID,
		a.CounsellorName,
		a.SessionType,
		a.Date,
		a.TimeSlot,
		a.Status,
		a.Fee,
		a.PaymentStatus,
		a.Notes,
		a.Source,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, activeSlotConstraint) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var a model.Appointment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &a, nil
}

func (r *appointmentRepository) BookedSlots(ctx context.Context, counsellorID, date string) ([]string, error) {
	query := `
		SELECT DISTINCT time_slot
		FROM appointments
		WHERE counsellor_id = $1 AND date = $2 AND status <> 'CANCELLED'
		ORDER BY time_slot
	`
	slots := []string{}
	if err := r.db.SelectContext(ctx, &slots, query, counsellorID, date); err != nil {
		return nil, fmt.Errorf("failed to query booked slots: %w", err)
	}
	return slots, nil
}

func (r *appointmentRepository) List(ctx context.Context, f model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.SeekerID != "" {
		add("seeker_id = $%d", f.SeekerID)
	}
	if f.CounsellorID != "" {
		add("counsellor_id = $%d", f.CounsellorID)
	}
	if f.Date != "" {
		add("date = $%d", f.Date)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, time_slot, created_at"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + appointmentColumns

	var a model.Appointment
	err := r.db.GetContext(ctx, &a, query, to, time.Now().UTC(), id, from)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}

	// Either the row is gone or someone else moved it first.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, repository.ErrStatusChanged
}
