package postgres

import (
	"context"
	"fmt"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

const consultationSlotConstraint = "consultations_slot_uq"

type consultationRepository struct {
	BaseRepository
}

func NewConsultationRepository(base BaseRepository) repository.ConsultationRepository {
	return &consultationRepository{base}
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, date, time, end_time, tz, name, email, phone, topic, source, notes, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Date,
		c.Time,
		c.EndTime,
		c.Timezone,
		c.Name,
		c.Email,
		c.Phone,
		c.Topic,
		c.Source,
		c.Notes,
		c.Status,
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, consultationSlotConstraint) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

func (r *consultationRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	times := []string{}
	query := `SELECT time FROM consultations WHERE date = $1 ORDER BY time`
	if err := r.db.SelectContext(ctx, &times, query, date); err != nil {
		return nil, fmt.Errorf("failed to query booked consultations: %w", err)
	}
	return times, nil
}
