package postgres

import (
	"context"
	"fmt"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

type seekerRepository struct {
	BaseRepository
}

func NewSeekerRepository(base BaseRepository) repository.SeekerRepository {
	return &seekerRepository{base}
}

// ListSeekers returns every client seen in appointments or assessments,
// preferring the most recent non-empty name they booked under.
func (r *seekerRepository) ListSeekers(ctx context.Context) ([]model.SeekerSummary, error) {
	query := `
		WITH seen AS (
			SELECT seeker_id AS user_id, seeker_name AS name, created_at FROM appointments
			UNION ALL
			SELECT user_id, '' AS name, created_at FROM assessments
		)
		SELECT user_id,
		       COALESCE(
		           (SELECT s2.name FROM seen s2
		            WHERE s2.user_id = s.user_id AND s2.name <> ''
		            ORDER BY s2.created_at DESC LIMIT 1),
		           s.user_id
		       ) AS name
		FROM seen s
		GROUP BY user_id
		ORDER BY name
	`
	seekers := []model.SeekerSummary{}
	if err := r.db.SelectContext(ctx, &seekers, query); err != nil {
		return nil, fmt.Errorf("failed to list seekers: %w", err)
	}
	return seekers, nil
}
