package postgres

import (
	"context"
	"fmt"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

type assessmentRepository struct {
	BaseRepository
}

func NewAssessmentRepository(base BaseRepository) repository.AssessmentRepository {
	return &assessmentRepository{base}
}

func (r *assessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	query := `INSERT INTO assessments (id, user_id, answers, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, []byte(a.Answers), a.CreatedAt); err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

func (r *assessmentRepository) ListByUser(ctx context.Context, userID string) ([]*model.Assessment, error) {
	query := `
		SELECT id, user_id, answers, created_at
		FROM assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	assessments := []*model.Assessment{}
	if err := r.db.SelectContext(ctx, &assessments, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, nil
}

func (r *assessmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM assessments`); err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return n, nil
}
