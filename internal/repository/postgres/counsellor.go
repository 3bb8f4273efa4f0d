package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

const counsellorColumns = `
	id, name, email, phone, specialization, sub_specializations, languages,
	experience_years, fee_per_session_inr, photo_url, bio, active, created_at, updated_at`

// counsellorRow bridges TEXT[] columns onto the model's plain slices.
type counsellorRow struct {
	model.Counsellor
	SubSpecializations pq.StringArray `db:"sub_specializations"`
	Languages          pq.StringArray `db:"languages"`
}

func (row *counsellorRow) toModel() *model.Counsellor {
	c := row.Counsellor
	c.SubSpecializations = []string(row.SubSpecializations)
	c.Languages = []string(row.Languages)
	if c.SubSpecializations == nil {
		c.SubSpecializations = []string{}
	}
	if c.Languages == nil {
		c.Languages = []string{}
	}
	return &c
}

func toCounsellors(rows []counsellorRow) []*model.Counsellor {
	out := make([]*model.Counsellor, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out
}

type counsellorRepository struct {
	BaseRepository
}

func NewCounsellorRepository(base BaseRepository) repository.CounsellorRepository {
	return &counsellorRepository{base}
}

func (r *counsellorRepository) Create(ctx context.Context, c *model.Counsellor) error {
	query := `
		INSERT INTO counsellors (` + counsellorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query, counsellorArgs(c)...)
	if err != nil {
		if isUniqueViolation(err, "counsellors_pkey") {
			return fmt.Errorf("counsellor %s: %w", c.ID, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to create counsellor: %w", err)
	}
	return nil
}

func (r *counsellorRepository) Upsert(ctx context.Context, c *model.Counsellor) error {
	query := `
		INSERT INTO counsellors (` + counsellorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			specialization = EXCLUDED.specialization,
			sub_specializations = EXCLUDED.sub_specializations,
			languages = EXCLUDED.languages,
			experience_years = EXCLUDED.experience_years,
			fee_per_session_inr = EXCLUDED.fee_per_session_inr,
			photo_url = EXCLUDED.photo_url,
			bio = EXCLUDED.bio,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, counsellorArgs(c)...); err != nil {
		return fmt.Errorf("failed to upsert counsellor: %w", err)
	}
	return nil
}

func counsellorArgs(c *model.Counsellor) []interface{} {
	return []interface{}{
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Specialization,
		pq.Array(nonNil(c.SubSpecializations)),
		pq.Array(nonNil(c.Languages)),
		c.ExperienceYears,
		c.FeePerSessionINR,
		c.PhotoURL,
		c.Bio,
		c.Active,
		c.CreatedAt,
		c.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *counsellorRepository) Get(ctx context.Context, id string) (*model.Counsellor, error) {
	query := `SELECT ` + counsellorColumns + ` FROM counsellors WHERE id = $1`

	var row counsellorRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get counsellor: %w", err)
	}
	return row.toModel(), nil
}

func (r *counsellorRepository) Update(ctx context.Context, c *model.Counsellor) error {
	query := `
		UPDATE counsellors SET
			name = $2, email = $3, phone = $4, specialization = $5,
			sub_specializations = $6, languages = $7, experience_years = $8,
			fee_per_session_inr = $9, photo_url = $10, bio = $11, active = $12,
			updated_at = $13
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Specialization,
		pq.Array(nonNil(c.SubSpecializations)),
		pq.Array(nonNil(c.Languages)),
		c.ExperienceYears,
		c.FeePerSessionINR,
		c.PhotoURL,
		c.Bio,
		c.Active,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update counsellor: %w", err)
	}
	return expectOneRow(res)
}

func (r *counsellorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM counsellors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete counsellor: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *counsellorRepository) List(ctx context.Context, f model.CounsellorFilters) ([]*model.Counsellor, int, error) {
	where := "WHERE TRUE"
	var args []interface{}
	if f.ActiveOnly {
		where += " AND active"
	}
	if f.ProgramTag != "" {
		args = append(args, f.ProgramTag)
		if f.Include {
			where += fmt.Sprintf(" AND $%d = ANY(sub_specializations)", len(args))
		} else {
			where += fmt.Sprintf(" AND NOT ($%d = ANY(sub_specializations))", len(args))
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM counsellors `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count counsellors: %w", err)
	}

	query := `SELECT ` + counsellorColumns + ` FROM counsellors ` + where + ` ORDER BY created_at, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []counsellorRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list counsellors: %w", err)
	}
	return toCounsellors(rows), total, nil
}

func (r *counsellorRepository) ListActive(ctx context.Context) ([]*model.Counsellor, error) {
	query := `SELECT ` + counsellorColumns + ` FROM counsellors WHERE active ORDER BY created_at, id`

	var rows []counsellorRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list active counsellors: %w", err)
	}
	return toCounsellors(rows), nil
}

func (r *counsellorRepository) GetMany(ctx context.Context, ids []string) (map[string]*model.Counsellor, error) {
	out := make(map[string]*model.Counsellor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + counsellorColumns + ` FROM counsellors WHERE id = ANY($1)`
	var rows []counsellorRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get counsellors: %w", err)
	}
	for i := range rows {
		c := rows[i].toModel()
		out[c.ID] = c
	}
	return out, nil
}

func (r *counsellorRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM counsellors`); err != nil {
		return 0, fmt.Errorf("failed to count counsellors: %w", err)
	}
	return n, nil
}
