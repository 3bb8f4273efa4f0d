package counsellor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

type Service interface {
	ListPublic(ctx context.Context, category string) ([]*model.Counsellor, error)
	ListCounsellors(ctx context.Context, limit, offset int) ([]*model.Counsellor, int, error)
	GetCounsellor(ctx context.Context, id string) (*model.Counsellor, error)
	CreateCounsellor(ctx context.Context, c *model.Counsellor) error
	UpdateCounsellor(ctx context.Context, id string, update *model.CounsellorUpdate) (*model.Counsellor, error)
	DeleteCounsellor(ctx context.Context, id string) error
}

// PoolInvalidator is told whenever the counsellor pool changes.
type PoolInvalidator interface {
	Invalidate()
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type service struct {
	repo        repository.CounsellorRepository
	invalidator PoolInvalidator
	validate    *validator.Validate
	logger      *logger.Logger
	now         func() time.Time
}

func NewService(repo repository.CounsellorRepository, invalidator PoolInvalidator, logger *logger.Logger) Service {
	return &service{
		repo:        repo,
		invalidator: invalidator,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// ListPublic returns active counsellors. A category mentioning addiction
// keeps only the 12-step programme counsellors; any other category leaves
// them out. No category returns everyone active.
func (s *service) ListPublic(ctx context.Context, category string) ([]*model.Counsellor, error) {
	filters := model.CounsellorFilters{ActiveOnly: true}

	switch c := strings.ToLower(strings.TrimSpace(category)); {
	case c == "":
	case strings.Contains(c, "addiction"):
		filters.ProgramTag = model.AddictionProgramTag
		filters.Include = true
	default:
		filters.ProgramTag = model.AddictionProgramTag
		filters.Include = false
	}

	list, _, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to list counsellors: %w", err))
	}
	return list, nil
}

func (s *service) ListCounsellors(ctx context.Context, limit, offset int) ([]*model.Counsellor, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	list, total, err := s.repo.List(ctx, model.CounsellorFilters{Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, errors.Internal(fmt.Errorf("failed to list counsellors: %w", err))
	}
	return list, total, nil
}

func (s *service) GetCounsellor(ctx context.Context, id string) (*model.Counsellor, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "get")
	}
	return c, nil
}

func (s *service) CreateCounsellor(ctx context.Context, c *model.Counsellor) error {
	normalize(c)
	if err := s.check(c); err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.repo.Create(ctx, c); err != nil {
		return mapRepoError(err, "create")
	}

	s.invalidator.Invalidate()
	s.logger.WithContext(ctx).Info("counsellor created", "counsellor_id", c.ID)
	return nil
}

func (s *service) UpdateCounsellor(ctx context.Context, id string, update *model.CounsellorUpdate) (*model.Counsellor, error) {
	if update == nil || update.IsEmpty() {
		return nil, errors.NewValidation("No fields to update")
	}

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "get")
	}

	update.Apply(c)
	normalize(c)
	if err := s.check(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, mapRepoError(err, "update")
	}

	s.invalidator.Invalidate()
	return c, nil
}

func (s *service) DeleteCounsellor(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "delete")
	}
	s.invalidator.Invalidate()
	s.logger.WithContext(ctx).Info("counsellor deleted", "counsellor_id", id)
	return nil
}

func (s *service) check(c *model.Counsellor) error {
	if c.Name == "" {
		return errors.NewMissingFields("name")
	}
	if c.Email != "" {
		if err := s.validate.Var(c.Email, "email"); err != nil {
			appErr := errors.NewValidation("Invalid email format")
			appErr.Fields = []string{"email"}
			return appErr
		}
	}
	if c.ExperienceYears < 0 || c.FeePerSessionINR < 0 {
		return errors.NewValidation("experienceYears and feePerSessionINR must not be negative")
	}
	return nil
}

func normalize(c *model.Counsellor) {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Specialization = strings.TrimSpace(c.Specialization)
	c.SubSpecializations = trimAll(c.SubSpecializations)
	c.Languages = trimAll(c.Languages)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mapRepoError(err error, op string) error {
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NotFound("counsellor", err)
	case stderrors.Is(err, repository.ErrDuplicate):
		return errors.NewConflict("A counsellor with this id already exists", err)
	}
	return errors.Internal(fmt.Errorf("failed to %s counsellor: %w", op, err))
}
