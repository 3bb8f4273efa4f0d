package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/internal/service/event"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

type Service struct {
	repo   repository.AssessmentRepository
	events event.Emitter
	logger *logger.Logger
	now    func() time.Time
}

func NewService(repo repository.AssessmentRepository, events event.Emitter, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Submit stores the answers as given. Answers must be a JSON object.
func (s *Service) Submit(ctx context.Context, userID string, answers json.RawMessage) (*model.Assessment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewMissingFields("userId")
	}

	var probe map[string]json.RawMessage
	if len(answers) == 0 || json.Unmarshal(answers, &probe) != nil {
		appErr := errors.NewValidation("answers must be a JSON object")
		appErr.Fields = []string{"answers"}
		return nil, appErr
	}

	a := &model.Assessment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Answers:   answers,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.WithContext(ctx).Error(err, "failed to store assessment")
		return nil, errors.Internal(fmt.Errorf("failed to create assessment: %w", err))
	}

	if err := s.events.Emit(ctx, model.EventAssessmentSubmitted, a.ID, map[string]string{
		"assessmentId": a.ID,
		"userId":       a.UserID,
	}); err != nil {
		s.logger.WithContext(ctx).Error(err, "failed to emit assessment event", "assessment_id", a.ID)
	}

	return a, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*model.Assessment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewMissingFields("userId")
	}
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to list assessments: %w", err))
	}
	return list, nil
}
