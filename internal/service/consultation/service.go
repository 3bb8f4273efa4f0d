package consultation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/internal/service/event"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

const clockLayout = "15:04"

// SlotTakenMessage is returned when another request already holds (date, time).
const SlotTakenMessage = "This slot is already booked."

type Request struct {
	Name   string
	Phone  string
	Date   string
	Time   string
	Email  string
	Notes  string
	Topic  string
	Source string
}

// Service books free introductory calls. Each (date, time) admits one
// request, enforced by the store.
type Service struct {
	repo   repository.ConsultationRepository
	events event.Emitter
	logger *logger.Logger
	loc    *time.Location
	step   time.Duration
	times  []string
	index  map[string]struct{}
	now    func() time.Time
}

func NewService(repo repository.ConsultationRepository, cfg config.BookingConfig, events event.Emitter, logger *logger.Logger) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid consultation timezone: %w", err)
	}
	if cfg.ConsultationStepMinutes <= 0 {
		return nil, fmt.Errorf("consultation step must be positive")
	}
	start, err := time.Parse(clockLayout, cfg.ConsultationStart)
	if err != nil {
		return nil, fmt.Errorf("invalid consultation start: %w", err)
	}
	end, err := time.Parse(clockLayout, cfg.ConsultationEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid consultation end: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("consultation end before start")
	}

	step := time.Duration(cfg.ConsultationStepMinutes) * time.Minute
	s := &Service{
		repo:   repo,
		events: events,
		logger: logger,
		loc:    loc,
		step:   step,
		index:  make(map[string]struct{}),
		now:    time.Now,
	}
	// The last start time is inclusive.
	for t := start; !t.After(end); t = t.Add(step) {
		label := t.Format(clockLayout)
		s.times = append(s.times, label)
		s.index[label] = struct{}{}
	}
	return s, nil
}

// Availability lists booked and open start times for date. On the current
// day, times already past are not offered.
func (s *Service) Availability(ctx context.Context, date string) (*model.ConsultationAvailability, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, errors.NewMissingFields("date")
	}
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.BookedTimes(ctx, date)
	if err != nil {
		s.logger.WithContext(ctx).Error(err, "failed to load booked consultations", "date", date)
		return nil, errors.Internal(fmt.Errorf("failed to query consultation availability: %w", err))
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	now := s.now().In(s.loc)
	available := make([]string, 0, len(s.times))
	for _, t := range s.times {
		if _, ok := taken[t]; ok {
			continue
		}
		if start, _ := s.slotStart(day, t); !start.After(now) {
			continue
		}
		available = append(available, t)
	}

	if booked == nil {
		booked = []string{}
	}
	return &model.ConsultationAvailability{
		Date:      date,
		Booked:    booked,
		Available: available,
	}, nil
}

func (s *Service) Request(ctx context.Context, req Request) (*model.Consultation, error) {
	log := s.logger.WithContext(ctx)

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Phone == "" {
		missing = append(missing, "phone")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingFields(missing...)
	}

	day, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, ok := s.index[req.Time]; !ok {
		appErr := errors.NewValidation(fmt.Sprintf(
			"time must be a %d-minute slot between %s and %s",
			int(s.step/time.Minute), s.times[0], s.times[len(s.times)-1]))
		appErr.Fields = []string{"time"}
		return nil, appErr
	}

	start, _ := s.slotStart(day, req.Time)
	if !start.After(s.now()) {
		appErr := errors.NewValidation("This slot is in the past.")
		appErr.Fields = []string{"time"}
		return nil, appErr
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = model.DefaultConsultationTopic
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = model.DefaultConsultationSource
	}

	c := &model.Consultation{
		ID:        uuid.NewString(),
		Date:      req.Date,
		Time:      req.Time,
		EndTime:   start.Add(s.step).Format(clockLayout),
		Timezone:  s.loc.String(),
		Name:      req.Name,
		Email:     optional(req.Email),
		Phone:     req.Phone,
		Topic:     topic,
		Source:    source,
		Notes:     optional(req.Notes),
		Status:    model.ConsultationStatusRequested,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if stderrors.Is(err, repository.ErrSlotTaken) {
			log.Info("consultation slot already taken", "date", c.Date, "time", c.Time)
			return nil, errors.NewConflict(SlotTakenMessage, err)
		}
		log.Error(err, "failed to create consultation")
		return nil, errors.Internal(fmt.Errorf("failed to create consultation: %w", err))
	}

	if err := s.events.Emit(ctx, model.EventConsultationRequested, c.ID, c); err != nil {
		log.Error(err, "failed to emit consultation event", "consultation_id", c.ID)
	}

	return c, nil
}

func (s *Service) parseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(model.DateLayout, date, s.loc)
	if err != nil {
		appErr := errors.NewValidation("date must be a valid calendar date (YYYY-MM-DD)")
		appErr.Fields = []string{"date"}
		return time.Time{}, appErr
	}
	return day, nil
}

func (s *Service) slotStart(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, s.loc), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
