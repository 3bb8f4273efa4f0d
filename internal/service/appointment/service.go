package appointment

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/internal/service/event"
	"github.com/zencounsel/counsel-api/pkg/errors"
	"github.com/zencounsel/counsel-api/pkg/logger"
	"github.com/zencounsel/counsel-api/pkg/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Availability is the read-only view of one counsellor's day.
type Availability struct {
	CounsellorID   string   `json:"counsellorId"`
	Date           string   `json:"date"`
	BookedSlots    []string `json:"bookedSlots"`
	AvailableSlots []string `json:"availableSlots"`
}

// Service is the slot ledger. The at-most-one-active-booking rule lives in
// the repository's conditional write; nothing here locks.
type Service struct {
	repo      repository.AppointmentRepository
	catalogue *Catalogue
	events    event.Emitter
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	catalogue *Catalogue,
	events event.Emitter,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		catalogue: catalogue,
		events:    events,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// QueryAvailability returns the occupied labels for (counsellorID, date)
// together with the catalogue slots still free. It performs no writes.
func (s *Service) QueryAvailability(ctx context.Context, counsellorID, date string) (*Availability, error) {
	counsellorID = strings.TrimSpace(counsellorID)
	date = strings.TrimSpace(date)

	var missing []string
	if counsellorID == "" {
		missing = append(missing, "counsellorId")
	}
	if date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingFields(missing...)
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}

	s.metrics.AvailabilityQueries.Inc()

	slots, err := s.repo.BookedSlots(ctx, counsellorID, date)
	if err != nil {
		s.logger.WithContext(ctx).Error(err, "failed to load booked slots",
			"counsellor_id", counsellorID, "date", date)
		return nil, errors.Internal(fmt.Errorf("failed to query availability: %w", err))
	}

	booked := normalizeSet(slots)
	return &Availability{
		CounsellorID:   counsellorID,
		Date:           date,
		BookedSlots:    booked,
		AvailableSlots: s.catalogue.Available(booked),
	}, nil
}

// CreateAppointment admits a booking iff its slot key has no active
// appointment. A lost race surfaces as errors.ErrSlotTaken.
func (s *Service) CreateAppointment(ctx context.Context, input model.CreateAppointmentInput) (*model.Appointment, error) {
	log := s.logger.WithContext(ctx)

	input.SeekerID = strings.TrimSpace(input.SeekerID)
	input.CounsellorID = strings.TrimSpace(input.CounsellorID)
	input.Date = strings.TrimSpace(input.Date)
	input.TimeSlot = NormalizeSlot(input.TimeSlot)

	var missing []string
	if input.SeekerID == "" {
		missing = append(missing, "seekerId")
	}
	if input.CounsellorID == "" {
		missing = append(missing, "counsellorId")
	}
	if input.Date == "" {
		missing = append(missing, "date")
	}
	if input.TimeSlot == "" {
		missing = append(missing, "timeSlot")
	}
	if len(missing) > 0 {
		s.metrics.SlotClaims.WithLabelValues(metrics.ClaimInvalid).Inc()
		return nil, errors.NewMissingFields(missing...)
	}
	if err := validateDate(input.Date); err != nil {
		s.metrics.SlotClaims.WithLabelValues(metrics.ClaimInvalid).Inc()
		return nil, err
	}
	if !s.catalogue.Contains(input.TimeSlot) {
		s.metrics.SlotClaims.WithLabelValues(metrics.ClaimInvalid).Inc()
		appErr := errors.NewValidation(fmt.Sprintf("%q is not a bookable time slot", input.TimeSlot))
		appErr.Fields = []string{"timeSlot"}
		return nil, appErr
	}

	fee := input.Fee
	if fee < 0 || math.IsNaN(fee) || math.IsInf(fee, 0) {
		fee = 0
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = model.DefaultSource
	}

	now := s.now().UTC()
	apt := &model.Appointment{
		ID:             uuid.NewString(),
		SeekerID:       input.SeekerID,
		SeekerName:     strings.TrimSpace(input.SeekerName),
		CounsellorID:   input.CounsellorID,
		CounsellorName: strings.TrimSpace(input.CounsellorName),
		SessionType:    strings.TrimSpace(input.SessionType),
		Date:           input.Date,
		TimeSlot:       input.TimeSlot,
		Status:         model.AppointmentStatusPending,
		Fee:            fee,
		PaymentStatus:  model.PaymentStatusUnpaid,
		Notes:          strings.TrimSpace(input.Notes),
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if stderrors.Is(err, repository.ErrSlotTaken) {
			s.metrics.SlotClaims.WithLabelValues(metrics.ClaimConflict).Inc()
			log.Info("slot already taken", "slot_key", apt.SlotKey().String())
			return nil, errors.SlotTaken(err)
		}
		s.metrics.SlotClaims.WithLabelValues(metrics.ClaimError).Inc()
		log.Error(err, "failed to create appointment", "slot_key", apt.SlotKey().String())
		return nil, errors.Internal(fmt.Errorf("failed to create appointment: %w", err))
	}

	s.metrics.SlotClaims.WithLabelValues(metrics.ClaimAdmitted).Inc()
	log.Info("appointment created", "appointment_id", apt.ID, "slot_key", apt.SlotKey().String())

	if err := s.events.Emit(ctx, model.EventAppointmentCreated, apt.ID, apt); err != nil {
		log.Error(err, "failed to emit appointment event", "appointment_id", apt.ID)
	}

	return apt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewMissingFields("id")
	}

	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("appointment", err)
		}
		return nil, errors.Internal(fmt.Errorf("failed to get appointment: %w", err))
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	if filters.Date != "" {
		if err := validateDate(filters.Date); err != nil {
			return nil, err
		}
	}
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}
	if filters.Limit > maxListLimit {
		filters.Limit = maxListLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	return appointments, nil
}

type statusChange struct {
	ID           string                  `json:"id"`
	CounsellorID string                  `json:"counsellorId"`
	Date         string                  `json:"date"`
	TimeSlot     string                  `json:"timeSlot"`
	From         model.AppointmentStatus `json:"from"`
	To           model.AppointmentStatus `json:"to"`
}

// UpdateStatus applies one state machine step. Setting the current status
// again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id string, to model.AppointmentStatus) (*model.Appointment, error) {
	current, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	if !model.CanTransition(current.Status, to) {
		return nil, errors.NewConflict(
			fmt.Sprintf("invalid status transition from %s to %s", current.Status, to), nil)
	}

	updated, err := s.repo.UpdateStatus(ctx, current.ID, current.Status, to)
	if err != nil {
		switch {
		case stderrors.Is(err, repository.ErrStatusChanged):
			return nil, errors.NewConflict("appointment was changed by another request, please reload", err)
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errors.NotFound("appointment", err)
		}
		return nil, errors.Internal(fmt.Errorf("failed to update appointment status: %w", err))
	}

	s.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()

	change := statusChange{
		ID:           updated.ID,
		CounsellorID: updated.CounsellorID,
		Date:         updated.Date,
		TimeSlot:     updated.TimeSlot,
		From:         current.Status,
		To:           to,
	}
	if err := s.events.Emit(ctx, model.EventAppointmentStatusChanged, updated.ID, change); err != nil {
		s.logger.WithContext(ctx).Error(err, "failed to emit status event", "appointment_id", updated.ID)
	}

	return updated, nil
}

func validateDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		appErr := errors.NewValidation("date must be a valid calendar date (YYYY-MM-DD)")
		appErr.Fields = []string{"date"}
		return appErr
	}
	return nil
}

func normalizeSet(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		n := NormalizeSlot(l)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
