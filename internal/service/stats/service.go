package stats

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

// todayLimit bounds the number of appointments listed for one day.
const todayLimit = 500

type Service struct {
	seekers      repository.SeekerRepository
	counsellors  repository.CounsellorRepository
	assessments  repository.AssessmentRepository
	appointments repository.AppointmentRepository
	loc          *time.Location
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	seekers repository.SeekerRepository,
	counsellors repository.CounsellorRepository,
	assessments repository.AssessmentRepository,
	appointments repository.AppointmentRepository,
	loc *time.Location,
	logger *logger.Logger,
) *Service {
	return &Service{
		seekers:      seekers,
		counsellors:  counsellors,
		assessments:  assessments,
		appointments: appointments,
		loc:          loc,
		logger:       logger,
		now:          time.Now,
	}
}

// Collect runs every read concurrently. A failed read leaves its fields at
// zero and adds a warning; it never fails the whole call.
func (s *Service) Collect(ctx context.Context) *model.AdminStats {
	out := &model.AdminStats{
		UsersList:         []model.SeekerSummary{},
		AppointmentsToday: []model.TodayAppointment{},
		Warnings:          []string{},
	}

	var mu sync.Mutex
	warn := func(msg string, err error) {
		s.logger.WithContext(ctx).Error(err, msg)
		mu.Lock()
		out.Warnings = append(out.Warnings, msg)
		mu.Unlock()
	}

	today := s.now().In(s.loc).Format(model.DateLayout)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.seekers.ListSeekers(gctx)
		if err != nil {
			warn("users unavailable", err)
			return nil
		}
		mu.Lock()
		out.Users = len(list)
		out.UsersList = list
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := s.counsellors.Count(gctx)
		if err != nil {
			warn("counsellors unavailable", err)
			return nil
		}
		mu.Lock()
		out.Counsellors = n
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := s.assessments.Count(gctx)
		if err != nil {
			warn("assessments unavailable", err)
			return nil
		}
		mu.Lock()
		out.Assessments = n
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		list, err := s.todayAppointments(gctx, today, warn)
		if err != nil {
			warn("today's appointments unavailable", err)
			return nil
		}
		mu.Lock()
		out.AppointmentsToday = list
		out.AppointmentsTodayCount = len(list)
		mu.Unlock()
		return nil
	})

	// Every goroutine reports through warn and returns nil.
	_ = g.Wait()

	return out
}

func (s *Service) todayAppointments(ctx context.Context, today string, warn func(string, error)) ([]model.TodayAppointment, error) {
	apts, err := s.appointments.List(ctx, model.AppointmentFilters{Date: today, Limit: todayLimit})
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, a := range apts {
		if !a.IsActive() {
			continue
		}
		if _, ok := seen[a.CounsellorID]; !ok {
			seen[a.CounsellorID] = struct{}{}
			ids = append(ids, a.CounsellorID)
		}
	}

	names := map[string]*model.Counsellor{}
	if len(ids) > 0 {
		if names, err = s.counsellors.GetMany(ctx, ids); err != nil {
			warn("counsellor names unavailable", err)
			names = map[string]*model.Counsellor{}
		}
	}

	out := make([]model.TodayAppointment, 0, len(apts))
	for _, a := range apts {
		if !a.IsActive() {
			continue
		}
		name := a.CounsellorName
		if c, ok := names[a.CounsellorID]; ok && c.Name != "" {
			name = c.Name
		}
		out = append(out, model.TodayAppointment{
			AppointmentID:  a.ID,
			UserID:         a.SeekerID,
			UserName:       a.SeekerName,
			CounsellorID:   a.CounsellorID,
			CounsellorName: name,
			Date:           a.Date,
			TimeSlot:       a.TimeSlot,
		})
	}
	return out, nil
}
