package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

type seekerStub struct {
	list []model.SeekerSummary
	err  error
}

func (s seekerStub) ListSeekers(ctx context.Context) ([]model.SeekerSummary, error) {
	return s.list, s.err
}

type counsellorStub struct {
	count    int
	countErr error
	byID     map[string]*model.Counsellor
	manyErr  error
}

func (c counsellorStub) Create(ctx context.Context, x *model.Counsellor) error {
	return nil
}
func (c counsellorStub) Upsert(ctx context.Context, x *model.Counsellor) error {
	return nil
}
func (c counsellorStub) Get(ctx context.Context, id string) (*model.Counsellor, error) {
	return nil, nil
}
func (c counsellorStub) Update(ctx context.Context, x *model.Counsellor) error {
	return nil
}
func (c counsellorStub) Delete(ctx context.Context, id string) error {
	return nil
}
func (c counsellorStub) List(ctx context.Context, f model.CounsellorFilters) ([]*model.Counsellor, int, error) {
	return nil, 0, nil
}
func (c counsellorStub) ListActive(ctx context.Context) ([]*model.Counsellor, error) {
	return nil, nil
}
func (c counsellorStub) GetMany(ctx context.Context, ids []string) (map[string]*model.Counsellor, error) {
	return c.byID, c.manyErr
}
func (c counsellorStub) Count(ctx context.Context) (int, error) {
	return c.count, c.countErr
}

type assessmentStub struct {
	count int
	err   error
}

func (a assessmentStub) Create(ctx context.Context, x *model.Assessment) error {
	return nil
}
func (a assessmentStub) ListByUser(ctx context.Context, userID string) ([]*model.Assessment, error) {
	return nil, nil
}
func (a assessmentStub) Count(ctx context.Context) (int, error) {
	return a.count, a.err
}

type appointmentStub struct {
	list    []*model.Appointment
	err     error
	gotDate *string
}

func (a appointmentStub) Create(ctx context.Context, x *model.Appointment) error {
	return nil
}
func (a appointmentStub) Get(ctx context.Context, id string) (*model.Appointment, error) {
	return nil, nil
}
func (a appointmentStub) BookedSlots(ctx context.Context, counsellorID, date string) ([]string, error) {
	return nil, nil
}
func (a appointmentStub) List(ctx context.Context, f model.AppointmentFilters) ([]*model.Appointment, error) {
	if a.gotDate != nil {
		*a.gotDate = f.Date
	}
	return a.list, a.err
}
func (a appointmentStub) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error) {
	return nil, nil
}

func fixedService(seekers seekerStub, counsellors counsellorStub, assessments assessmentStub, appointments appointmentStub) *Service {
	loc := time.FixedZone("IST", 5*3600+1800)
	svc := NewService(seekers, counsellors, assessments, appointments, loc, logger.Nop())
	// 2025-03-01 20:00 UTC is already 2025-03-02 in IST.
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC) }
	return svc
}

func TestCollect(t *testing.T) {
	var gotDate string
	svc := fixedService(
		seekerStub{list: []model.SeekerSummary{{UserID: "u1", Name: "Asha"}, {UserID: "u2"}}},
		counsellorStub{count: 7, byID: map[string]*model.Counsellor{"c1": {ID: "c1", Name: "Dr Rao"}}},
		assessmentStub{count: 12},
		appointmentStub{
			gotDate: &gotDate,
			list: []*model.Appointment{
				{ID: "a1", SeekerID: "u1", CounsellorID: "c1", Date: "2025-03-02", TimeSlot: "09:00-09:30", Status: model.AppointmentStatusPending},
				{ID: "a2", SeekerID: "u2", CounsellorID: "c1", Date: "2025-03-02", TimeSlot: "09:30-10:00", Status: model.AppointmentStatusCancelled},
			},
		},
	)

	stats := svc.Collect(context.Background())

	assert.Equal(t, "2025-03-02", gotDate)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 7, stats.Counsellors)
	assert.Equal(t, 12, stats.Assessments)
	assert.Equal(t, 1, stats.AppointmentsTodayCount)
	require.Len(t, stats.AppointmentsToday, 1)
	assert.Equal(t, "Dr Rao", stats.AppointmentsToday[0].CounsellorName)
	assert.Empty(t, stats.Warnings)
}

func TestCollectPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	svc := fixedService(
		seekerStub{err: boom},
		counsellorStub{count: 3, manyErr: boom},
		assessmentStub{err: boom},
		appointmentStub{list: []*model.Appointment{
			{ID: "a1", CounsellorID: "c9", CounsellorName: "Stored Name", Status: model.AppointmentStatusConfirmed},
		}},
	)

	stats := svc.Collect(context.Background())

	assert.Equal(t, 3, stats.Counsellors)
	assert.Equal(t, 0, stats.Users)
	assert.NotNil(t, stats.UsersList)
	require.Len(t, stats.AppointmentsToday, 1)
	assert.Equal(t, "Stored Name", stats.AppointmentsToday[0].CounsellorName)
	assert.ElementsMatch(t, []string{
		"users unavailable",
		"assessments unavailable",
		"counsellor names unavailable",
	}, stats.Warnings)
}
