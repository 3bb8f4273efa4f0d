// Package memory is a process-local implementation of the repositories for
// development and tests. A single mutex is the arbitration point for slot
// claims, so it only guards bookings made through one process.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zencounsel/counsel-api/internal/model"
	"github.com/zencounsel/counsel-api/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	appointments map[string]*model.Appointment
	activeSlots  map[model.SlotKey]string

	counsellors     map[string]*model.Counsellor
	counsellorOrder []string

	consultations map[string]*model.Consultation
	assessments   []*model.Assessment
	outbox        []*model.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		appointments:  make(map[string]*model.Appointment),
		activeSlots:   make(map[model.SlotKey]string),
		counsellors:   make(map[string]*model.Counsellor),
		consultations: make(map[string]*model.Consultation),
	}
}

func (s *Store) Appointments() repository.AppointmentRepository   { return appointmentRepo{s} }
func (s *Store) Counsellors() repository.CounsellorRepository     { return counsellorRepo{s} }
func (s *Store) Consultations() repository.ConsultationRepository { return consultationRepo{s} }
func (s *Store) Assessments() repository.AssessmentRepository     { return assessmentRepo{s} }
func (s *Store) Seekers() repository.SeekerRepository             { return seekerRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.appointments[a.ID]; exists {
		return repository.ErrDuplicate
	}
	key := a.SlotKey()
	if a.IsActive() {
		if _, taken := r.s.activeSlots[key]; taken {
			return repository.ErrSlotTaken
		}
		r.s.activeSlots[key] = a.ID
	}
	cp := *a
	r.s.appointments[a.ID] = &cp
	return nil
}

func (r appointmentRepo) Get(ctx context.Context, id string) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r appointmentRepo) BookedSlots(ctx context.Context, counsellorID, date string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	slots := []string{}
	for k := range r.s.activeSlots {
		if k.CounsellorID == counsellorID && k.Date == date {
			slots = append(slots, k.TimeSlot)
		}
	}
	sort.Strings(slots)
	return slots, nil
}

func (r appointmentRepo) List(ctx context.Context, f model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Appointment{}
	for _, a := range r.s.appointments {
		if f.SeekerID != "" && a.SeekerID != f.SeekerID {
			continue
		}
		if f.CounsellorID != "" && a.CounsellorID != f.CounsellorID {
			continue
		}
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].TimeSlot != out[j].TimeSlot {
			return out[i].TimeSlot < out[j].TimeSlot
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r appointmentRepo) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != from {
		return nil, repository.ErrStatusChanged
	}
	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	if !a.IsActive() {
		delete(r.s.activeSlots, a.SlotKey())
	}
	cp := *a
	return &cp, nil
}

type counsellorRepo struct{ s *Store }

func cloneCounsellor(c *model.Counsellor) *model.Counsellor {
	cp := *c
	cp.SubSpecializations = append([]string{}, c.SubSpecializations...)
	cp.Languages = append([]string{}, c.Languages...)
	return &cp
}

func (r counsellorRepo) Create(ctx context.Context, c *model.Counsellor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.counsellors[c.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.counsellors[c.ID] = cloneCounsellor(c)
	r.s.counsellorOrder = append(r.s.counsellorOrder, c.ID)
	return nil
}

func (r counsellorRepo) Upsert(ctx context.Context, c *model.Counsellor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.counsellors[c.ID]; !ok {
		r.s.counsellorOrder = append(r.s.counsellorOrder, c.ID)
	}
	r.s.counsellors[c.ID] = cloneCounsellor(c)
	return nil
}

func (r counsellorRepo) Get(ctx context.Context, id string) (*model.Counsellor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.counsellors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneCounsellor(c), nil
}

func (r counsellorRepo) Update(ctx context.Context, c *model.Counsellor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.counsellors[c.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.counsellors[c.ID] = cloneCounsellor(c)
	return nil
}

func (r counsellorRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.counsellors[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.counsellors, id)
	for i, cid := range r.s.counsellorOrder {
		if cid == id {
			r.s.counsellorOrder = append(r.s.counsellorOrder[:i], r.s.counsellorOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (r counsellorRepo) List(ctx context.Context, f model.CounsellorFilters) ([]*model.Counsellor, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Counsellor{}
	for _, id := range r.s.counsellorOrder {
		c := r.s.counsellors[id]
		if f.ActiveOnly && !c.Active {
			continue
		}
		if f.ProgramTag != "" && c.HasSubSpecialization(f.ProgramTag) != f.Include {
			continue
		}
		out = append(out, cloneCounsellor(c))
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r counsellorRepo) ListActive(ctx context.Context) ([]*model.Counsellor, error) {
	list, _, err := r.List(ctx, model.CounsellorFilters{ActiveOnly: true})
	return list, err
}

func (r counsellorRepo) GetMany(ctx context.Context, ids []string) (map[string]*model.Counsellor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]*model.Counsellor, len(ids))
	for _, id := range ids {
		if c, ok := r.s.counsellors[id]; ok {
			out[id] = cloneCounsellor(c)
		}
	}
	return out, nil
}

func (r counsellorRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.counsellors), nil
}

type consultationRepo struct{ s *Store }

func (r consultationRepo) Create(ctx context.Context, c *model.Consultation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := c.Date + " " + c.Time
	if _, ok := r.s.consultations[key]; ok {
		return repository.ErrSlotTaken
	}
	cp := *c
	r.s.consultations[key] = &cp
	return nil
}

func (r consultationRepo) BookedTimes(ctx context.Context, date string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	times := []string{}
	for _, c := range r.s.consultations {
		if c.Date == date {
			times = append(times, c.Time)
		}
	}
	sort.Strings(times)
	return times, nil
}

type assessmentRepo struct{ s *Store }

func (r assessmentRepo) Create(ctx context.Context, a *model.Assessment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *a
	r.s.assessments = append(r.s.assessments, &cp)
	return nil
}

func (r assessmentRepo) ListByUser(ctx context.Context, userID string) ([]*model.Assessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*model.Assessment{}
	for i := len(r.s.assessments) - 1; i >= 0; i-- {
		if a := r.s.assessments[i]; a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r assessmentRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.assessments), nil
}

type seekerRepo struct{ s *Store }

func (r seekerRepo) ListSeekers(ctx context.Context) ([]model.SeekerSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	names := map[string]string{}
	latest := map[string]time.Time{}
	for _, a := range r.s.appointments {
		if _, ok := names[a.SeekerID]; !ok {
			names[a.SeekerID] = ""
		}
		if a.SeekerName != "" && a.CreatedAt.After(latest[a.SeekerID]) {
			names[a.SeekerID] = a.SeekerName
			latest[a.SeekerID] = a.CreatedAt
		}
	}
	for _, a := range r.s.assessments {
		if _, ok := names[a.UserID]; !ok {
			names[a.UserID] = ""
		}
	}

	out := make([]model.SeekerSummary, 0, len(names))
	for id, name := range names {
		if name == "" {
			name = id
		}
		out = append(out, model.SeekerSummary{UserID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *e
	r.s.outbox = append(r.s.outbox, &cp)
	return nil
}

func (r outboxRepo) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	out := []*model.OutboxEvent{}
	for _, e := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		until := now.Add(lease)
		e.RetryAt = &until
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r outboxRepo) find(id uuid.UUID) *model.OutboxEvent {
	for _, e := range r.s.outbox {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e := r.find(id)
	if e == nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	e.RetryAt = nil
	e.ErrorMessage = nil
	e.UpdatedAt = now
	return nil
}

func (r outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e := r.find(id)
	if e == nil {
		return repository.ErrNotFound
	}
	e.Status = model.OutboxStatusRetry
	if retryAt == nil {
		e.Status = model.OutboxStatusFailed
	}
	e.ErrorMessage = &errMsg
	e.RetryAt = retryAt
	e.RetryCount++
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.outbox[:0]
	var n int64
	for _, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.outbox = kept
	return n, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
