package model

import (
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// DateLayout is the ISO calendar-day format used for every date field.
const DateLayout = "2006-01-02"

// DefaultSource tags bookings that did not say where they came from.
const DefaultSource = "website"

// Appointment field names in JSON are the external contract other systems read.
type Appointment struct {
	ID             string            `db:"id" json:"id"`
	SeekerID       string            `db:"seeker_id" json:"seekerId"`
	SeekerName     string            `db:"seeker_name" json:"seekerName,omitempty"`
	CounsellorID   string            `db:"counsellor_id" json:"counsellorId"`
	CounsellorName string            `db:"counsellor_name" json:"counsellorName,omitempty"`
	SessionType    string            `db:"session_type" json:"sessionType,omitempty"`
	Date           string            `db:"date" json:"date"`
	TimeSlot       string            `db:"time_slot" json:"timeSlot"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Fee            float64           `db:"fee" json:"fee"`
	PaymentStatus  PaymentStatus     `db:"payment_status" json:"paymentStatus"`
	Notes          string            `db:"notes" json:"notes,omitempty"`
	Source         string            `db:"source" json:"source,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updatedAt"`
}

// SlotKey identifies the unit that can hold at most one active appointment.
type SlotKey struct {
	CounsellorID string
	Date         string
	TimeSlot     string
}

func (k SlotKey) String() string {
	return k.CounsellorID + "#" + k.Date + "#" + k.TimeSlot
}

func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{CounsellorID: a.CounsellorID, Date: a.Date, TimeSlot: a.TimeSlot}
}

// IsActive reports whether the appointment occupies its slot key.
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusCompleted},
	AppointmentStatusConfirmed: {AppointmentStatusCancelled, AppointmentStatusCompleted},
}

// CanTransition reports whether from -> to is a legal status change.
// CANCELLED and COMPLETED are terminal.
func CanTransition(from, to AppointmentStatus) bool {
	for _, s := range appointmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseAppointmentStatus accepts any casing of a known status.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	switch st := AppointmentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return st, true
	}
	return "", false
}

// CreateAppointmentInput is the canonical, already-normalised booking request.
type CreateAppointmentInput struct {
	SeekerID       string
	SeekerName     string
	CounsellorID   string
	CounsellorName string
	SessionType    string
	Date           string
	TimeSlot       string
	Fee            float64
	Notes          string
	Source         string
}

type AppointmentFilters struct {
	SeekerID     string
	CounsellorID string
	Date         string
	Status       AppointmentStatus
	Limit        int
	Offset       int
}
