package model

import "time"

const ConsultationStatusRequested = "requested"

const (
	DefaultConsultationTopic  = "Free 15-min Consultation"
	DefaultConsultationSource = "faq_consultation"
)

// Consultation is a free introductory call. Only one may exist per (date, time).
type Consultation struct {
	ID        string    `db:"id" json:"id"`
	Date      string    `db:"date" json:"date"`
	Time      string    `db:"time" json:"time"`
	EndTime   string    `db:"end_time" json:"endTime"`
	Timezone  string    `db:"tz" json:"tz"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     string    `db:"phone" json:"phone"`
	Topic     string    `db:"topic" json:"topic"`
	Source    string    `db:"source" json:"source"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ConsultationAvailability struct {
	Date      string   `json:"date"`
	Booked    []string `json:"booked"`
	Available []string `json:"available"`
}
