package model

// SeekerSummary is a client who has booked or submitted an assessment.
type SeekerSummary struct {
	UserID string `db:"user_id" json:"userId"`
	Name   string `db:"name" json:"name"`
}

type TodayAppointment struct {
	AppointmentID  string `json:"appointmentId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
	CounsellorID   string `json:"counsellorId"`
	CounsellorName string `json:"counsellorName"`
	Date           string `json:"date"`
	TimeSlot       string `json:"timeSlot"`
}

type AdminStats struct {
	Users                  int                `json:"users"`
	UsersList              []SeekerSummary    `json:"usersList"`
	Counsellors            int                `json:"counsellors"`
	Assessments            int                `json:"assessments"`
	AppointmentsTodayCount int                `json:"appointmentsTodayCount"`
	AppointmentsToday      []TodayAppointment `json:"appointmentsToday"`
	Warnings               []string           `json:"warnings"`
}
