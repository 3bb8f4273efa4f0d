package model

import "time"

// AddictionProgramTag marks counsellors running the 12-step programme; the
// public listing uses it to separate addiction counsellors from the rest.
const AddictionProgramTag = "AA 12-Step"

type Counsellor struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email,omitempty"`
	Phone              string    `db:"phone" json:"phone,omitempty"`
	Specialization     string    `db:"specialization" json:"specialization"`
	SubSpecializations []string  `db:"-" json:"subSpecializations"`
	Languages          []string  `db:"-" json:"languages"`
	ExperienceYears    float64   `db:"experience_years" json:"experienceYears"`
	FeePerSessionINR   float64   `db:"fee_per_session_inr" json:"feePerSessionINR"`
	PhotoURL           string    `db:"photo_url" json:"photoUrl"`
	Bio                string    `db:"bio" json:"bio"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// HasSubSpecialization does a case-sensitive exact tag lookup.
func (c *Counsellor) HasSubSpecialization(tag string) bool {
	for _, s := range c.SubSpecializations {
		if s == tag {
			return true
		}
	}
	return false
}

// CounsellorUpdate carries the admin-editable fields. Nil means unchanged.
type CounsellorUpdate struct {
	Name               *string
	Email              *string
	Phone              *string
	Specialization     *string
	SubSpecializations []string
	Bio                *string
	PhotoURL           *string
	ExperienceYears    *float64
	FeePerSessionINR   *float64
	Languages          []string
	Active             *bool
}

// IsEmpty reports whether the update touches nothing.
func (u *CounsellorUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.Specialization == nil &&
		u.SubSpecializations == nil && u.Bio == nil && u.PhotoURL == nil &&
		u.ExperienceYears == nil && u.FeePerSessionINR == nil && u.Languages == nil && u.Active == nil
}

// Apply copies every set field onto c.
func (u *CounsellorUpdate) Apply(c *Counsellor) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Specialization != nil {
		c.Specialization = *u.Specialization
	}
	if u.SubSpecializations != nil {
		c.SubSpecializations = u.SubSpecializations
	}
	if u.Bio != nil {
		c.Bio = *u.Bio
	}
	if u.PhotoURL != nil {
		c.PhotoURL = *u.PhotoURL
	}
	if u.ExperienceYears != nil {
		c.ExperienceYears = *u.ExperienceYears
	}
	if u.FeePerSessionINR != nil {
		c.FeePerSessionINR = *u.FeePerSessionINR
	}
	if u.Languages != nil {
		c.Languages = u.Languages
	}
	if u.Active != nil {
		c.Active = *u.Active
	}
}

type CounsellorFilters struct {
	// ProgramTag, when set, keeps (Include=true) or drops (Include=false)
	// counsellors carrying this sub-specialisation.
	ProgramTag string
	Include    bool
	ActiveOnly bool
	Limit      int
	Offset     int
}
