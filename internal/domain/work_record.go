package domain

import "time"

// WorkRecord is a time booking of a resource against a project.
type WorkRecord struct {
	ID              string     `json:"id,omitempty"`
	CompanyID       string     `json:"companyId,omitempty"`
	CompanyTitle    string     `json:"companyTitle,omitempty"`
	ProjectID       string     `json:"projectId,omitempty"`
	ProjectTitle    string     `json:"projectTitle,omitempty"`
	ResourceID      string     `json:"resourceId,omitempty"`
	RateID          string     `json:"rateId,omitempty"`
	Billable        bool       `json:"billable"`
	Comment         string     `json:"comment,omitempty"`
	StartAt         time.Time  `json:"startAt"`
	DurationHours   int        `json:"durationHours"`
	DurationMinutes int        `json:"durationMinutes"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	CreatedBy       string     `json:"createdBy,omitempty"`
	ModifiedAt      *time.Time `json:"modifiedAt,omitempty"`
	ModifiedBy      string     `json:"modifiedBy,omitempty"`
}

// Quantity returns the booked duration as fractional hours.
func (r WorkRecord) Quantity() float64 {
	return JoinDuration(r.DurationHours, r.DurationMinutes)
}
