package scheduling

import (
	"time"
)

// Appointment maps to userAppointmentScheduled_table. DoctorID is not a
// foreign key: it may name a doctor that only exists in the blob directory.
type Appointment struct {
	ID              string    `db:"id" json:"id"`
	UserEmail       string    `db:"user_email" json:"user_email"`
	DoctorID        string    `db:"doctor_id" json:"doctor_id"`
	AppointmentDate string    `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string    `db:"appointment_time" json:"appointment_time"`
	AppointmentType string    `db:"appointment_type" json:"appointment_type"`
	Status          string    `db:"status" json:"status"`
	Reason          *string   `db:"reason" json:"reason,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentPatch carries a partial update. Nil fields are left unchanged.
type AppointmentPatch struct {
	AppointmentDate *string `json:"appointment_date"`
	AppointmentTime *string `json:"appointment_time"`
	AppointmentType *string `json:"appointment_type"`
	Status          *string `json:"status"`
	Reason          *string `json:"reason"`
	Notes           *string `json:"notes"`
}

// ListFilter narrows an appointment listing. Empty fields do not filter.
type ListFilter struct {
	UserEmail string
	DoctorID  string
	Status    string
	Date      string
}

const (
	StatusScheduled   = "scheduled"
	StatusConfirmed   = "confirmed"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
	StatusNoShow      = "no_show"
	StatusWaiting     = "waiting"
)

var validStatuses = map[string]bool{
	StatusScheduled:   true,
	StatusConfirmed:   true,
	StatusCompleted:   true,
	StatusCancelled:   true,
	StatusRescheduled: true,
	StatusNoShow:      true,
	StatusWaiting:     true,
}

// activeStatuses hold a doctor's slot.
var activeStatuses = []string{StatusScheduled, StatusConfirmed, StatusRescheduled, StatusWaiting}

func isActive(status string) bool {
	for _, s := range activeStatuses {
		if s == status {
			return true
		}
	}
	return false
}

var validTypes = map[string]bool{
	"in-person":  true,
	"telehealth": true,
}
