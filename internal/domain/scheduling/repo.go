package scheduling

import (
	"context"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error)
	Update(ctx context.Context, id string, patch *AppointmentPatch) (*Appointment, error)
	Delete(ctx context.Context, id string) error
	// CountActiveAt counts active appointments holding the doctor's slot,
	// ignoring excludeID.
	CountActiveAt(ctx context.Context, doctorID, date, tm, excludeID string) (int, error)
}
