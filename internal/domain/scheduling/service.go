package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carepilot/carepilot/internal/platform/httperr"
	"github.com/carepilot/carepilot/internal/platform/ids"
)

// ErrSlotTaken is returned when another active appointment holds the slot.
var ErrSlotTaken = fmt.Errorf("%w: doctor already has an appointment at that time", httperr.ErrConflict)

type Service struct {
	appointments AppointmentRepository
}

func NewService(appt AppointmentRepository) *Service {
	return &Service{appointments: appt}
}

func validateDate(d string) error {
	if _, err := time.Parse("2006-01-02", d); err != nil {
		return httperr.Invalidf("appointment_date must be YYYY-MM-DD")
	}
	return nil
}

func validateTime(t string) error {
	if _, err := time.Parse("15:04", t); err != nil || len(t) != 5 {
		return httperr.Invalidf("appointment_time must be HH:MM")
	}
	return nil
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	a.UserEmail = strings.TrimSpace(a.UserEmail)
	if a.UserEmail == "" {
		return httperr.Invalidf("user_email is required")
	}
	if a.DoctorID == "" {
		return httperr.Invalidf("doctor_id is required")
	}
	if err := validateDate(a.AppointmentDate); err != nil {
		return err
	}
	if err := validateTime(a.AppointmentTime); err != nil {
		return err
	}
	if a.AppointmentType == "" {
		a.AppointmentType = "in-person"
	}
	if !validTypes[a.AppointmentType] {
		return httperr.Invalidf("invalid appointment_type: %s", a.AppointmentType)
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return httperr.Invalidf("invalid status: %s", a.Status)
	}

	a.ID = ids.New("apt")
	if isActive(a.Status) {
		if err := s.checkSlot(ctx, a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.ID); err != nil {
			return err
		}
	}
	return s.appointments.Create(ctx, a)
}

func (s *Service) checkSlot(ctx context.Context, doctorID, date, tm, excludeID string) error {
	n, err := s.appointments.CountActiveAt(ctx, doctorID, date, tm, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrSlotTaken
	}
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, httperr.Invalidf("invalid status: %s", f.Status)
	}
	return s.appointments.List(ctx, f, limit, offset)
}

// UpdateAppointment applies patch. Moving an appointment, or reactivating
// it, re-checks that the target slot is free.
func (s *Service) UpdateAppointment(ctx context.Context, id string, patch *AppointmentPatch) (*Appointment, error) {
	if patch.AppointmentDate != nil {
		if err := validateDate(*patch.AppointmentDate); err != nil {
			return nil, err
		}
	}
	if patch.AppointmentTime != nil {
		if err := validateTime(*patch.AppointmentTime); err != nil {
			return nil, err
		}
	}
	if patch.AppointmentType != nil && !validTypes[*patch.AppointmentType] {
		return nil, httperr.Invalidf("invalid appointment_type: %s", *patch.AppointmentType)
	}
	if patch.Status != nil && !validStatuses[*patch.Status] {
		return nil, httperr.Invalidf("invalid status: %s", *patch.Status)
	}

	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	date, tm, status := existing.AppointmentDate, existing.AppointmentTime, existing.Status
	if patch.AppointmentDate != nil {
		date = *patch.AppointmentDate
	}
	if patch.AppointmentTime != nil {
		tm = *patch.AppointmentTime
	}
	if patch.Status != nil {
		status = *patch.Status
	}
	moved := date != existing.AppointmentDate || tm != existing.AppointmentTime
	reactivated := isActive(status) && !isActive(existing.Status)
	if isActive(status) && (moved || reactivated) {
		if err := s.checkSlot(ctx, existing.DoctorID, date, tm, id); err != nil {
			return nil, err
		}
	}
	return s.appointments.Update(ctx, id, patch)
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	return s.appointments.Delete(ctx, id)
}

// IsSlotTaken reports whether err is a double-booking rejection.
func IsSlotTaken(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}
