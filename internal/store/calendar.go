package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

// CalendarTx is the set of operations available while a business calendar is locked.
type CalendarTx interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, businessID, appointmentID uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)

	ListBusy(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error)
}
