package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

type AppointmentRepository interface {
	// InBusinessTransaction runs fn in a transaction that holds the business calendar lock.
	InBusinessTransaction(ctx context.Context, businessID uuid.UUID, fn func(ctx context.Context, tx CalendarTx) error) error

	List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	Get(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error)
}

type BlockageRepository interface {
	Create(ctx context.Context, b domain.Blockage) (domain.Blockage, error)
	List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Blockage, error)
	Delete(ctx context.Context, businessID, blockageID uuid.UUID) error
}

// BusyReader returns committed time ranges (non-cancelled appointments and blockages)
// overlapping [windowStart, windowEnd).
type BusyReader interface {
	ListBusy(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error)
}
