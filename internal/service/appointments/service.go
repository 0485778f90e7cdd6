package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/observability/metrics"
	"agenda/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// SlotChecker is the part of the availability service the write path depends on.
type SlotChecker interface {
	Lookup(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Business, domain.Service, error)
	IsBookable(ctx context.Context, biz domain.Business, svc domain.Service, start time.Time, busy store.BusyReader) (bool, error)
}

type Service struct {
	repo      store.AppointmentRepository
	blockages store.BlockageRepository
	slots     SlotChecker
	log       *slog.Logger
	metrics   *metrics.AvailabilityMetrics
	tracer    trace.Tracer
}

func NewService(repo store.AppointmentRepository, blockages store.BlockageRepository, slots SlotChecker, log *slog.Logger, m *metrics.AvailabilityMetrics) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repo,
		blockages: blockages,
		slots:     slots,
		log:       log.With(slog.String("component", "appointments")),
		metrics:   m,
		tracer:    otel.Tracer("agenda/backend/internal/service/appointments"),
	}
}

type CreateInput struct {
	BusinessID     uuid.UUID
	ServiceID      uuid.UUID
	ClientName     string
	ClientPhone    string
	StartTime      time.Time
	IdempotencyKey string
}

// Create books a slot. The start must be one of the instants currently offered for the
// service; this is re-checked while the business calendar is locked.
func (s *Service) Create(ctx context.Context, in CreateInput) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Create", trace.WithAttributes(
		attribute.String("business_id", in.BusinessID.String()),
		attribute.String("service_id", in.ServiceID.String()),
	))
	defer func() {
		s.metrics.ObserveBooking(bookingOutcome(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if in.BusinessID == uuid.Nil {
		return domain.Appointment{}, validationError("business_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return domain.Appointment{}, validationError("service_id is required")
	}
	clientName := strings.TrimSpace(in.ClientName)
	if clientName == "" {
		return domain.Appointment{}, validationError("client_name is required")
	}
	clientPhone := strings.TrimSpace(in.ClientPhone)
	if clientPhone == "" {
		return domain.Appointment{}, validationError("client_phone is required")
	}
	if in.StartTime.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 256 {
		return domain.Appointment{}, validationError("idempotency_key too long")
	}

	biz, svc, err := s.slots.Lookup(ctx, in.BusinessID, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if svc.DurationMinutes <= 0 {
		return domain.Appointment{}, domain.ErrInvalidService
	}

	start := in.StartTime.UTC()
	want := domain.Appointment{
		BusinessID:  biz.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		ClientName:  clientName,
		ClientPhone: clientPhone,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(svc.DurationMinutes) * time.Minute),
		Status:      domain.AppointmentStatusConfirmed,
	}
	if key != "" {
		want.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("agenda:create_appointment:"+biz.ID.String()+":"+key))
	}

	err = s.repo.InBusinessTransaction(ctx, biz.ID, func(ctx context.Context, tx store.CalendarTx) error {
		if key != "" {
			existing, err := tx.GetAppointment(ctx, biz.ID, want.ID)
			switch {
			case err == nil:
				if !sameBooking(existing, want) {
					return store.ErrIdempotencyConflict
				}
				appt = existing
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		ok, err := s.slots.IsBookable(ctx, biz, svc, start, tx)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrConflict
		}

		created, err := tx.CreateAppointment(ctx, want)
		if err != nil {
			return err
		}
		appt = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.log.InfoContext(ctx, "appointment booked",
		slog.String("business_id", appt.BusinessID.String()),
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
	)
	return appt, nil
}

func sameBooking(a, b domain.Appointment) bool {
	return a.BusinessID == b.BusinessID &&
		a.ServiceID == b.ServiceID &&
		a.ClientName == b.ClientName &&
		a.ClientPhone == b.ClientPhone &&
		a.StartTime.Equal(b.StartTime) &&
		a.EndTime.Equal(b.EndTime)
}

func bookingOutcome(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrIdempotencyConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, store.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &vErr), errors.Is(err, domain.ErrInvalidService):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if businessID == uuid.Nil {
		return nil, validationError("business_id is required")
	}

	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !end.After(start) {
		return nil, validationError("window_end must be after window_start")
	}

	return s.repo.List(ctx, businessID, start, end)
}

// UpdateStatus moves a confirmed appointment to completed or cancelled. Any other
// transition is a conflict.
func (s *Service) UpdateStatus(ctx context.Context, businessID, appointmentID uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	if businessID == uuid.Nil {
		return domain.Appointment{}, validationError("business_id is required")
	}
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if status != domain.AppointmentStatusCompleted && status != domain.AppointmentStatusCancelled {
		return domain.Appointment{}, validationError("status must be completed or cancelled")
	}

	var out domain.Appointment
	err := s.repo.InBusinessTransaction(ctx, businessID, func(ctx context.Context, tx store.CalendarTx) error {
		current, err := tx.GetAppointment(ctx, businessID, appointmentID)
		if err != nil {
			return err
		}
		if current.Status != domain.AppointmentStatusConfirmed {
			return store.ErrConflict
		}
		updated, err := tx.UpdateAppointmentStatus(ctx, businessID, appointmentID, status)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

type CreateBlockageInput struct {
	BusinessID uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Reason     string
}

func (s *Service) CreateBlockage(ctx context.Context, in CreateBlockageInput) (domain.Blockage, error) {
	if in.BusinessID == uuid.Nil {
		return domain.Blockage{}, validationError("business_id is required")
	}
	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if start.IsZero() || end.IsZero() {
		return domain.Blockage{}, validationError("start_time and end_time are required")
	}
	if !end.After(start) {
		return domain.Blockage{}, validationError("end_time must be after start_time")
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > 500 {
		return domain.Blockage{}, validationError("reason too long")
	}

	return s.blockages.Create(ctx, domain.Blockage{
		BusinessID: in.BusinessID,
		StartTime:  start,
		EndTime:    end,
		Reason:     reason,
	})
}

func (s *Service) ListBlockages(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Blockage, error) {
	if businessID == uuid.Nil {
		return nil, validationError("business_id is required")
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !end.After(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.blockages.List(ctx, businessID, start, end)
}

func (s *Service) DeleteBlockage(ctx context.Context, businessID, blockageID uuid.UUID) error {
	if businessID == uuid.Nil {
		return validationError("business_id is required")
	}
	if blockageID == uuid.Nil {
		return validationError("blockage_id is required")
	}
	return s.blockages.Delete(ctx, businessID, blockageID)
}
