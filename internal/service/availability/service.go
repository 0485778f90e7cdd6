package availability

import (
	"context"
	"errors"
	"log/slog"
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

type BusinessReader interface {
	Get(ctx context.Context, businessID uuid.UUID) (domain.Business, error)
}

type ServiceReader interface {
	Get(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error)
}

type Service struct {
	businesses BusinessReader
	services   ServiceReader
	busy       store.BusyReader
	defaultLoc *time.Location
	now        func() time.Time
	log        *slog.Logger
	metrics    *metrics.AvailabilityMetrics
	tracer     trace.Tracer
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.AvailabilityMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDefaultLocation sets the zone used when a business has none or an unknown one.
func WithDefaultLocation(loc *time.Location) Option {
	return func(s *Service) { s.defaultLoc = loc }
}

func NewService(businesses BusinessReader, services ServiceReader, busy store.BusyReader, opts ...Option) *Service {
	s := &Service{
		businesses: businesses,
		services:   services,
		busy:       busy,
		defaultLoc: time.UTC,
		now:        time.Now,
		log:        slog.Default(),
		tracer:     otel.Tracer("agenda/backend/internal/service/availability"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(slog.String("component", "availability"))
	return s
}

type SlotsInput struct {
	BusinessID uuid.UUID
	ServiceID  uuid.UUID
	// Date picks a calendar day in the business time zone; time of day is ignored.
	Date time.Time
	// Day is a civil date ("2006-01-02") in the business time zone, or an RFC3339 instant
	// whose local day is used. It takes precedence over Date.
	Day string
}

// AvailableSlots lists the bookable start instants (UTC, ascending) of a service on a day.
func (s *Service) AvailableSlots(ctx context.Context, in SlotsInput) ([]time.Time, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "availability.AvailableSlots", trace.WithAttributes(
		attribute.String("business_id", in.BusinessID.String()),
		attribute.String("service_id", in.ServiceID.String()),
	))
	defer span.End()

	slots, err := s.availableSlots(ctx, in)
	s.metrics.ObserveSlotQuery(outcome(err), len(slots), time.Since(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

func (s *Service) availableSlots(ctx context.Context, in SlotsInput) ([]time.Time, error) {
	if in.BusinessID == uuid.Nil {
		return nil, validationError("business_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return nil, validationError("service_id is required")
	}
	var civil time.Time
	if in.Day != "" {
		if d, err := time.Parse(time.DateOnly, in.Day); err == nil {
			civil = d
		} else if ts, err := time.Parse(time.RFC3339, in.Day); err == nil {
			in.Date = ts
		} else {
			return nil, validationError("date must be YYYY-MM-DD or RFC3339")
		}
	} else if in.Date.IsZero() {
		return nil, validationError("date is required")
	}

	biz, svc, err := s.Lookup(ctx, in.BusinessID, in.ServiceID)
	if err != nil {
		return nil, err
	}

	date := in.Date
	if !civil.IsZero() {
		date = time.Date(civil.Year(), civil.Month(), civil.Day(), 12, 0, 0, 0, biz.Location(s.defaultLoc))
	}
	return s.slotsOn(ctx, biz, svc, date, s.busy)
}

// Lookup loads a business and one of its services. A service owned by another business
// is reported as store.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Business, domain.Service, error) {
	biz, err := s.businesses.Get(ctx, businessID)
	if err != nil {
		return domain.Business{}, domain.Service{}, err
	}
	svc, err := s.services.Get(ctx, businessID, serviceID)
	if err != nil {
		return domain.Business{}, domain.Service{}, err
	}
	if svc.BusinessID != uuid.Nil && svc.BusinessID != biz.ID {
		return domain.Business{}, domain.Service{}, store.ErrNotFound
	}
	return biz, svc, nil
}

// IsBookable reports whether start is one of the slots currently offered for svc, reading
// busy time through busy (typically a locked calendar transaction).
func (s *Service) IsBookable(ctx context.Context, biz domain.Business, svc domain.Service, start time.Time, busy store.BusyReader) (bool, error) {
	slots, err := s.slotsOn(ctx, biz, svc, start, busy)
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) slotsOn(ctx context.Context, biz domain.Business, svc domain.Service, date time.Time, busy store.BusyReader) ([]time.Time, error) {
	if svc.DurationMinutes <= 0 {
		return nil, domain.ErrInvalidService
	}

	loc := biz.Location(s.defaultLoc)
	dayStart, dayEnd := domain.DayWindow(date, loc)
	local := date.In(loc)

	var day *domain.DayConfig
	if cfg, ok := biz.WorkingHours.ForWeekday(local.Weekday()); ok {
		day = &cfg
	}
	if day == nil || !day.IsOpen {
		return []time.Time{}, nil
	}

	intervals, err := busy.ListBusy(ctx, biz.ID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}

	res, err := domain.ComputeAvailableSlots(domain.SlotQuery{
		Day:             day,
		DurationMinutes: svc.DurationMinutes,
		Busy:            intervals,
		Date:            local,
		Location:        loc,
		Now:             s.now(),
	})
	if err != nil {
		return nil, err
	}

	for _, sk := range res.Skipped {
		s.log.WarnContext(ctx, "skipping malformed working-hours interval",
			slog.String("business_id", biz.ID.String()),
			slog.String("weekday", domain.WeekdayKey(local.Weekday())),
			slog.Int("index", sk.Index),
			slog.String("start", sk.Interval.Start),
			slog.String("end", sk.Interval.End),
			slog.Any("err", sk.Err),
		)
	}
	s.metrics.ObserveSkippedIntervals(len(res.Skipped))

	if res.Slots == nil {
		return []time.Time{}, nil
	}
	return res.Slots, nil
}

func outcome(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, store.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &vErr), errors.Is(err, domain.ErrInvalidService):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
