package availability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/observability/metrics"
	"agenda/backend/internal/store"
)

type fakeBusinesses struct {
	getFn func(ctx context.Context, businessID uuid.UUID) (domain.Business, error)
}

func (f *fakeBusinesses) Get(ctx context.Context, businessID uuid.UUID) (domain.Business, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, businessID)
}

type fakeServices struct {
	getFn func(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error)
}

func (f *fakeServices) Get(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, businessID, serviceID)
}

type fakeBusy struct {
	listBusyFn func(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error)
}

func (f *fakeBusy) ListBusy(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error) {
	if f.listBusyFn == nil {
		panic("ListBusy not configured")
	}
	return f.listBusyFn(ctx, businessID, windowStart, windowEnd)
}

var (
	businessID = uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	serviceID  = uuid.MustParse("00000000-0000-0000-0000-00000000c001")
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	return loc
}

func thursdayBusiness(tz string, intervals ...domain.TimeInterval) domain.Business {
	return domain.Business{
		ID:       businessID,
		TimeZone: tz,
		WorkingHours: domain.WorkingHours{
			"thursday": {IsOpen: true, Intervals: intervals},
			"saturday": {IsOpen: false, Intervals: []domain.TimeInterval{{Start: "09:00", End: "18:00"}}},
		},
	}
}

type fixture struct {
	biz  domain.Business
	svc  domain.Service
	busy []domain.BusyInterval

	gotWindowStart time.Time
	gotWindowEnd   time.Time
}

func (f *fixture) service(t *testing.T, opts ...Option) *Service {
	t.Helper()
	businesses := &fakeBusinesses{getFn: func(ctx context.Context, id uuid.UUID) (domain.Business, error) {
		if id != f.biz.ID {
			return domain.Business{}, store.ErrNotFound
		}
		return f.biz, nil
	}}
	services := &fakeServices{getFn: func(ctx context.Context, bID, sID uuid.UUID) (domain.Service, error) {
		if sID != f.svc.ID {
			return domain.Service{}, store.ErrNotFound
		}
		return f.svc, nil
	}}
	busy := &fakeBusy{listBusyFn: func(ctx context.Context, id uuid.UUID, ws, we time.Time) ([]domain.BusyInterval, error) {
		f.gotWindowStart, f.gotWindowEnd = ws, we
		return f.busy, nil
	}}

	loc := saoPaulo(t)
	base := []Option{
		WithClock(func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, loc) }),
		WithDefaultLocation(loc),
		WithMetrics(metrics.NewAvailabilityMetrics(prometheus.NewRegistry())),
	}
	return NewService(businesses, services, busy, append(base, opts...)...)
}

func formatUTC(slots []time.Time) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, s.UTC().Format("15:04"))
	}
	return strings.Join(parts, ",")
}

func TestServiceAvailableSlots_ValidationErrorType(t *testing.T) {
	f := &fixture{}
	svc := f.service(t)

	tests := []struct {
		name string
		in   SlotsInput
		msg  string
	}{
		{name: "business", in: SlotsInput{ServiceID: serviceID, Date: time.Now()}, msg: "business_id is required"},
		{name: "service", in: SlotsInput{BusinessID: businessID, Date: time.Now()}, msg: "service_id is required"},
		{name: "date", in: SlotsInput{BusinessID: businessID, ServiceID: serviceID}, msg: "date is required"},
		{name: "civil date", in: SlotsInput{BusinessID: businessID, ServiceID: serviceID, Day: "15/10/2026"}, msg: "date must be YYYY-MM-DD or RFC3339"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AvailableSlots(context.Background(), tt.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if vErr.Error() != tt.msg {
				t.Fatalf("error = %q, want %q", vErr.Error(), tt.msg)
			}
		})
	}
}

func TestServiceAvailableSlots_ComputesAgainstBusyWindow(t *testing.T) {
	loc := saoPaulo(t)
	f := &fixture{
		biz: thursdayBusiness("America/Sao_Paulo", domain.TimeInterval{Start: "09:00", End: "10:00"}),
		svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 30},
		busy: []domain.BusyInterval{{
			Start: time.Date(2026, 10, 15, 9, 30, 0, 0, loc),
			End:   time.Date(2026, 10, 15, 10, 0, 0, 0, loc),
		}},
	}

	slots, err := f.service(t).AvailableSlots(context.Background(), SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Date:       time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if got := formatUTC(slots); got != "12:00" {
		t.Fatalf("slots = %s, want 12:00", got)
	}

	wantStart := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	if !f.gotWindowStart.Equal(wantStart) || !f.gotWindowEnd.Equal(wantStart.Add(24*time.Hour)) {
		t.Fatalf("busy window = [%v, %v), want local day", f.gotWindowStart, f.gotWindowEnd)
	}
}

func TestServiceAvailableSlots_CivilDayUsesBusinessZone(t *testing.T) {
	f := &fixture{
		biz: thursdayBusiness("America/Sao_Paulo", domain.TimeInterval{Start: "09:00", End: "10:00"}),
		svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 60},
	}

	slots, err := f.service(t).AvailableSlots(context.Background(), SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Day:        "2026-10-15",
	})
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if got := formatUTC(slots); got != "12:00" {
		t.Fatalf("slots = %s, want 12:00", got)
	}
}

func TestServiceAvailableSlots_FallsBackToDefaultZone(t *testing.T) {
	for _, tz := range []string{"", "Nowhere/Special"} {
		t.Run("tz="+tz, func(t *testing.T) {
			f := &fixture{
				biz: thursdayBusiness(tz, domain.TimeInterval{Start: "09:00", End: "09:30"}),
				svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 30},
			}
			slots, err := f.service(t).AvailableSlots(context.Background(), SlotsInput{
				BusinessID: businessID,
				ServiceID:  serviceID,
				Day:        "2026-10-15",
			})
			if err != nil {
				t.Fatalf("AvailableSlots error: %v", err)
			}
			if got := formatUTC(slots); got != "12:00" {
				t.Fatalf("slots = %s, want 12:00", got)
			}
		})
	}
}

func TestServiceAvailableSlots_ClosedDaySkipsBusyRead(t *testing.T) {
	f := &fixture{
		biz: thursdayBusiness("America/Sao_Paulo"),
		svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 30},
	}
	svc := f.service(t)
	svc.busy = &fakeBusy{}

	slots, err := svc.AvailableSlots(context.Background(), SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Day:        "2026-10-17",
	})
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if slots == nil || len(slots) != 0 {
		t.Fatalf("slots = %#v, want empty non-nil", slots)
	}
}

func TestServiceAvailableSlots_Errors(t *testing.T) {
	t.Run("unknown business", func(t *testing.T) {
		f := &fixture{biz: domain.Business{ID: uuid.New()}}
		_, err := f.service(t).AvailableSlots(context.Background(), SlotsInput{BusinessID: businessID, ServiceID: serviceID, Day: "2026-10-15"})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
		}
	})

	t.Run("service of another business", func(t *testing.T) {
		f := &fixture{
			biz: thursdayBusiness("America/Sao_Paulo", domain.TimeInterval{Start: "09:00", End: "10:00"}),
			svc: domain.Service{ID: serviceID, BusinessID: uuid.New(), DurationMinutes: 30},
		}
		_, err := f.service(t).AvailableSlots(context.Background(), SlotsInput{BusinessID: businessID, ServiceID: serviceID, Day: "2026-10-15"})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
		}
	})

	t.Run("non-positive duration", func(t *testing.T) {
		f := &fixture{
			biz: thursdayBusiness("America/Sao_Paulo", domain.TimeInterval{Start: "09:00", End: "10:00"}),
			svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 0},
		}
		_, err := f.service(t).AvailableSlots(context.Background(), SlotsInput{BusinessID: businessID, ServiceID: serviceID, Day: "2026-10-15"})
		if !errors.Is(err, domain.ErrInvalidService) {
			t.Fatalf("err = %v, want %v", err, domain.ErrInvalidService)
		}
	})

	t.Run("busy read failure", func(t *testing.T) {
		f := &fixture{
			biz: thursdayBusiness("America/Sao_Paulo", domain.TimeInterval{Start: "09:00", End: "10:00"}),
			svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 30},
		}
		svc := f.service(t)
		boom := errors.New("db down")
		svc.busy = &fakeBusy{listBusyFn: func(ctx context.Context, id uuid.UUID, ws, we time.Time) ([]domain.BusyInterval, error) {
			return nil, boom
		}}
		_, err := svc.AvailableSlots(context.Background(), SlotsInput{BusinessID: businessID, ServiceID: serviceID, Day: "2026-10-15"})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	})
}

func TestServiceAvailableSlots_LogsMalformedIntervals(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := &fixture{
		biz: thursdayBusiness("America/Sao_Paulo",
			domain.TimeInterval{Start: "9h", End: "10:00"},
			domain.TimeInterval{Start: "14:00", End: "15:00"},
		),
		svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 60},
	}

	slots, err := f.service(t, WithLogger(log)).AvailableSlots(context.Background(), SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Day:        "2026-10-15",
	})
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if got := formatUTC(slots); got != "17:00" {
		t.Fatalf("slots = %s, want 17:00", got)
	}
	out := buf.String()
	if !strings.Contains(out, "skipping malformed working-hours interval") || !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected warn log, got %s", out)
	}
	if !strings.Contains(out, `"component":"availability"`) {
		t.Fatalf("expected component attribute, got %s", out)
	}
}

func TestServiceIsBookable(t *testing.T) {
	loc := saoPaulo(t)
	f := &fixture{
		biz: thursdayBusiness("America/Sao_Paulo", domain.TimeInterval{Start: "09:00", End: "11:00"}),
		svc: domain.Service{ID: serviceID, BusinessID: businessID, DurationMinutes: 60},
	}
	svc := f.service(t)
	tx := &fakeBusy{listBusyFn: func(ctx context.Context, id uuid.UUID, ws, we time.Time) ([]domain.BusyInterval, error) {
		return []domain.BusyInterval{{
			Start: time.Date(2026, 10, 15, 10, 0, 0, 0, loc),
			End:   time.Date(2026, 10, 15, 11, 0, 0, 0, loc),
		}}, nil
	}}

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{name: "offered slot", start: time.Date(2026, 10, 15, 9, 0, 0, 0, loc), want: true},
		{name: "busy slot", start: time.Date(2026, 10, 15, 10, 0, 0, 0, loc), want: false},
		{name: "off grid", start: time.Date(2026, 10, 15, 9, 15, 0, 0, loc), want: false},
		{name: "outside hours", start: time.Date(2026, 10, 15, 18, 0, 0, 0, loc), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsBookable(context.Background(), f.biz, f.svc, tt.start, tx)
			if err != nil {
				t.Fatalf("IsBookable error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("IsBookable = %v, want %v", got, tt.want)
			}
		})
	}
}
