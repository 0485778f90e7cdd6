package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	db := Wrap(sqlDB)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

var appointmentColumns = []string{
	"id", "business_id", "service_id", "service_name", "client_name", "client_phone",
	"start_time", "end_time", "status", "created_at", "updated_at",
}

func TestAppointmentRepo_InBusinessTransactionLocksCalendar(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepo(db)

	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a01")
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\('` + businessID.String() + `'\)\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`(?s)FROM appointments\s+WHERE business_id = .* AND status <> 'cancelled'.*UNION ALL\s+SELECT start_time, end_time FROM blockages`).
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "end_time"}).
			AddRow(start.Add(3*time.Hour), start.Add(4*time.Hour)).
			AddRow(start.Add(time.Hour), start.Add(2*time.Hour)))
	mock.ExpectCommit()

	var busy []domain.BusyInterval
	err := repo.InBusinessTransaction(context.Background(), businessID, func(ctx context.Context, tx store.CalendarTx) error {
		var err error
		busy, err = tx.ListBusy(ctx, businessID, start, end)
		return err
	})
	if err != nil {
		t.Fatalf("InBusinessTransaction error: %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("len(busy) = %d, want 2", len(busy))
	}
	if !busy[0].Start.Equal(start.Add(time.Hour)) {
		t.Fatalf("busy not sorted: %+v", busy)
	}
	assertExpectations(t, mock)
}

func TestAppointmentRepo_InBusinessTransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepo(db)
	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a02")

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InBusinessTransaction(context.Background(), businessID, func(ctx context.Context, tx store.CalendarTx) error {
		return store.ErrConflict
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want %v", err, store.ErrConflict)
	}
	assertExpectations(t, mock)
}

func TestAppointmentRepo_Get(t *testing.T) {
	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a03")
	apptID := uuid.MustParse("00000000-0000-0000-0000-000000000b01")
	serviceID := uuid.MustParse("00000000-0000-0000-0000-000000000c01")
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM "appointments" AS "appointment"`).
			WillReturnRows(sqlmock.NewRows(appointmentColumns).AddRow(
				apptID.String(), businessID.String(), serviceID.String(), "Corte", "Ana", "+5511999990000",
				start, start.Add(30*time.Minute), "confirmed", start, start,
			))

		got, err := NewAppointmentRepo(db).Get(context.Background(), businessID, apptID)
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if got.ID != apptID || got.Status != domain.AppointmentStatusConfirmed || got.ServiceName != "Corte" {
			t.Fatalf("unexpected appointment: %+v", got)
		}
		assertExpectations(t, mock)
	})

	t.Run("missing maps to not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM "appointments" AS "appointment"`).
			WillReturnRows(sqlmock.NewRows(appointmentColumns))

		_, err := NewAppointmentRepo(db).Get(context.Background(), businessID, apptID)
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
		}
		assertExpectations(t, mock)
	})
}

func TestCalendarTx_UpdateAppointmentStatusUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepo(db)
	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a04")

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "appointments" SET status = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InBusinessTransaction(context.Background(), businessID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.UpdateAppointmentStatus(ctx, businessID, uuid.New(), domain.AppointmentStatusCancelled)
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
	assertExpectations(t, mock)
}

func TestBlockageRepo_DeleteUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM "blockages"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewBlockageRepo(db).Delete(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
	assertExpectations(t, mock)
}

func TestBusinessRepo_GetBySlugNormalizesLegacyHours(t *testing.T) {
	db, mock := newMockDB(t)
	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a05")
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM "businesses" AS "business" WHERE \(slug = 'negocio-abc123'\)`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_uid", "email", "name", "slug", "plan_id", "subscription_status",
			"time_zone", "working_hours", "created_at", "updated_at",
		}).AddRow(
			businessID.String(), "abc123xyz", "owner@example.com", domain.DefaultBusinessName, "negocio-abc123",
			domain.DefaultPlanID, domain.SubscriptionActive, "America/Sao_Paulo",
			[]byte(`{"segunda":{"isOpen":true,"start":"09:00","end":"18:00"}}`), now, now,
		))

	got, err := NewBusinessRepo(db).GetBySlug(context.Background(), "negocio-abc123")
	if err != nil {
		t.Fatalf("GetBySlug error: %v", err)
	}
	mon, ok := got.WorkingHours.ForWeekday(time.Monday)
	if !ok || !mon.IsOpen || len(mon.Intervals) != 1 || mon.Intervals[0].End != "18:00" {
		t.Fatalf("monday = %+v (ok=%v), want normalized legacy window", mon, ok)
	}
	assertExpectations(t, mock)
}

func TestServiceRepo_UpdateScopedToBusiness(t *testing.T) {
	db, mock := newMockDB(t)
	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a06")
	serviceID := uuid.MustParse("00000000-0000-0000-0000-000000000c06")
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)UPDATE "services" SET name = 'Corte longo', duration_minutes = 60, price_cents = 8000, updated_at = .* WHERE \(business_id = .*\) AND \(id = .*\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM "services" AS "service" WHERE \(business_id = `).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "business_id", "name", "duration_minutes", "price_cents", "created_at", "updated_at",
		}).AddRow(serviceID.String(), businessID.String(), "Corte longo", 60, 8000, now, now))

	got, err := NewServiceRepo(db).Update(context.Background(), domain.Service{
		ID: serviceID, BusinessID: businessID, Name: "Corte longo", DurationMinutes: 60, PriceCents: 8000,
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.DurationMinutes != 60 || got.Name != "Corte longo" {
		t.Fatalf("service = %+v", got)
	}
	assertExpectations(t, mock)
}

func TestServiceRepo_UpdateUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE "services"`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewServiceRepo(db).Update(context.Background(), domain.Service{
		ID: uuid.New(), BusinessID: uuid.New(), Name: "Corte", DurationMinutes: 30,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
	assertExpectations(t, mock)
}

func TestServiceRepo_DeleteUnknownID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM "services"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewServiceRepo(db).Delete(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
	assertExpectations(t, mock)
}

func TestBusinessRepo_UpdateProfileWritesThemeAsJSON(t *testing.T) {
	db, mock := newMockDB(t)
	businessID := uuid.MustParse("00000000-0000-0000-0000-000000000a07")
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)UPDATE "businesses" SET address = 'Rua das Flores, 10', .*theme = '\{"primaryColor":"#ff0066","textColor":"#ffffff","backgroundColor":"#f8f9fa"\}'.*WHERE \(id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM "businesses" AS "business" WHERE \(id = `).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "slug", "address", "theme", "created_at", "updated_at",
		}).AddRow(
			businessID.String(), "Studio", "negocio-abc123", "Rua das Flores, 10",
			[]byte(`{"primaryColor":"#ff0066"}`), now, now,
		))

	got, err := NewBusinessRepo(db).UpdateProfile(context.Background(), businessID, domain.Profile{
		Address: "Rua das Flores, 10",
		Theme:   domain.Theme{PrimaryColor: "#ff0066", TextColor: "#ffffff", BackgroundColor: "#f8f9fa"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if got.Address != "Rua das Flores, 10" {
		t.Fatalf("address = %q", got.Address)
	}
	// Colours missing from a stored document read back as defaults.
	if got.Theme.PrimaryColor != "#ff0066" || got.Theme.BackgroundColor != "#f8f9fa" {
		t.Fatalf("theme = %+v", got.Theme)
	}
	assertExpectations(t, mock)
}

func TestMapWriteError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "overlap", in: &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"}, want: store.ErrConflict},
		{name: "unique", in: &pgconn.PgError{Code: "23505", ConstraintName: "businesses_slug_key"}, want: store.ErrConflict},
		{name: "foreign key", in: &pgconn.PgError{Code: "23503"}, want: store.ErrNotFound},
		{name: "other", in: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapWriteError(tt.in); !errors.Is(got, tt.want) && got != tt.want {
				t.Fatalf("mapWriteError() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := mapAppointmentInsertError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_pkey"}); got != store.ErrIdempotencyConflict {
		t.Fatalf("pk clash = %v, want %v", got, store.ErrIdempotencyConflict)
	}
	if got := mapAppointmentInsertError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_no_overlap"}); got != store.ErrConflict {
		t.Fatalf("overlap = %v, want %v", got, store.ErrConflict)
	}
}
