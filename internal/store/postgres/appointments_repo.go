package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listAppointments(ctx, r.db, businessID, windowStart, windowEnd)
}

func (r *AppointmentRepo) Get(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.db, businessID, appointmentID)
}

func (r *AppointmentRepo) ListBusy(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error) {
	return listBusy(ctx, r.db, businessID, windowStart, windowEnd)
}

func (r *AppointmentRepo) InBusinessTransaction(ctx context.Context, businessID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockBusinessCalendar(ctx, tx, businessID); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

// lockBusinessCalendar serializes writers of one business until the transaction ends.
func lockBusinessCalendar(ctx context.Context, tx bun.Tx, businessID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", businessID.String()).Exec(ctx)
	return err
}

func (r calendarTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:          appt.ID,
		BusinessID:  appt.BusinessID,
		ServiceID:   appt.ServiceID,
		ServiceName: appt.ServiceName,
		ClientName:  appt.ClientName,
		ClientPhone: appt.ClientPhone,
		StartTime:   appt.StartTime.UTC(),
		EndTime:     appt.EndTime.UTC(),
		Status:      appt.Status,
		CreatedAt:   appt.CreatedAt,
		UpdatedAt:   appt.UpdatedAt,
	}

	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapAppointmentInsertError(err)
	}
	return m, nil
}

// mapAppointmentInsertError distinguishes a primary key clash, which only happens when an
// idempotency key is replayed concurrently, from the overlap guard.
func mapAppointmentInsertError(err error) error {
	mapped := mapWriteError(err)
	if mapped == store.ErrConflict && isUniqueViolation(err) {
		return store.ErrIdempotencyConflict
	}
	return mapped
}

func (r calendarTx) GetAppointment(ctx context.Context, businessID, appointmentID uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.tx, businessID, appointmentID)
}

func (r calendarTx) UpdateAppointmentStatus(ctx context.Context, businessID, appointmentID uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error) {
	res, err := r.tx.NewUpdate().
		Table("appointments").
		Set("status = ?", string(status)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("business_id = ?", businessID).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapWriteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return getAppointment(ctx, r.tx, businessID, appointmentID)
}

func (r calendarTx) ListBusy(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error) {
	return listBusy(ctx, r.tx, businessID, windowStart, windowEnd)
}

func listAppointments(ctx context.Context, db bun.IDB, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func getAppointment(ctx context.Context, db bun.IDB, businessID, appointmentID uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := db.NewSelect().
		Model(&m).
		Where("business_id = ?", businessID).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapReadError(err)
	}
	return m, nil
}

type busyRow struct {
	StartTime time.Time `bun:"start_time"`
	EndTime   time.Time `bun:"end_time"`
}

const busyQuery = `
SELECT start_time, end_time FROM appointments
WHERE business_id = ? AND status <> 'cancelled' AND start_time < ? AND end_time > ?
UNION ALL
SELECT start_time, end_time FROM blockages
WHERE business_id = ? AND start_time < ? AND end_time > ?`

func listBusy(ctx context.Context, db bun.IDB, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error) {
	var rows []busyRow
	err := db.NewRaw(busyQuery,
		businessID, windowEnd, windowStart,
		businessID, windowEnd, windowStart,
	).Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BusyInterval, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.BusyInterval{Start: r.StartTime.UTC(), End: r.EndTime.UTC()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}
