package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type BusinessRepo struct {
	db *bun.DB
}

func NewBusinessRepo(db *bun.DB) *BusinessRepo {
	return &BusinessRepo{db: db}
}

func (r *BusinessRepo) Create(ctx context.Context, b domain.Business) (domain.Business, error) {
	m := b
	if m.WorkingHours == nil {
		m.WorkingHours = domain.WorkingHours{}
	}
	m.Theme = m.Theme.WithDefaults()
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Business{}, mapWriteError(err)
	}
	return m, nil
}

func (r *BusinessRepo) Get(ctx context.Context, businessID uuid.UUID) (domain.Business, error) {
	return r.getWhere(ctx, "id = ?", businessID)
}

func (r *BusinessRepo) GetBySlug(ctx context.Context, slug string) (domain.Business, error) {
	return r.getWhere(ctx, "slug = ?", slug)
}

func (r *BusinessRepo) GetByOwner(ctx context.Context, ownerUID string) (domain.Business, error) {
	return r.getWhere(ctx, "owner_uid = ?", ownerUID)
}

func (r *BusinessRepo) getWhere(ctx context.Context, where string, arg any) (domain.Business, error) {
	var m domain.Business
	err := r.db.NewSelect().
		Model(&m).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Business{}, mapReadError(err)
	}
	return m, nil
}

func (r *BusinessRepo) UpdateWorkingHours(ctx context.Context, businessID uuid.UUID, hours domain.WorkingHours) (domain.Business, error) {
	return r.update(ctx, businessID, "working_hours = ?", hours)
}

func (r *BusinessRepo) UpdateTimeZone(ctx context.Context, businessID uuid.UUID, timeZone string) (domain.Business, error) {
	return r.update(ctx, businessID, "time_zone = ?", timeZone)
}

func (r *BusinessRepo) UpdateProfile(ctx context.Context, businessID uuid.UUID, p domain.Profile) (domain.Business, error) {
	res, err := r.db.NewUpdate().
		Table("businesses").
		Set("address = ?", p.Address).
		Set("contact_phone = ?", p.ContactPhone).
		Set("instagram_url = ?", p.InstagramURL).
		Set("whatsapp_link = ?", p.WhatsappLink).
		Set("about_description = ?", p.AboutDescription).
		Set("theme = ?", p.Theme).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", businessID).
		Exec(ctx)
	if err := checkAffected(res, err); err != nil {
		return domain.Business{}, err
	}
	return r.Get(ctx, businessID)
}

func (r *BusinessRepo) update(ctx context.Context, businessID uuid.UUID, set string, arg any) (domain.Business, error) {
	res, err := r.db.NewUpdate().
		Table("businesses").
		Set(set, arg).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", businessID).
		Exec(ctx)
	if err := checkAffected(res, err); err != nil {
		return domain.Business{}, err
	}
	return r.Get(ctx, businessID)
}

// checkAffected maps a write that matched no row to store.ErrNotFound.
func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return mapWriteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type ServiceRepo struct {
	db *bun.DB
}

func NewServiceRepo(db *bun.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

func (r *ServiceRepo) Create(ctx context.Context, s domain.Service) (domain.Service, error) {
	m := s
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Service{}, mapWriteError(err)
	}
	return m, nil
}

// Get scopes the lookup to the owning business, so a foreign service reads as not found.
func (r *ServiceRepo) Get(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error) {
	var m domain.Service
	err := r.db.NewSelect().
		Model(&m).
		Where("business_id = ?", businessID).
		Where("id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Service{}, mapReadError(err)
	}
	return m, nil
}

func (r *ServiceRepo) List(ctx context.Context, businessID uuid.UUID) ([]domain.Service, error) {
	var rows []domain.Service
	err := r.db.NewSelect().
		Model(&rows).
		Where("business_id = ?", businessID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update rewrites the catalogue fields of a service owned by s.BusinessID.
func (r *ServiceRepo) Update(ctx context.Context, s domain.Service) (domain.Service, error) {
	res, err := r.db.NewUpdate().
		Table("services").
		Set("name = ?", s.Name).
		Set("duration_minutes = ?", s.DurationMinutes).
		Set("price_cents = ?", s.PriceCents).
		Set("updated_at = ?", time.Now().UTC()).
		Where("business_id = ?", s.BusinessID).
		Where("id = ?", s.ID).
		Exec(ctx)
	if err := checkAffected(res, err); err != nil {
		return domain.Service{}, err
	}
	return r.Get(ctx, s.BusinessID, s.ID)
}

func (r *ServiceRepo) Delete(ctx context.Context, businessID, serviceID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Service)(nil)).
		Where("business_id = ?", businessID).
		Where("id = ?", serviceID).
		Exec(ctx)
	return checkAffected(res, err)
}
