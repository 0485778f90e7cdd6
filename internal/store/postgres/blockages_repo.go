package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type BlockageRepo struct {
	db *bun.DB
}

func NewBlockageRepo(db *bun.DB) *BlockageRepo {
	return &BlockageRepo{db: db}
}

func (r *BlockageRepo) Create(ctx context.Context, b domain.Blockage) (domain.Blockage, error) {
	m := domain.Blockage{
		ID:         b.ID,
		BusinessID: b.BusinessID,
		StartTime:  b.StartTime.UTC(),
		EndTime:    b.EndTime.UTC(),
		Reason:     b.Reason,
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Blockage{}, mapWriteError(err)
	}
	return m, nil
}

func (r *BlockageRepo) List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Blockage, error) {
	var rows []domain.Blockage
	err := r.db.NewSelect().
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

func (r *BlockageRepo) Delete(ctx context.Context, businessID, blockageID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Blockage)(nil)).
		Where("business_id = ?", businessID).
		Where("id = ?", blockageID).
		Exec(ctx)
	if err != nil {
		return err
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
