package store

import (
	"context"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

type BusinessRepository interface {
	Create(ctx context.Context, b domain.Business) (domain.Business, error)
	Get(ctx context.Context, businessID uuid.UUID) (domain.Business, error)
	GetBySlug(ctx context.Context, slug string) (domain.Business, error)
	GetByOwner(ctx context.Context, ownerUID string) (domain.Business, error)
	UpdateWorkingHours(ctx context.Context, businessID uuid.UUID, hours domain.WorkingHours) (domain.Business, error)
	UpdateTimeZone(ctx context.Context, businessID uuid.UUID, timeZone string) (domain.Business, error)
	UpdateProfile(ctx context.Context, businessID uuid.UUID, p domain.Profile) (domain.Business, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, s domain.Service) (domain.Service, error)
	Get(ctx context.Context, businessID, serviceID uuid.UUID) (domain.Service, error)
	List(ctx context.Context, businessID uuid.UUID) ([]domain.Service, error)
	Update(ctx context.Context, s domain.Service) (domain.Service, error)
	Delete(ctx context.Context, businessID, serviceID uuid.UUID) error
}
