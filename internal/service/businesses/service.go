package businesses

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
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

const (
	slugPrefix       = "negocio-"
	slugOwnerChars   = 6
	maxServiceMins   = 24 * 60
	maxServiceName   = 120
	maxProfileField  = 300
	maxAboutText     = 2000
	provisionRetries = 3
)

type Service struct {
	businesses      store.BusinessRepository
	services        store.ServiceRepository
	defaultTimeZone string
	log             *slog.Logger
}

func NewService(businesses store.BusinessRepository, services store.ServiceRepository, defaultTimeZone string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		businesses:      businesses,
		services:        services,
		defaultTimeZone: defaultTimeZone,
		log:             log.With(slog.String("component", "businesses")),
	}
}

// Provision creates the business document of a newly registered owner. Calling it again
// for the same owner returns the existing business.
func (s *Service) Provision(ctx context.Context, ownerUID, email string) (domain.Business, error) {
	ownerUID = strings.TrimSpace(ownerUID)
	if ownerUID == "" {
		return domain.Business{}, validationError("owner_uid is required")
	}

	existing, err := s.businesses.GetByOwner(ctx, ownerUID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Business{}, err
	}

	slug := defaultSlug(ownerUID)
	for attempt := 0; attempt < provisionRetries; attempt++ {
		created, err := s.businesses.Create(ctx, domain.Business{
			OwnerUID:           ownerUID,
			Email:              strings.TrimSpace(email),
			Name:               domain.DefaultBusinessName,
			Slug:               slug,
			PlanID:             domain.DefaultPlanID,
			SubscriptionStatus: domain.SubscriptionActive,
			TimeZone:           s.defaultTimeZone,
			WorkingHours:       domain.DefaultWorkingHours(),
			Theme:              domain.DefaultTheme(),
		})
		if err == nil {
			s.log.InfoContext(ctx, "business provisioned",
				slog.String("business_id", created.ID.String()),
				slog.String("slug", created.Slug),
			)
			return created, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return domain.Business{}, err
		}

		// Either a concurrent provision for the same owner won, or the slug is taken.
		if existing, err := s.businesses.GetByOwner(ctx, ownerUID); err == nil {
			return existing, nil
		}
		slug = defaultSlug(ownerUID) + "-" + uuid.NewString()[:4]
	}
	return domain.Business{}, store.ErrConflict
}

func defaultSlug(ownerUID string) string {
	prefix := ownerUID
	if len(prefix) > slugOwnerChars {
		prefix = prefix[:slugOwnerChars]
	}
	return slugPrefix + strings.ToLower(prefix)
}

func (s *Service) Get(ctx context.Context, businessID uuid.UUID) (domain.Business, error) {
	if businessID == uuid.Nil {
		return domain.Business{}, validationError("business_id is required")
	}
	return s.businesses.Get(ctx, businessID)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (domain.Business, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Business{}, validationError("slug is required")
	}
	return s.businesses.GetBySlug(ctx, slug)
}

func (s *Service) UpdateWorkingHours(ctx context.Context, businessID uuid.UUID, hours domain.WorkingHours) (domain.Business, error) {
	if businessID == uuid.Nil {
		return domain.Business{}, validationError("business_id is required")
	}
	if hours == nil {
		return domain.Business{}, validationError("working_hours is required")
	}
	if err := hours.Validate(); err != nil {
		return domain.Business{}, validationError(err.Error())
	}
	return s.businesses.UpdateWorkingHours(ctx, businessID, hours)
}

func (s *Service) UpdateTimeZone(ctx context.Context, businessID uuid.UUID, timeZone string) (domain.Business, error) {
	if businessID == uuid.Nil {
		return domain.Business{}, validationError("business_id is required")
	}
	tz := strings.TrimSpace(timeZone)
	if tz == "" {
		return domain.Business{}, validationError("time_zone is required")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return domain.Business{}, validationError("invalid time_zone")
	}
	return s.businesses.UpdateTimeZone(ctx, businessID, tz)
}

// UpdateProfile replaces the public page information. An empty theme colour falls back to
// the default palette.
func (s *Service) UpdateProfile(ctx context.Context, businessID uuid.UUID, p domain.Profile) (domain.Business, error) {
	if businessID == uuid.Nil {
		return domain.Business{}, validationError("business_id is required")
	}
	p = domain.Profile{
		Address:          strings.TrimSpace(p.Address),
		ContactPhone:     strings.TrimSpace(p.ContactPhone),
		InstagramURL:     strings.TrimSpace(p.InstagramURL),
		WhatsappLink:     strings.TrimSpace(p.WhatsappLink),
		AboutDescription: strings.TrimSpace(p.AboutDescription),
		Theme:            p.Theme.WithDefaults(),
	}
	for _, f := range []struct{ name, value string }{
		{"address", p.Address},
		{"contact_phone", p.ContactPhone},
		{"instagram_url", p.InstagramURL},
		{"whatsapp_link", p.WhatsappLink},
	} {
		if len(f.value) > maxProfileField {
			return domain.Business{}, validationError(f.name + " too long")
		}
	}
	if len(p.AboutDescription) > maxAboutText {
		return domain.Business{}, validationError("about_description too long")
	}
	if err := validLink(p.InstagramURL); err != nil {
		return domain.Business{}, validationError("instagram_url " + err.Error())
	}
	if err := validLink(p.WhatsappLink); err != nil {
		return domain.Business{}, validationError("whatsapp_link " + err.Error())
	}
	if err := p.Theme.Validate(); err != nil {
		return domain.Business{}, validationError(err.Error())
	}
	return s.businesses.UpdateProfile(ctx, businessID, p)
}

// validLink accepts an empty value or an absolute http(s) URL.
func validLink(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

type CreateServiceInput struct {
	BusinessID      uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int64
}

func (s *Service) CreateService(ctx context.Context, in CreateServiceInput) (domain.Service, error) {
	svc, err := serviceFields(in.BusinessID, in.Name, in.DurationMinutes, in.PriceCents)
	if err != nil {
		return domain.Service{}, err
	}
	if _, err := s.businesses.Get(ctx, in.BusinessID); err != nil {
		return domain.Service{}, err
	}
	return s.services.Create(ctx, svc)
}

type UpdateServiceInput struct {
	BusinessID      uuid.UUID
	ServiceID       uuid.UUID
	Name            string
	DurationMinutes int
	PriceCents      int64
}

// UpdateService replaces the catalogue fields of a service. Slots computed afterwards use
// the new duration; existing appointments keep their stored times and service name.
func (s *Service) UpdateService(ctx context.Context, in UpdateServiceInput) (domain.Service, error) {
	if in.ServiceID == uuid.Nil {
		return domain.Service{}, validationError("service_id is required")
	}
	svc, err := serviceFields(in.BusinessID, in.Name, in.DurationMinutes, in.PriceCents)
	if err != nil {
		return domain.Service{}, err
	}
	svc.ID = in.ServiceID
	updated, err := s.services.Update(ctx, svc)
	if err != nil {
		return domain.Service{}, err
	}
	s.log.InfoContext(ctx, "service updated",
		slog.String("business_id", in.BusinessID.String()),
		slog.String("service_id", in.ServiceID.String()),
		slog.Int("duration_minutes", updated.DurationMinutes),
	)
	return updated, nil
}

func (s *Service) DeleteService(ctx context.Context, businessID, serviceID uuid.UUID) error {
	if businessID == uuid.Nil {
		return validationError("business_id is required")
	}
	if serviceID == uuid.Nil {
		return validationError("service_id is required")
	}
	if err := s.services.Delete(ctx, businessID, serviceID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "service deleted",
		slog.String("business_id", businessID.String()),
		slog.String("service_id", serviceID.String()),
	)
	return nil
}

// serviceFields holds the validation shared by create and update.
func serviceFields(businessID uuid.UUID, name string, durationMinutes int, priceCents int64) (domain.Service, error) {
	if businessID == uuid.Nil {
		return domain.Service{}, validationError("business_id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Service{}, validationError("name is required")
	}
	if len(name) > maxServiceName {
		return domain.Service{}, validationError("name too long")
	}
	if durationMinutes <= 0 || durationMinutes > maxServiceMins {
		return domain.Service{}, validationError("duration_minutes must be between 1 and 1440")
	}
	if priceCents < 0 {
		return domain.Service{}, validationError("price_cents must not be negative")
	}
	return domain.Service{
		BusinessID:      businessID,
		Name:            name,
		DurationMinutes: durationMinutes,
		PriceCents:      priceCents,
	}, nil
}

func (s *Service) ListServices(ctx context.Context, businessID uuid.UUID) ([]domain.Service, error) {
	if businessID == uuid.Nil {
		return nil, validationError("business_id is required")
	}
	return s.services.List(ctx, businessID)
}
