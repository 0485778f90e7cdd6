package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DefaultBusinessName = "Meu Negócio"
	DefaultPlanID       = "free"
	SubscriptionActive  = "active"
)

type Business struct {
	bun.BaseModel `bun:"table:businesses"`

	ID                 uuid.UUID    `bun:"id,pk,type:uuid"`
	OwnerUID           string       `bun:"owner_uid,notnull"`
	Email              string       `bun:"email,notnull"`
	Name               string       `bun:"name,notnull"`
	Slug               string       `bun:"slug,notnull"`
	PlanID             string       `bun:"plan_id,notnull"`
	SubscriptionStatus string       `bun:"subscription_status,notnull"`
	TimeZone           string       `bun:"time_zone,notnull"`
	WorkingHours       WorkingHours `bun:"working_hours,type:jsonb,notnull"`
	Address            string       `bun:"address,notnull"`
	ContactPhone       string       `bun:"contact_phone,notnull"`
	InstagramURL       string       `bun:"instagram_url,notnull"`
	WhatsappLink       string       `bun:"whatsapp_link,notnull"`
	AboutDescription   string       `bun:"about_description,notnull"`
	Theme              Theme        `bun:"theme,type:jsonb,notnull"`
	CreatedAt          time.Time    `bun:"created_at,notnull"`
	UpdatedAt          time.Time    `bun:"updated_at,notnull"`
}

// Profile is the owner-editable public page information of a business.
type Profile struct {
	Address          string
	ContactPhone     string
	InstagramURL     string
	WhatsappLink     string
	AboutDescription string
	Theme            Theme
}

func (b *Business) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// Location resolves the business time zone, falling back to def when unset or unknown.
func (b Business) Location(def *time.Location) *time.Location {
	if b.TimeZone != "" {
		if loc, err := time.LoadLocation(b.TimeZone); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.UTC
	}
	return def
}

// Service is an entry of a business's catalogue.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	BusinessID      uuid.UUID `bun:"business_id,notnull,type:uuid"`
	Name            string    `bun:"name,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	PriceCents      int64     `bun:"price_cents,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}
