package http

import (
	"time"

	"agenda/backend/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type slotsResponse struct {
	AvailableSlots []time.Time `json:"availableSlots"`
}

type businessResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Slug         string              `json:"slug"`
	Email        string              `json:"email,omitempty"`
	TimeZone     string              `json:"timeZone"`
	WorkingHours domain.WorkingHours `json:"workingHours"`
	profileFields
	Services []serviceResponse `json:"services,omitempty"`
}

type profileFields struct {
	Address          string       `json:"address"`
	ContactPhone     string       `json:"contactPhone"`
	InstagramURL     string       `json:"instagramUrl"`
	WhatsappLink     string       `json:"whatsappLink"`
	AboutDescription string       `json:"aboutDescription"`
	Theme            domain.Theme `json:"theme"`
}

type serviceResponse struct {
	ID              string `json:"id"`
	BusinessID      string `json:"businessId"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	PriceCents      int64  `json:"priceCents"`
}

type appointmentResponse struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"businessId"`
	ServiceID   string    `json:"serviceId"`
	ServiceName string    `json:"serviceName"`
	ClientName  string    `json:"clientName"`
	ClientPhone string    `json:"clientPhone"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type blockageResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Reason    string    `json:"reason,omitempty"`
}

type provisionRequest struct {
	OwnerUID string `json:"ownerUid"`
	Email    string `json:"email"`
}

type timeZoneRequest struct {
	TimeZone string `json:"timeZone"`
}

type profileRequest profileFields

func (p profileRequest) toProfile() domain.Profile {
	return domain.Profile{
		Address:          p.Address,
		ContactPhone:     p.ContactPhone,
		InstagramURL:     p.InstagramURL,
		WhatsappLink:     p.WhatsappLink,
		AboutDescription: p.AboutDescription,
		Theme:            p.Theme,
	}
}

// createServiceRequest is also the body of a service update.
type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	PriceCents      int64  `json:"priceCents"`
}

type createAppointmentRequest struct {
	ServiceID   string     `json:"serviceId"`
	ClientName  string     `json:"clientName"`
	ClientPhone string     `json:"clientPhone"`
	StartTime   *time.Time `json:"startTime"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type createBlockageRequest struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Reason    string     `json:"reason"`
}

func toBusinessResponse(b domain.Business, services []domain.Service, withEmail bool) businessResponse {
	out := businessResponse{
		ID:           b.ID.String(),
		Name:         b.Name,
		Slug:         b.Slug,
		TimeZone:     b.TimeZone,
		WorkingHours: b.WorkingHours,
		profileFields: profileFields{
			Address:          b.Address,
			ContactPhone:     b.ContactPhone,
			InstagramURL:     b.InstagramURL,
			WhatsappLink:     b.WhatsappLink,
			AboutDescription: b.AboutDescription,
			Theme:            b.Theme,
		},
	}
	if withEmail {
		out.Email = b.Email
	}
	for _, s := range services {
		out.Services = append(out.Services, toServiceResponse(s))
	}
	return out
}

func toServiceResponse(s domain.Service) serviceResponse {
	return serviceResponse{
		ID:              s.ID.String(),
		BusinessID:      s.BusinessID.String(),
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		PriceCents:      s.PriceCents,
	}
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:          a.ID.String(),
		BusinessID:  a.BusinessID.String(),
		ServiceID:   a.ServiceID.String(),
		ServiceName: a.ServiceName,
		ClientName:  a.ClientName,
		ClientPhone: a.ClientPhone,
		StartTime:   a.StartTime.UTC(),
		EndTime:     a.EndTime.UTC(),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

func toBlockageResponse(b domain.Blockage) blockageResponse {
	return blockageResponse{
		ID:        b.ID.String(),
		StartTime: b.StartTime.UTC(),
		EndTime:   b.EndTime.UTC(),
		Reason:    b.Reason,
	}
}
