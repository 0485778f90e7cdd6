package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/service/appointments"
	"agenda/backend/internal/service/availability"
	"agenda/backend/internal/store"
)

type ListAvailableSlotsRequest struct {
	BusinessID string `json:"business_id"`
	ServiceID  string `json:"service_id"`
	// Date is YYYY-MM-DD in the business time zone or an RFC3339 instant.
	Date string `json:"date"`
}

type ListAvailableSlotsResponse struct {
	AvailableSlots []time.Time `json:"available_slots"`
}

type CreateAppointmentRequest struct {
	BusinessID  string     `json:"business_id"`
	ServiceID   string     `json:"service_id"`
	ClientName  string     `json:"client_name"`
	ClientPhone string     `json:"client_phone"`
	StartTime   *time.Time `json:"start_time,omitempty"`
}

type CreateAppointmentResponse struct {
	Appointment Appointment `json:"appointment"`
}

type Appointment struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BookingServer struct {
	slots slotsService
	appts appointmentsService
	log   *slog.Logger
}

type slotsService interface {
	AvailableSlots(ctx context.Context, in availability.SlotsInput) ([]time.Time, error)
}

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
}

func NewBookingServer(slots slotsService, appts appointmentsService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		slots: slots,
		appts: appts,
		log:   log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) ListAvailableSlots(ctx context.Context, req *ListAvailableSlotsRequest) (*ListAvailableSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAvailableSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	businessID, serviceID, err := parseIDs(req.BusinessID, req.ServiceID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}
	if strings.TrimSpace(req.Date) == "" {
		log.Warn("invalid request", slog.String("reason", "missing_date"), slog.String("business_id", req.BusinessID))
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}

	slots, err := s.slots.AvailableSlots(ctx, availability.SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Day:        strings.TrimSpace(req.Date),
	})
	if err != nil {
		var vErr *availability.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Warn("invalid request", slog.Any("err", err), slog.String("business_id", req.BusinessID))
			return nil, status.Error(codes.InvalidArgument, vErr.Error())
		case errors.Is(err, domain.ErrInvalidService):
			log.Warn("service not bookable", slog.String("business_id", req.BusinessID), slog.String("service_id", req.ServiceID))
			return nil, status.Error(codes.FailedPrecondition, "This service has no valid duration.")
		case errors.Is(err, store.ErrNotFound):
			log.Info("business or service not found", slog.String("business_id", req.BusinessID), slog.String("service_id", req.ServiceID))
			return nil, status.Error(codes.NotFound, "business or service not found")
		}
		log.Error("slots list failed", slog.Any("err", err), slog.String("business_id", req.BusinessID))
		return nil, status.Error(codes.Internal, "internal error")
	}

	log.Debug(
		"slots listed",
		slog.String("business_id", req.BusinessID),
		slog.String("service_id", req.ServiceID),
		slog.Int("count", len(slots)),
	)

	return &ListAvailableSlotsResponse{AvailableSlots: slots}, nil
}

func (s *BookingServer) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateAppointment"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	businessID, serviceID, err := parseIDs(req.BusinessID, req.ServiceID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"))
		return nil, err
	}
	if req.StartTime == nil {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("business_id", req.BusinessID))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	appt, err := s.appts.Create(ctx, appointments.CreateInput{
		BusinessID:     businessID,
		ServiceID:      serviceID,
		ClientName:     req.ClientName,
		ClientPhone:    req.ClientPhone,
		StartTime:      *req.StartTime,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info(
				"appointment create conflict",
				slog.String("business_id", req.BusinessID),
				slog.Time("start_time", *req.StartTime),
			)
			return nil, status.Error(codes.FailedPrecondition, "That time is no longer available. Pick a different slot.")
		}
		if errors.Is(err, store.ErrIdempotencyConflict) {
			log.Info("appointment create idempotency conflict", slog.String("business_id", req.BusinessID))
			return nil, status.Error(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.")
		}
		if errors.Is(err, domain.ErrInvalidService) {
			log.Warn("service not bookable", slog.String("business_id", req.BusinessID), slog.String("service_id", req.ServiceID))
			return nil, status.Error(codes.FailedPrecondition, "This service has no valid duration.")
		}
		if errors.Is(err, store.ErrNotFound) {
			log.Info("business or service not found", slog.String("business_id", req.BusinessID), slog.String("service_id", req.ServiceID))
			return nil, status.Error(codes.NotFound, "business or service not found")
		}
		var vErr *appointments.ValidationError
		if errors.As(err, &vErr) {
			log.Warn("invalid request", slog.Any("err", err), slog.String("business_id", req.BusinessID))
			return nil, status.Error(codes.InvalidArgument, vErr.Error())
		}
		log.Error("appointment create failed", slog.Any("err", err), slog.String("business_id", req.BusinessID))
		return nil, status.Error(codes.Internal, "internal error")
	}

	log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("business_id", appt.BusinessID.String()),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime),
	)

	return &CreateAppointmentResponse{Appointment: toAppointment(appt)}, nil
}

func parseIDs(rawBusinessID, rawServiceID string) (uuid.UUID, uuid.UUID, error) {
	businessID, err := uuid.Parse(strings.TrimSpace(rawBusinessID))
	if err != nil {
		return uuid.Nil, uuid.Nil, status.Error(codes.InvalidArgument, "business_id must be a UUID")
	}
	serviceID, err := uuid.Parse(strings.TrimSpace(rawServiceID))
	if err != nil {
		return uuid.Nil, uuid.Nil, status.Error(codes.InvalidArgument, "service_id must be a UUID")
	}
	return businessID, serviceID, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func toAppointment(a domain.Appointment) Appointment {
	return Appointment{
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
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}
