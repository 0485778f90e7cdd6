package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/service/appointments"
	"agenda/backend/internal/service/availability"
	"agenda/backend/internal/service/businesses"
	"agenda/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type AvailabilityService interface {
	AvailableSlots(ctx context.Context, in availability.SlotsInput) ([]time.Time, error)
}

type AppointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	List(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, businessID, appointmentID uuid.UUID, status domain.AppointmentStatus) (domain.Appointment, error)
	CreateBlockage(ctx context.Context, in appointments.CreateBlockageInput) (domain.Blockage, error)
	ListBlockages(ctx context.Context, businessID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Blockage, error)
	DeleteBlockage(ctx context.Context, businessID, blockageID uuid.UUID) error
}

type BusinessesService interface {
	Provision(ctx context.Context, ownerUID, email string) (domain.Business, error)
	Get(ctx context.Context, businessID uuid.UUID) (domain.Business, error)
	GetBySlug(ctx context.Context, slug string) (domain.Business, error)
	UpdateWorkingHours(ctx context.Context, businessID uuid.UUID, hours domain.WorkingHours) (domain.Business, error)
	UpdateTimeZone(ctx context.Context, businessID uuid.UUID, timeZone string) (domain.Business, error)
	CreateService(ctx context.Context, in businesses.CreateServiceInput) (domain.Service, error)
	ListServices(ctx context.Context, businessID uuid.UUID) ([]domain.Service, error)
	UpdateService(ctx context.Context, in businesses.UpdateServiceInput) (domain.Service, error)
	DeleteService(ctx context.Context, businessID, serviceID uuid.UUID) error
	UpdateProfile(ctx context.Context, businessID uuid.UUID, p domain.Profile) (domain.Business, error)
}

type Handler struct {
	slots      AvailabilityService
	appts      AppointmentsService
	businesses BusinessesService
	log        *slog.Logger
}

func NewHandler(slots AvailabilityService, appts AppointmentsService, biz BusinessesService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		slots:      slots,
		appts:      appts,
		businesses: biz,
		log:        log.With(slog.String("component", "http")),
	}
}

// ListSlots handles GET /v1/businesses/{businessID}/services/{serviceID}/slots?date=.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	serviceID, ok := h.uuidParam(w, r, "serviceID")
	if !ok {
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	slots, err := h.slots.AvailableSlots(r.Context(), availability.SlotsInput{
		BusinessID: businessID,
		ServiceID:  serviceID,
		Day:        date,
	})
	if err != nil {
		h.writeError(w, r, "slots list failed", err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{AvailableSlots: slots})
}

// PublicBusiness handles GET /v1/public/businesses/{slug}.
func (h *Handler) PublicBusiness(w http.ResponseWriter, r *http.Request) {
	biz, err := h.businesses.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, r, "public business lookup failed", err)
		return
	}
	services, err := h.businesses.ListServices(r.Context(), biz.ID)
	if err != nil {
		h.writeError(w, r, "public services list failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(biz, services, false))
}

func (h *Handler) ProvisionBusiness(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	biz, err := h.businesses.Provision(r.Context(), req.OwnerUID, req.Email)
	if err != nil {
		h.writeError(w, r, "business provision failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(biz, nil, true))
}

func (h *Handler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	biz, err := h.businesses.Get(r.Context(), businessID)
	if err != nil {
		h.writeError(w, r, "business get failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(biz, nil, true))
}

func (h *Handler) UpdateWorkingHours(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	var hours domain.WorkingHours
	if !h.decode(w, r, &hours) {
		return
	}
	biz, err := h.businesses.UpdateWorkingHours(r.Context(), businessID, hours)
	if err != nil {
		h.writeError(w, r, "working hours update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(biz, nil, true))
}

func (h *Handler) UpdateTimeZone(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	var req timeZoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	biz, err := h.businesses.UpdateTimeZone(r.Context(), businessID, req.TimeZone)
	if err != nil {
		h.writeError(w, r, "time zone update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(biz, nil, true))
}

// UpdateProfile handles PUT /v1/businesses/{businessID}/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	biz, err := h.businesses.UpdateProfile(r.Context(), businessID, req.toProfile())
	if err != nil {
		h.writeError(w, r, "profile update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(biz, nil, true))
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	var req createServiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	svc, err := h.businesses.CreateService(r.Context(), businesses.CreateServiceInput{
		BusinessID:      businessID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
	})
	if err != nil {
		h.writeError(w, r, "service create failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	services, err := h.businesses.ListServices(r.Context(), businessID)
	if err != nil {
		h.writeError(w, r, "services list failed", err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	serviceID, ok := h.uuidParam(w, r, "serviceID")
	if !ok {
		return
	}
	var req createServiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	svc, err := h.businesses.UpdateService(r.Context(), businesses.UpdateServiceInput{
		BusinessID:      businessID,
		ServiceID:       serviceID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
	})
	if err != nil {
		h.writeError(w, r, "service update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	serviceID, ok := h.uuidParam(w, r, "serviceID")
	if !ok {
		return
	}
	if err := h.businesses.DeleteService(r.Context(), businessID, serviceID); err != nil {
		h.writeError(w, r, "service delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAppointment handles POST /v1/businesses/{businessID}/appointments. A repeated
// Idempotency-Key returns the appointment created by the first request.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	var req createAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	serviceID, err := uuid.Parse(strings.TrimSpace(req.ServiceID))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "serviceId must be a UUID"})
		return
	}
	if req.StartTime == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "startTime is required"})
		return
	}

	appt, err := h.appts.Create(r.Context(), appointments.CreateInput{
		BusinessID:     businessID,
		ServiceID:      serviceID,
		ClientName:     req.ClientName,
		ClientPhone:    req.ClientPhone,
		StartTime:      *req.StartTime,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeError(w, r, "appointment create failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	appts, err := h.appts.List(r.Context(), businessID, from, to)
	if err != nil {
		h.writeError(w, r, "appointments list failed", err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	appointmentID, ok := h.uuidParam(w, r, "appointmentID")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status := domain.AppointmentStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	appt, err := h.appts.UpdateStatus(r.Context(), businessID, appointmentID, status)
	if err != nil {
		h.writeError(w, r, "appointment status update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) CreateBlockage(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	var req createBlockageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.StartTime == nil || req.EndTime == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "startTime and endTime are required"})
		return
	}
	b, err := h.appts.CreateBlockage(r.Context(), appointments.CreateBlockageInput{
		BusinessID: businessID,
		StartTime:  *req.StartTime,
		EndTime:    *req.EndTime,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeError(w, r, "blockage create failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBlockageResponse(b))
}

func (h *Handler) ListBlockages(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	blockages, err := h.appts.ListBlockages(r.Context(), businessID, from, to)
	if err != nil {
		h.writeError(w, r, "blockages list failed", err)
		return
	}
	out := make([]blockageResponse, 0, len(blockages))
	for _, b := range blockages {
		out = append(out, toBlockageResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"blockages": out})
}

func (h *Handler) DeleteBlockage(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.uuidParam(w, r, "businessID")
	if !ok {
		return
	}
	blockageID, ok := h.uuidParam(w, r, "blockageID")
	if !ok {
		return
	}
	if err := h.appts.DeleteBlockage(r.Context(), businessID, blockageID); err != nil {
		h.writeError(w, r, "blockage delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: name + " must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from must be RFC3339"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to must be RFC3339"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.log.WarnContext(r.Context(), "invalid request body", slog.Any("err", err), slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeError maps service and store errors to status codes. Unknown errors are logged and
// answered with a generic body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var (
		availErr *availability.ValidationError
		apptErr  *appointments.ValidationError
		bizErr   *businesses.ValidationError
	)
	switch {
	case errors.As(err, &availErr), errors.As(err, &apptErr), errors.As(err, &bizErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidService):
		writeJSON(w, http.StatusPreconditionFailed, errorResponse{Error: "service has no valid duration"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, store.ErrIdempotencyConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "idempotency key already used for a different request"})
	case errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "conflicts with the current calendar state"})
	default:
		h.log.ErrorContext(r.Context(), msg, slog.Any("err", err), slog.String("path", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
