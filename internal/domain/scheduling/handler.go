package scheduling

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/respond"
	"github.com/medbook/medbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/clinics/:id/available-slots", h.AvailableSlots)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/appointments", h.CreateAppointment)

	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PATCH("/appointments/:id/cancel", h.CancelAppointment)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.PATCH("/appointments/:id/confirm", h.ConfirmAppointment)
	doctor.PATCH("/appointments/:id/start", h.StartAppointment)
	doctor.PATCH("/appointments/:id/complete", h.CompleteAppointment)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}
	return id, nil
}

// authorize allows admins, the appointment's doctor and, when patientAllowed,
// the patient who booked it.
func (h *Handler) authorize(ctx context.Context, a *Appointment, patientAllowed bool) error {
	if auth.HasRole(ctx, auth.RoleAdmin) {
		return nil
	}
	uid, err := callerID(ctx)
	if err != nil {
		return err
	}
	if patientAllowed && a.PatientID == uid {
		return nil
	}
	if auth.HasRole(ctx, auth.RoleDoctor) {
		d, err := h.svc.DoctorForUser(ctx, uid)
		if err == nil && d.ID == a.DoctorID {
			return nil
		}
	}
	return apperr.Forbidden("not allowed to access this appointment")
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	clinicID, err := parseID(c)
	if err != nil {
		return err
	}
	var doctorID *uuid.UUID
	if v := c.QueryParam("doctorId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctorId")
		}
		doctorID = &id
	}
	result, err := h.svc.AvailableSlots(c.Request().Context(), clinicID, c.QueryParam("date"), doctorID)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, result)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := callerID(ctx)
	if err != nil {
		return err
	}
	var in BookingInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.CreateBooking(ctx, patientID, in)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	a, err := h.svc.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := h.authorize(ctx, a, true); err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, a)
}

// ListAppointments scopes patients to their own bookings and doctors to their
// own schedule. Admins may filter freely.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	f := Filter{Status: c.QueryParam("status"), Date: c.QueryParam("date")}

	switch {
	case auth.HasRole(ctx, auth.RoleAdmin):
		for name, dst := range map[string]**uuid.UUID{"doctorId": &f.DoctorID, "patientId": &f.PatientID} {
			v := c.QueryParam(name)
			if v == "" {
				continue
			}
			id, err := uuid.Parse(v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
			}
			*dst = &id
		}
	case auth.HasRole(ctx, auth.RoleDoctor):
		uid, err := callerID(ctx)
		if err != nil {
			return err
		}
		d, err := h.svc.DoctorForUser(ctx, uid)
		if err != nil {
			return apperr.Forbidden("no doctor profile is linked to this account")
		}
		f.DoctorID = &d.ID
	default:
		uid, err := callerID(ctx)
		if err != nil {
			return err
		}
		f.PatientID = &uid
	}

	items, total, err := h.svc.ListAppointments(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, pg))
}

type cancelRequest struct {
	Reason *string `json:"reason"`
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.loadAndAuthorize(ctx, id, true); err != nil {
		return err
	}
	a, err := h.svc.Cancel(ctx, id, req.Reason)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, a)
}

func (h *Handler) ConfirmAppointment(c echo.Context) error {
	return h.doctorTransition(c, h.svc.Confirm)
}

func (h *Handler) StartAppointment(c echo.Context) error {
	return h.doctorTransition(c, h.svc.Start)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	return h.doctorTransition(c, h.svc.Complete)
}

func (h *Handler) doctorTransition(c echo.Context, fn func(context.Context, uuid.UUID) (*Appointment, error)) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.loadAndAuthorize(ctx, id, false); err != nil {
		return err
	}
	a, err := fn(ctx, id)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, a)
}

func (h *Handler) loadAndAuthorize(ctx context.Context, id uuid.UUID, patientAllowed bool) error {
	a, err := h.svc.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	return h.authorize(ctx, a, patientAllowed)
}
