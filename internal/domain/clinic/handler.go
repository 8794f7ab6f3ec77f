package clinic

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbook/medbook/internal/domain/slots"
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
	// Browsing is anonymous
	api.GET("/clinics", h.ListClinics)
	api.GET("/clinics/:id", h.GetClinic)
	api.GET("/clinics/:id/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/clinics", h.CreateClinic)
	admin.PUT("/clinics/:id", h.UpdateClinic)
	admin.POST("/doctors", h.CreateDoctor)
	admin.PUT("/doctors/:id", h.UpdateDoctor)

	// Doctors maintain their own schedule; ownership is checked in the handler
	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.PUT("/doctors/:id/schedule", h.UpdateSchedule)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Clinic Handlers --

func (h *Handler) CreateClinic(c echo.Context) error {
	var in ClinicInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	clinic, err := h.svc.CreateClinic(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusCreated, clinic)
}

func (h *Handler) GetClinic(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	clinic, err := h.svc.GetClinic(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, clinic)
}

func (h *Handler) UpdateClinic(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in ClinicInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	clinic, err := h.svc.UpdateClinic(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, clinic)
}

func (h *Handler) ListClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	includeInactive := false
	if v, err := strconv.ParseBool(c.QueryParam("includeInactive")); err == nil && v {
		// inactive clinics are only listed for admins
		includeInactive = auth.HasRole(c.Request().Context(), auth.RoleAdmin)
	}
	items, total, err := h.svc.ListClinics(c.Request().Context(), includeInactive, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Clinic{}
	}
	return respond.OK(c, http.StatusOK, pagination.NewResponse(items, total, pg))
}

// -- Doctor Handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	availableOnly, _ := strconv.ParseBool(c.QueryParam("available"))
	items, err := h.svc.ListDoctors(c.Request().Context(), id, availableOnly)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Doctor{}
	}
	return respond.OK(c, http.StatusOK, items)
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var in DoctorInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.CreateDoctor(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in DoctorInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, d)
}

func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if !auth.HasRole(ctx, auth.RoleAdmin) {
		d, err := h.svc.GetDoctor(ctx, id)
		if err != nil {
			return err
		}
		if d.UserID == nil || d.UserID.String() != auth.UserIDFromContext(ctx) {
			return apperr.Forbidden("doctors may only change their own schedule")
		}
	}

	var sched slots.Schedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.UpdateSchedule(ctx, id, sched)
	if err != nil {
		return err
	}
	return respond.OK(c, http.StatusOK, d)
}
