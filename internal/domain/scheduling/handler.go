package scheduling

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/auth"
	"github.com/carepilot/carepilot/internal/platform/httperr"
	"github.com/carepilot/carepilot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PATCH("/appointments/:id", h.UpdateAppointment)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
}

// ownerCheck lets doctors see every appointment and patients only their own.
func ownerCheck(c echo.Context, a *Appointment) error {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleDoctor {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(a.UserEmail), auth.EmailFromContext(ctx)) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return nil
}

func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	f := ListFilter{
		UserEmail: c.QueryParam("user_email"),
		DoctorID:  c.QueryParam("doctor_id"),
		Status:    c.QueryParam("status"),
		Date:      c.QueryParam("date"),
	}
	if auth.RoleFromContext(ctx) != auth.RoleDoctor {
		f.UserEmail = auth.EmailFromContext(ctx)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if a.UserEmail == "" || auth.RoleFromContext(ctx) != auth.RoleDoctor {
		a.UserEmail = auth.EmailFromContext(ctx)
	}
	if err := h.svc.CreateAppointment(ctx, &a); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.svc.GetAppointment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httperr.From(err)
	}
	if err := ownerCheck(c, a); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	var patch AppointmentPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	existing, err := h.svc.GetAppointment(ctx, c.Param("id"))
	if err != nil {
		return httperr.From(err)
	}
	if err := ownerCheck(c, existing); err != nil {
		return err
	}
	a, err := h.svc.UpdateAppointment(ctx, existing.ID, &patch)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetAppointment(ctx, c.Param("id"))
	if err != nil {
		return httperr.From(err)
	}
	if err := ownerCheck(c, existing); err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(ctx, existing.ID); err != nil {
		return httperr.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}
