package labs

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/auth"
	"github.com/carepilot/carepilot/internal/platform/httperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/labs/get", h.GetLabs)
	api.GET("/labs/timeseries", h.TimeSeries)
	api.POST("/labs/upload", h.Upload)
	api.POST("/labs", h.SaveReport)
}

// userParam resolves whose lab data a request targets. Patients are pinned
// to their own session identity.
func userParam(c echo.Context, requested string) string {
	ctx := c.Request().Context()
	if requested != "" && auth.RoleFromContext(ctx) == auth.RoleDoctor {
		return requested
	}
	return auth.EmailFromContext(ctx)
}

func canSee(c echo.Context, rep *LabReport) bool {
	ctx := c.Request().Context()
	return auth.RoleFromContext(ctx) == auth.RoleDoctor ||
		strings.EqualFold(rep.UserID, auth.EmailFromContext(ctx))
}

// GetLabs returns one report when id is given, otherwise the user's reports.
func (h *Handler) GetLabs(c echo.Context) error {
	ctx := c.Request().Context()
	if id := c.QueryParam("id"); id != "" {
		rep, err := h.svc.GetReport(ctx, id)
		if err != nil {
			return httperr.From(err)
		}
		if !canSee(c, rep) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.JSON(http.StatusOK, rep)
	}

	items, err := h.svc.ListReports(ctx, userParam(c, c.QueryParam("user_id")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) TimeSeries(c echo.Context) error {
	ts, err := h.svc.TimeSeries(c.Request().Context(), userParam(c, c.QueryParam("user_id")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, ts)
}

func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	max := h.svc.MaxBytes()
	if max > 0 && fh.Size > max {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrTooLarge.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	var r io.Reader = f
	if max > 0 {
		r = io.LimitReader(f, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rep, err := h.svc.Upload(c.Request().Context(), userParam(c, c.FormValue("user_id")), fh.Filename, data)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		}
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) SaveReport(c echo.Context) error {
	var rep LabReport
	if err := c.Bind(&rep); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	rep.UserID = userParam(c, rep.UserID)
	if rep.ID != "" {
		existing, err := h.svc.GetReport(ctx, rep.ID)
		if err == nil && !canSee(c, existing) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
	}
	if err := h.svc.SaveReport(ctx, &rep); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, rep)
}
