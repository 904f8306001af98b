package benefits

import (
	"net/http"
	"strconv"

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
	api.GET("/benefits", h.GetBenefits)
	api.POST("/benefits", h.UpsertBenefits)
}

func userParam(c echo.Context, requested string) string {
	ctx := c.Request().Context()
	if requested != "" && auth.RoleFromContext(ctx) == auth.RoleDoctor {
		return requested
	}
	return auth.EmailFromContext(ctx)
}

// GetBenefits returns the most recently updated plan, or every plan when
// all=true.
func (h *Handler) GetBenefits(c echo.Context) error {
	ctx := c.Request().Context()
	userID := userParam(c, c.QueryParam("user_id"))

	if raw := c.QueryParam("all"); raw != "" {
		all, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid all")
		}
		if all {
			items, err := h.svc.List(ctx, userID)
			if err != nil {
				return httperr.From(err)
			}
			return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
		}
	}

	b, err := h.svc.GetLatest(ctx, userID)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UpsertBenefits(c echo.Context) error {
	var b InsuranceBenefits
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.UserID = userParam(c, b.UserID)
	if err := h.svc.UpsertBenefits(c.Request().Context(), &b); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, b)
}
