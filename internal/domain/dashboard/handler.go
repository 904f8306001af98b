package dashboard

import (
	"net/http"

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
	api.GET("/dashboard", h.Get)
}

// Get builds the dashboard. Only doctors may name another user.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.EmailFromContext(ctx)
	if requested := c.QueryParam("user_id"); requested != "" && auth.RoleFromContext(ctx) == auth.RoleDoctor {
		userID = requested
	}
	d, err := h.svc.Build(ctx, userID)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, d)
}
