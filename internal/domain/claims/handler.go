package claims

import (
	"errors"
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
	api.GET("/eob", h.GetEOB)
	api.POST("/eob", h.UpsertEOB)
	api.GET("/cases", h.ListCases)
	api.POST("/cases/update-status", h.UpdateCaseStatus)
	api.POST("/appeals/generate", h.GenerateAppeal)
	api.POST("/appeals/mailto", h.Mailto)
}

func userParam(c echo.Context, requested string) string {
	ctx := c.Request().Context()
	if requested != "" && auth.RoleFromContext(ctx) == auth.RoleDoctor {
		return requested
	}
	return auth.EmailFromContext(ctx)
}

// GetEOB returns one record when claim_number is given, otherwise all of the
// user's records.
func (h *Handler) GetEOB(c echo.Context) error {
	ctx := c.Request().Context()
	userID := userParam(c, c.QueryParam("user_id"))
	if claim := c.QueryParam("claim_number"); claim != "" {
		rec, err := h.svc.GetEOB(ctx, claim, userID)
		if err != nil {
			return httperr.From(err)
		}
		return c.JSON(http.StatusOK, rec)
	}
	items, err := h.svc.ListEOBs(ctx, userID)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) UpsertEOB(c echo.Context) error {
	var rec EOBRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.UserID = userParam(c, rec.UserID)
	if err := h.svc.UpsertEOB(c.Request().Context(), &rec); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListCases(c echo.Context) error {
	cases, err := h.svc.Cases(c.Request().Context(), userParam(c, c.QueryParam("user_id")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"cases": cases, "total": len(cases)})
}

type updateStatusRequest struct {
	ClaimNumber string `json:"claim_number"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
}

func (h *Handler) UpdateCaseStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := userParam(c, req.UserID)
	if err := h.svc.UpdateCaseStatus(c.Request().Context(), req.ClaimNumber, userID, req.Status); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"claim_number": req.ClaimNumber,
		"status":       req.Status,
	})
}

func (h *Handler) GenerateAppeal(c echo.Context) error {
	var req AppealRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.UserID = userParam(c, req.UserID)
	if req.EOBData != nil {
		req.EOBData.UserID = req.UserID
	}
	draft, err := h.svc.GenerateAppeal(c.Request().Context(), &req)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *Handler) Mailto(c echo.Context) error {
	var req MailtoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	uri, err := h.svc.Mailto(req)
	if err != nil {
		if errors.Is(err, ErrInvalidRecipient) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"mailto": uri})
}
