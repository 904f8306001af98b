package account

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
	// Reference data and roles are maintained by doctors.
	doctorOnly := auth.RequireRole(auth.RoleDoctor)

	api.GET("/users", h.GetUser)
	api.POST("/users", h.CreateUser)
	api.PATCH("/users", h.UpdateUser)
	api.GET("/users/role", h.GetRole)
	api.PUT("/users/role", h.SetRole, doctorOnly)
	api.POST("/users/oauth", h.UpsertOAuthUser)

	api.GET("/providers", h.ListProviders)
	api.GET("/providers/:id", h.GetProvider)
	api.POST("/providers", h.CreateProvider, doctorOnly)
	api.GET("/insurers", h.ListInsurers)
	api.GET("/insurers/:id", h.GetInsurer)
	api.POST("/insurers", h.CreateInsurer, doctorOnly)
}

func isDoctor(c echo.Context) bool {
	return auth.RoleFromContext(c.Request().Context()) == auth.RoleDoctor
}

func sessionEmail(c echo.Context) string {
	return auth.EmailFromContext(c.Request().Context())
}

// targetEmail resolves whose profile a request acts on. Patients are pinned
// to their own session identity.
func targetEmail(c echo.Context, requested string) string {
	if requested != "" && isDoctor(c) {
		return requested
	}
	return sessionEmail(c)
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// -- Users --

func (h *Handler) GetUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Request().Context(), targetEmail(c, c.QueryParam("email")))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, u)
}

// CreateUser registers a profile. Patients can only create their own, as a
// patient; doctors may create any profile with any role.
func (h *Handler) CreateUser(c echo.Context) error {
	var u User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !isDoctor(c) {
		u.Email = sessionEmail(c)
		u.Role = auth.RolePatient
		u.OAuthProvider, u.OAuthProviderID, u.OAuthEmail = nil, nil, nil
	}
	if err := h.svc.CreateUser(c.Request().Context(), &u); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	var patch UserPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !isDoctor(c) {
		// Sign-in linkage only changes through /users/oauth.
		patch.OAuthProvider, patch.OAuthProviderID, patch.OAuthEmail = nil, nil, nil
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), targetEmail(c, c.QueryParam("email")), &patch)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, u)
}

type roleBody struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) GetRole(c echo.Context) error {
	email := targetEmail(c, c.QueryParam("email"))
	role, err := h.svc.GetRole(c.Request().Context(), email)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, roleBody{Email: email, Role: role})
}

// SetRole is mounted behind RequireRole(doctor).
func (h *Handler) SetRole(c echo.Context) error {
	var body roleBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Email == "" {
		body.Email = sessionEmail(c)
	}
	if err := h.svc.SetRole(c.Request().Context(), body.Email, body.Role); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, body)
}

// UpsertOAuthUser links a provider identity to the signed-in account only.
func (h *Handler) UpsertOAuthUser(c echo.Context) error {
	var link OAuthLink
	if err := c.Bind(&link); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session := sessionEmail(c)
	if link.Email == "" {
		link.Email = session
	}
	if !sameEmail(link.Email, session) {
		return echo.NewHTTPError(http.StatusForbidden, "can only link the signed-in account")
	}
	u, err := h.svc.UpsertUser(c.Request().Context(), link)
	if err != nil {
		return httperr.From(err)
	}
	if !sameEmail(u.Email, session) {
		return echo.NewHTTPError(http.StatusForbidden, "identity is linked to another account")
	}
	return c.JSON(http.StatusOK, u)
}

// -- Providers --

func (h *Handler) CreateProvider(c echo.Context) error {
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProvider(c.Request().Context(), &p); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProvider(c echo.Context) error {
	p, err := h.svc.GetProvider(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListProviders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Insurers --

func (h *Handler) CreateInsurer(c echo.Context) error {
	var i Insurer
	if err := c.Bind(&i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInsurer(c.Request().Context(), &i); err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusCreated, i)
}

func (h *Handler) GetInsurer(c echo.Context) error {
	i, err := h.svc.GetInsurer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) ListInsurers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInsurers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httperr.From(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
