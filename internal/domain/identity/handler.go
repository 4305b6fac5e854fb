package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/pkg/pagination"
)

type Handler struct {
	svc     *Service
	revoked auth.RevocationStore
}

func NewHandler(svc *Service, revoked auth.RevocationStore) *Handler {
	return &Handler{svc: svc, revoked: revoked}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Gate) {
	authenticated := gate.Authenticate()

	a := api.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.GET("/profile", h.GetProfile, authenticated)
	a.PUT("/profile", h.UpdateProfile, authenticated)
	a.POST("/logout", auth.LogoutHandler(h.revoked), authenticated)

	u := api.Group("/users", authenticated)
	u.GET("", h.ListUsers)
	u.GET("/:id", h.GetUser)
	u.PUT("/:id", h.UpdateUser)
	u.PUT("/:id/deactivate", h.DeactivateUser)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	sess, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	sess, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	sess, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ListUsers(c echo.Context) error {
	var role auth.Role
	if q := c.QueryParam("role"); q != "" {
		r, err := auth.ParseRole(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid role")
		}
		role = r
	}
	pg := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), role, pg.Limit, pg.Offset)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg))
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, u.Public())
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	u, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "User updated", "user": u.Public()})
}

func (h *Handler) DeactivateUser(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User deactivated"})
}
