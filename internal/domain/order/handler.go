package order

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Gate) {
	g := api.Group("/orders")
	authenticated := gate.Authenticate()
	pharmacy := gate.RequireRole(auth.RolePharmacy)

	g.POST("", h.Create, gate.RequireRole(auth.RolePatient))
	g.GET("/my", h.Mine, authenticated)
	g.PUT("/:id/cancel", h.Cancel, authenticated)

	p := api.Group("/pharmacy/orders")
	p.GET("", h.Mine, pharmacy)
	p.PUT("/:id/status", h.UpdateStatus, pharmacy)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	o, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	caller, err := auth.CallerID(ctx)
	if err != nil {
		return err
	}
	items, err := h.svc.Mine(ctx, caller, auth.RoleFromContext(ctx))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Cancel(c echo.Context) error {
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	o, err := h.svc.Cancel(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Order cancelled",
		"order":   o,
	})
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var in StatusInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	o, err := h.svc.UpdateStatus(c.Request().Context(), caller, c.Param("id"), in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Order status updated",
		"order":   o,
	})
}
