package hospital

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
)

type Handler struct {
	svc     *Service
	revoked auth.RevocationStore
}

func NewHandler(svc *Service, revoked auth.RevocationStore) *Handler {
	return &Handler{svc: svc, revoked: revoked}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Gate) {
	hospitals := api.Group("/hospitals")
	hospitals.GET("/all", h.Directory)
	hospitals.POST("/add", h.AddMarker, gate.Authenticate())

	a := api.Group("/hospital-auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)

	own := a.Group("", gate.RequireRole(auth.RoleHospital))
	own.GET("/profile", h.Profile)
	own.PUT("/update", h.Update)
	own.POST("/pricing", h.AddPricing)
	own.PUT("/pricing/:pricingId", h.UpdatePricing)
	own.DELETE("/pricing/:pricingId", h.DeletePricing)
	own.POST("/logout", auth.LogoutHandler(h.revoked))
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return nil
}

func (h *Handler) Directory(c echo.Context) error {
	items, err := h.svc.Directory(c.Request().Context())
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddMarker(c echo.Context) error {
	var in MarkerInput
	if err := bind(c, &in); err != nil {
		return err
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	hosp, err := h.svc.AddMarker(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":  "Hospital added successfully",
		"hospital": hosp,
	})
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	sess, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	sess, err := h.svc.Login(c.Request().Context(), in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Profile(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	a, err := h.svc.Profile(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, a.Public())
}

func (h *Handler) Update(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Hospital updated successfully",
		"hospital": a.Public(),
	})
}

func pricingResponse(c echo.Context, msg string, items []PricingItem) error {
	return c.JSON(http.StatusOK, map[string]any{"message": msg, "pricing": items})
}

func (h *Handler) AddPricing(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	var in PricingInput
	if err := bind(c, &in); err != nil {
		return err
	}
	items, err := h.svc.AddPricing(c.Request().Context(), id, in)
	if err != nil {
		return apierror.From(err)
	}
	return pricingResponse(c, "Pricing added successfully", items)
}

func (h *Handler) UpdatePricing(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	pricingID, err := apierror.ParseID(c.Param("pricingId"))
	if err != nil {
		return err
	}
	var in PricingInput
	if err := bind(c, &in); err != nil {
		return err
	}
	items, err := h.svc.UpdatePricing(c.Request().Context(), id, pricingID, in)
	if err != nil {
		return apierror.From(err)
	}
	return pricingResponse(c, "Pricing updated successfully", items)
}

func (h *Handler) DeletePricing(c echo.Context) error {
	id, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	pricingID, err := apierror.ParseID(c.Param("pricingId"))
	if err != nil {
		return err
	}
	items, err := h.svc.DeletePricing(c.Request().Context(), id, pricingID)
	if err != nil {
		return apierror.From(err)
	}
	return pricingResponse(c, "Pricing deleted successfully", items)
}
