package doctor

import (
	"net/http"
	"strconv"
	"strings"

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
	g := api.Group("/doctors")
	doctor := gate.RequireRole(auth.RoleDoctor)
	patient := gate.RequireRole(auth.RolePatient)

	g.GET("", h.List)
	g.GET("/search", h.Search)
	g.GET("/stats", h.Stats, doctor)
	g.PUT("/availability", h.UpdateAvailability, doctor)
	g.GET("/:id", h.Get)
	g.GET("/:id/reviews", h.Reviews)
	g.POST("/:id/reviews", h.Review, patient)
}

func feeParam(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return &v, nil
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Specialization: strings.TrimSpace(c.QueryParam("specialization")),
		City:           strings.TrimSpace(c.QueryParam("city")),
	}
	var err error
	if f.MinFee, err = feeParam(c, "minFee"); err != nil {
		return err
	}
	if f.MaxFee, err = feeParam(c, "maxFee"); err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Search(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.Search(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	u, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateAvailability(c echo.Context) error {
	var in AvailabilityInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	slots, err := h.svc.UpdateAvailability(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":      "Availability updated",
		"availability": slots,
	})
}

func (h *Handler) Stats(c echo.Context) error {
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	st, err := h.svc.Stats(c.Request().Context(), caller)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Review(c echo.Context) error {
	var in ReviewInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	r, err := h.svc.Review(c.Request().Context(), caller, c.Param("id"), in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Reviews(c echo.Context) error {
	items, err := h.svc.Reviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}
