package pharmacy

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Gate) {
	g := api.Group("/pharmacy")
	pharmacy := gate.RequireRole(auth.RolePharmacy)

	g.GET("/list", h.List)
	g.POST("/add", h.Add, pharmacy)
	g.PUT("/update/:id", h.Update, pharmacy)
	g.DELETE("/delete/:id", h.Delete, pharmacy)
}

// stockError reports only the first violation, as {"message": ...}.
func stockError(err error) error {
	if verrs, ok := err.(validation.Errors); ok {
		return echo.NewHTTPError(http.StatusBadRequest, verrs.First())
	}
	return apierror.From(err)
}

func bindBody(c echo.Context) (map[string]any, error) {
	input := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &input); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return input, nil
}

func (h *Handler) Add(c echo.Context) error {
	input, err := bindBody(c)
	if err != nil {
		return err
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	st, err := h.svc.Add(c.Request().Context(), caller, input)
	if err != nil {
		return stockError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":  "Medicine added successfully",
		"medicine": st,
	})
}

func (h *Handler) List(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	input, err := bindBody(c)
	if err != nil {
		return err
	}
	st, err := h.svc.Update(c.Request().Context(), id, input)
	if err != nil {
		return stockError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Medicine updated successfully",
		"medicine": st,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Medicine deleted successfully"})
}
