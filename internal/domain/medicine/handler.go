package medicine

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

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
	g := api.Group("/medicines")
	pharmacy := gate.RequireRole(auth.RolePharmacy)

	g.GET("", h.List)
	g.GET("/inventory", h.Inventory, pharmacy)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, pharmacy)
	g.PUT("/:id", h.Update, pharmacy)
	g.DELETE("/:id", h.Delete, pharmacy)
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
	m, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) List(c echo.Context) error {
	var pharmacyID primitive.ObjectID
	if q := c.QueryParam("pharmacyId"); q != "" {
		id, err := apierror.ParseID(q)
		if err != nil {
			return err
		}
		pharmacyID = id
	}
	items, err := h.svc.List(c.Request().Context(), pharmacyID)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

// Inventory lists the calling pharmacy's own medicines.
func (h *Handler) Inventory(c echo.Context) error {
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), caller)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	m, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, m)
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
