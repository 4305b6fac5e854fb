package prescription

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
	g := api.Group("/prescriptions")
	doctor := gate.RequireRole(auth.RoleDoctor)
	authenticated := gate.Authenticate()

	g.POST("", h.Create, doctor)
	g.GET("", h.List, authenticated)
	g.GET("/:id", h.Get, authenticated)
	g.PUT("/:id", h.Update, doctor)
	g.DELETE("/:id", h.Delete, doctor)
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
	p, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func queryID(c echo.Context, name string) (primitive.ObjectID, error) {
	q := c.QueryParam(name)
	if q == "" {
		return primitive.NilObjectID, nil
	}
	return apierror.ParseID(q)
}

func (h *Handler) List(c echo.Context) error {
	var (
		f   Filter
		err error
	)
	if f.PatientID, err = queryID(c, "patientId"); err != nil {
		return err
	}
	if f.DoctorID, err = queryID(c, "doctorId"); err != nil {
		return err
	}
	if f.AppointmentID, err = queryID(c, "appointmentId"); err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := h.svc.List(ctx, auth.ClaimsFromContext(ctx), f)
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
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, auth.ClaimsFromContext(ctx), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, p)
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
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := apierror.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Prescription deleted successfully"})
}
