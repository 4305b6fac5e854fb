package appointment

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
	g := api.Group("/appointments")
	patient := gate.RequireRole(auth.RolePatient)
	doctor := gate.RequireRole(auth.RoleDoctor)
	authenticated := gate.Authenticate()

	g.POST("/book", h.Book, patient)
	g.POST("/confirm-payment", h.ConfirmPayment, patient)
	g.GET("/doctor", h.ForDoctor, doctor)
	g.GET("/patient", h.ForPatient, patient)
	g.GET("/booked-slots", h.BookedSlots, authenticated)
	g.POST("/complete", h.Complete, doctor)
	g.DELETE("/:id", h.Cancel, authenticated)
}

func (h *Handler) Book(c echo.Context) error {
	var in BookInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	b, err := h.svc.Book(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	var in PaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	a, err := h.svc.ConfirmPayment(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":     "Payment successful, appointment confirmed!",
		"appointment": a,
	})
}

func (h *Handler) ForDoctor(c echo.Context) error {
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	items, err := h.svc.ForDoctor(c.Request().Context(), caller)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ForPatient(c echo.Context) error {
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	items, err := h.svc.ForPatient(c.Request().Context(), caller)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) BookedSlots(c echo.Context) error {
	slots, err := h.svc.BookedSlots(c.Request().Context(), c.QueryParam("doctorId"), c.QueryParam("date"))
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) Cancel(c echo.Context) error {
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	if err := h.svc.Cancel(c.Request().Context(), caller, c.Param("id")); err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Appointment cancelled successfully"})
}

func (h *Handler) Complete(c echo.Context) error {
	var in CompleteInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	caller, err := auth.CallerID(c.Request().Context())
	if err != nil {
		return err
	}
	a, err := h.svc.Complete(c.Request().Context(), caller, in)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Consultation completed",
		"data":    a,
	})
}
