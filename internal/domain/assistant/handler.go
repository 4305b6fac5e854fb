package assistant

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/platform/auth"
)

const (
	msgQueryRequired = "Query is required"
	msgNotConfigured = "AI service is not configured. Please contact administrator."
	msgRateLimited   = "AI service is busy. Please try again shortly."
	msgUpstream      = "Failed to get AI response. Please try again."
)

// QueryInput accepts the question as either query or prompt.
type QueryInput struct {
	Query  string `json:"query"`
	Prompt string `json:"prompt"`
}

func (in QueryInput) text() string {
	if q := strings.TrimSpace(in.Query); q != "" {
		return q
	}
	return strings.TrimSpace(in.Prompt)
}

type Handler struct {
	ai     Completer
	logger zerolog.Logger
}

func NewHandler(ai Completer, logger zerolog.Logger) *Handler {
	return &Handler{ai: ai, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group, gate *auth.Gate) {
	api.POST("/ai/query", h.Query, gate.Authenticate())
}

func (h *Handler) Query(c echo.Context) error {
	var in QueryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	q := in.text()
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, msgQueryRequired)
	}

	answer, err := h.ai.Complete(c.Request().Context(), q)
	switch {
	case errors.Is(err, ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError, msgNotConfigured)
	case errors.Is(err, ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, msgRateLimited)
	case err != nil:
		h.logger.Error().Err(err).Msg("ai query failed")
		return echo.NewHTTPError(http.StatusInternalServerError, msgUpstream)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"response": answer,
	})
}
