// Package apierror turns service errors into HTTP errors with the JSON
// bodies clients expect: always a "message", plus "errors" for validation
// failures.
package apierror

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const msgServerError = "Server error"

// Error is a failure a service wants reported with a specific status and
// message.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(code int, msg string) *Error { return &Error{Code: code, Message: msg} }

func BadRequest(msg string) *Error { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *Error { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *Error { return New(http.StatusNotFound, msg) }
func TooManyRequests(msg string) *Error { return New(http.StatusTooManyRequests, msg) }

// From maps err to an *echo.HTTPError. Unknown errors become a 500 whose
// cause is kept as the internal error for logging and never sent.
func From(err error) *echo.HTTPError {
	var (
		httpErr *echo.HTTPError
		apiErr  *Error
		verrs   validation.Errors
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(apiErr.Code, apiErr.Message)
	case errors.As(err, &verrs):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]any{
			"message": verrs.First(),
			"errors":  verrs,
		})
	case errors.Is(err, docstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, docstore.ErrDuplicate):
		return echo.NewHTTPError(http.StatusBadRequest, "Already exists")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msgServerError).SetInternal(err)
}

// NotFoundAs replaces a missing-document error with a 404 carrying msg.
// Other errors are returned unchanged.
func NotFoundAs(err error, msg string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return NotFound(msg)
	}
	return err
}

// ParseID parses a hex document id taken from a path or query value.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

// ErrorHandler renders every error as {"message": ...}. Bodies that are
// already maps pass through unchanged.
func ErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he := From(err)

		var body any
		switch m := he.Message.(type) {
		case string:
			body = map[string]string{"message": m}
		case map[string]any:
			body = m
		default:
			body = map[string]any{"message": http.StatusText(he.Code)}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, body)
		}
		if werr != nil {
			e.Logger.Error(werr)
		}
	}
}
