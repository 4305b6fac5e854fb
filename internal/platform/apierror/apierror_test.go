package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

func TestFrom(t *testing.T) {
	verrs := validation.Errors{{Field: "name", Message: "Name required"}, {Field: "email", Message: "Email required"}}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  any
	}{
		{"api error", NotFound("Medicine not found."), http.StatusNotFound, "Medicine not found."},
		{"wrapped api error", fmt.Errorf("book: %w", BadRequest("This time slot is already booked.")), http.StatusBadRequest, "This time slot is already booked."},
		{"not found", fmt.Errorf("get: %w", docstore.ErrNotFound), http.StatusNotFound, "Not found"},
		{"duplicate", docstore.ErrDuplicate, http.StatusBadRequest, "Already exists"},
		{"echo error", echo.NewHTTPError(http.StatusForbidden, "Access denied"), http.StatusForbidden, "Access denied"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := From(tt.err)
			if he.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, he.Code)
			}
			if he.Message != tt.wantMsg {
				t.Errorf("expected %v, got %v", tt.wantMsg, he.Message)
			}
		})
	}

	he := From(fmt.Errorf("register: %w", verrs))
	if he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", he.Code)
	}
	body, ok := he.Message.(map[string]any)
	if !ok || body["message"] != "Name required" {
		t.Errorf("unexpected validation body: %v", he.Message)
	}
}

func TestFrom_KeepsInternalCause(t *testing.T) {
	cause := errors.New("socket closed")
	he := From(cause)
	if he.Internal != cause {
		t.Errorf("expected internal cause to be kept, got %v", he.Internal)
	}
	if From(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestNotFoundAs(t *testing.T) {
	he := From(NotFoundAs(fmt.Errorf("get: %w", docstore.ErrNotFound), "Hospital not found"))
	if he.Code != http.StatusNotFound || he.Message != "Hospital not found" {
		t.Errorf("unexpected error: %v", he)
	}
	if err := NotFoundAs(docstore.ErrDuplicate, "x"); err != docstore.ErrDuplicate {
		t.Errorf("expected other errors unchanged, got %v", err)
	}
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(e)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{"string message", NotFound("Doctor not found"), http.StatusNotFound, map[string]any{"message": "Doctor not found"}},
		{"internal", errors.New("boom"), http.StatusInternalServerError, map[string]any{"message": "Server error"}},
		{"route miss", echo.ErrNotFound, http.StatusNotFound, map[string]any{"message": "Not Found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			e.HTTPErrorHandler(tt.err, e.NewContext(req, rec))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["message"] != tt.wantBody["message"] {
				t.Errorf("expected message %v, got %v", tt.wantBody["message"], body["message"])
			}
		})
	}
}

func TestErrorHandler_ValidationBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	ErrorHandler(e)(validation.Errors{{Field: "stock", Message: "Stock cannot be negative"}}, e.NewContext(req, rec))

	var body struct {
		Message string                  `json:"message"`
		Errors  []validation.FieldError `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec.Code != http.StatusBadRequest || body.Message != "Stock cannot be negative" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if len(body.Errors) != 1 || body.Errors[0].Field != "stock" {
		t.Errorf("unexpected errors list: %+v", body.Errors)
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 65a1b2c3d4e5f60718293a4b ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Hex() != "65a1b2c3d4e5f60718293a4b" {
		t.Errorf("unexpected id %s", id.Hex())
	}

	_, err = ParseID("not-an-id")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest || he.Message != "Invalid id" {
		t.Errorf("expected 400 Invalid id, got %v", err)
	}
}
