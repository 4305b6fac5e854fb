package order

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
)

func as(req *http.Request, id primitive.ObjectID, role auth.Role) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{ID: id.Hex(), Role: role}))
}

func TestHandler_Create(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	patient := primitive.NewObjectID()

	body := `{"pharmacyId":"` + f.pharmacy.Hex() + `","medicineId":"` + f.medicine.ID.Hex() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(as(req, patient, auth.RolePatient), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var o Order
	json.Unmarshal(rec.Body.Bytes(), &o)
	if o.PatientID != patient || o.Quantity != 2 || o.Status != StatusPending {
		t.Errorf("unexpected order %+v", o)
	}
	if !strings.Contains(rec.Body.String(), `"appointmentId":null`) {
		t.Errorf("expected a null appointment, got %s", rec.Body.String())
	}
}

func TestHandler_Cancel(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	patient := primitive.NewObjectID()
	o := f.place(t, patient)

	req := httptest.NewRequest(http.MethodPut, "/api/orders/"+o.ID.Hex()+"/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(as(req, patient, auth.RolePatient), rec)
	c.SetParamNames("id")
	c.SetParamValues(o.ID.Hex())
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Message string `json:"message"`
		Order   Order  `json:"order"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message != "Order cancelled" || resp.Order.Status != StatusCancelled {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestRoutes_OrderFlow(t *testing.T) {
	f := newFixture()
	e := echo.New()
	e.HTTPErrorHandler = apierror.ErrorHandler(e)
	issuer := auth.NewTokenIssuer([]byte("order-test-key"), time.Hour)
	NewHandler(f.svc).RegisterRoutes(e.Group("/api"), auth.NewGate(issuer, nil, zerolog.Nop()))

	patient := primitive.NewObjectID()
	patientToken, _ := issuer.Issue(patient.Hex(), auth.RolePatient, "", 0)
	pharmacyToken, _ := issuer.Issue(f.pharmacy.Hex(), auth.RolePharmacy, "", 0)
	doctorToken, _ := issuer.Issue(primitive.NewObjectID().Hex(), auth.RoleDoctor, "", 0)

	do := func(method, target, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	body := `{"pharmacyId":"` + f.pharmacy.Hex() + `","medicineId":"` + f.medicine.ID.Hex() + `"}`
	if rec := do(http.MethodPost, "/api/orders", doctorToken, body); rec.Code != http.StatusForbidden {
		t.Errorf("expected only patients to order, got %d", rec.Code)
	}
	rec := do(http.MethodPost, "/api/orders", patientToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var o Order
	json.Unmarshal(rec.Body.Bytes(), &o)

	rec = do(http.MethodGet, "/api/orders/my", doctorToken, "")
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "Not authorized") {
		t.Errorf("expected 403 Not authorized, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/api/pharmacy/orders", pharmacyToken, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), o.ID.Hex()) {
		t.Errorf("expected the pharmacy to see the order, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(http.MethodPut, "/api/pharmacy/orders/"+o.ID.Hex()+"/status", patientToken, `{"status":"Ready"}`); rec.Code != http.StatusForbidden {
		t.Errorf("expected the pharmacy gate on status updates, got %d", rec.Code)
	}
	rec = do(http.MethodPut, "/api/pharmacy/orders/"+o.ID.Hex()+"/status", pharmacyToken, `{"status":"Ready"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"Ready"`) {
		t.Errorf("expected ready order, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/api/orders/my", patientToken, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"Ready"`) {
		t.Errorf("expected the patient to see the update, got %d %s", rec.Code, rec.Body.String())
	}
}
