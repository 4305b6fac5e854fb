package doctor

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

func TestHandler_List_FeeFilters(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	f.doctor(t, "Dr. Rao", "rao@clinic.test", "Cardiology", "Pune", "500")
	f.doctor(t, "Dr. Mehta", "mehta@clinic.test", "Dermatology", "Mumbai", "300")

	req := httptest.NewRequest(http.MethodGet, "/api/doctors?minFee=400&city=pune", nil)
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 || got[0]["name"] != "Dr. Rao" {
		t.Errorf("unexpected doctors %v", got)
	}
	if _, ok := got[0]["password"]; ok {
		t.Error("expected no password in the listing")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/doctors?maxFee=cheap", nil)
	err := h.List(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest || he.Message != "Invalid maxFee" {
		t.Errorf("expected 400 Invalid maxFee, got %v", err)
	}
}

func TestHandler_Search_QueryRequired(t *testing.T) {
	h, e := NewHandler(newFixture().svc), echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/doctors/search?limit=3", nil)
	err := h.Search(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest || he.Message != "Query required" {
		t.Errorf("expected 400 Query required, got %v", err)
	}
}

func TestHandler_UpdateAvailability(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	rao := f.doctor(t, "Dr. Rao", "rao@clinic.test", "Cardiology", "Pune", "500")

	body := `{"availability":[{"day":"Friday","startTime":"14:00","endTime":"18:00"}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/doctors/availability", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.UpdateAvailability(e.NewContext(as(req, rao, auth.RoleDoctor), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Message      string           `json:"message"`
		Availability []map[string]any `json:"availability"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message != "Availability updated" || len(resp.Availability) != 1 || resp.Availability[0]["day"] != "Friday" {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestHandler_Review(t *testing.T) {
	f := newFixture()
	h, e := NewHandler(f.svc), echo.New()
	rao := f.doctor(t, "Dr. Rao", "rao@clinic.test", "Cardiology", "Pune", "500")
	asha := f.patient(t, "Asha", "asha@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/doctors/"+rao.Hex()+"/reviews", strings.NewReader(`{"rating":5,"comment":"Great"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(as(req, asha, auth.RolePatient), rec)
	c.SetParamNames("id")
	c.SetParamValues(rao.Hex())
	if err := h.Review(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/doctors/"+rao.Hex(), nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(rao.Hex())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"rating":5`) || !strings.Contains(rec.Body.String(), `"totalRatings":1`) {
		t.Errorf("expected the rating on the profile, got %s", rec.Body.String())
	}
}

func TestRoutes_RoleGates(t *testing.T) {
	f := newFixture()
	e := echo.New()
	e.HTTPErrorHandler = apierror.ErrorHandler(e)
	issuer := auth.NewTokenIssuer([]byte("doctor-test-key"), time.Hour)
	NewHandler(f.svc).RegisterRoutes(e.Group("/api"), auth.NewGate(issuer, nil, zerolog.Nop()))
	rao := f.doctor(t, "Dr. Rao", "rao@clinic.test", "Cardiology", "Pune", "500")

	do := func(method, target, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/api/doctors", ""); rec.Code != http.StatusOK {
		t.Errorf("expected public listing, got %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/api/doctors/"+rao.Hex()+"/reviews", ""); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected public empty reviews, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, "/api/doctors/"+rao.Hex()+"/reviews", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	patientToken, _ := issuer.Issue(primitive.NewObjectID().Hex(), auth.RolePatient, "", 0)
	rec := do(http.MethodGet, "/api/doctors/stats", patientToken)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "Access denied. Doctor role required") {
		t.Errorf("expected doctor gate on stats, got %d %s", rec.Code, rec.Body.String())
	}

	doctorToken, _ := issuer.Issue(rao.Hex(), auth.RoleDoctor, "", 0)
	rec = do(http.MethodGet, "/api/doctors/stats", doctorToken)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalRevenue":0`) {
		t.Errorf("expected empty stats, got %d %s", rec.Code, rec.Body.String())
	}
}
