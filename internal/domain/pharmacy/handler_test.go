package pharmacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo, primitive.ObjectID) {
	svc, caller := newTestService()
	return NewHandler(svc), echo.New(), caller
}

func jsonRequest(method, target, body string, caller primitive.ObjectID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{ID: caller.Hex(), Role: auth.RolePharmacy}))
}

func TestHandler_Add(t *testing.T) {
	h, e, caller := newTestHandler()

	body := `{"medicineName":"Amoxicillin","stock":120,"price":12.5,"expiryDate":"2027-03-01"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/pharmacy/add", body, caller), rec)

	if err := h.Add(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var resp struct {
		Message  string `json:"message"`
		Medicine Stock  `json:"medicine"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Message != "Medicine added successfully" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.Medicine.PharmacistName != "Green Cross Pharmacy" {
		t.Errorf("unexpected pharmacist %q", resp.Medicine.PharmacistName)
	}
}

func TestHandler_Add_FirstViolationMessage(t *testing.T) {
	h, e, caller := newTestHandler()

	body := `{"medicineName":"Amoxicillin","stock":-1,"price":0,"expiryDate":"2020-01-01"}`
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/pharmacy/add", body, caller), httptest.NewRecorder())

	err := h.Add(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest || httpErr.Message != "Stock cannot be negative" {
		t.Errorf("unexpected error: %d %v", httpErr.Code, httpErr.Message)
	}
}

func TestHandler_Add_MalformedBody(t *testing.T) {
	h, e, caller := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/pharmacy/add", `{"stock":`, caller), httptest.NewRecorder())

	err := h.Add(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Update_NotFound(t *testing.T) {
	h, e, caller := newTestHandler()

	body := `{"medicineName":"Amoxicillin","stock":1,"price":1,"expiryDate":"2027-03-01"}`
	c := e.NewContext(jsonRequest(http.MethodPut, "/", body, caller), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(primitive.NewObjectID().Hex())

	err := h.Update(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound || httpErr.Message != "Medicine not found." {
		t.Fatalf("expected 404 Medicine not found., got %v", err)
	}
}

func TestHandler_ListUpdateDelete(t *testing.T) {
	h, e, caller := newTestHandler()
	st, err := h.svc.Add(context.Background(), caller, validInput())
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	body := `{"medicineName":"Amoxicillin 500","stock":10,"price":"15","expiryDate":"2027-06-01T00:00:00Z"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", body, caller), rec)
	c.SetParamNames("id")
	c.SetParamValues(st.ID.Hex())
	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Medicine updated successfully") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/pharmacy/list", nil), rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	var items []Stock
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 || items[0].MedicineName != "Amoxicillin 500" || items[0].Price != 15 {
		t.Errorf("unexpected list: %+v", items)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(st.ID.Hex())
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Medicine deleted successfully") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
