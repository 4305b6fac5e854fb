package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func TestLogoutHandler(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	claims := &Claims{
		ID:   "abc",
		Role: RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	req = req.WithContext(WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := LogoutHandler(store)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if revoked, _ := store.IsRevoked(context.Background(), "jti-1"); !revoked {
		t.Error("expected jti-1 to be revoked")
	}
}

func TestLogoutHandler_NoClaims(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := LogoutHandler(store)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
