package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// LogoutHandler revokes the credential the request was authenticated with.
// It must run behind the gate.
func LogoutHandler(store RevocationStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFromContext(c.Request().Context())
		if claims == nil || claims.RegisteredClaims.ID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
		}

		expiresAt := time.Now().Add(time.Hour)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := store.Revoke(c.Request().Context(), claims.RegisteredClaims.ID, expiresAt); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error").SetInternal(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
