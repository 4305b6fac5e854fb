package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
	UserIDKey contextKey = "user_id"
)

// TokenHeader is the legacy header some clients send the credential in.
const TokenHeader = "auth-token"

const (
	msgNoToken      = "No token provided"
	msgInvalidToken = "Invalid token"
)

// Gate authenticates requests and enforces role requirements. It keeps no
// per-request state.
type Gate struct {
	tokens  *TokenIssuer
	revoked RevocationStore
	logger  zerolog.Logger
}

// NewGate builds a gate. revoked may be nil when logout is not supported.
func NewGate(tokens *TokenIssuer, revoked RevocationStore, logger zerolog.Logger) *Gate {
	return &Gate{tokens: tokens, revoked: revoked, logger: logger}
}

// Authenticate admits any request carrying a valid credential.
func (g *Gate) Authenticate() echo.MiddlewareFunc {
	return g.middleware(nil)
}

// RequireRole admits requests whose credential names the given role.
func (g *Gate) RequireRole(role Role) echo.MiddlewareFunc {
	return g.middleware(&role)
}

func (g *Gate) middleware(required *Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := extractToken(c.Request())
			if tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, msgNoToken)
			}

			claims, err := g.tokens.Verify(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
			}

			if g.revoked != nil && claims.RegisteredClaims.ID != "" {
				revoked, err := g.revoked.IsRevoked(c.Request().Context(), claims.RegisteredClaims.ID)
				if err != nil {
					g.logger.Error().Err(err).Msg("revocation lookup failed")
					return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
				}
			}

			if required != nil && claims.Role != *required {
				return echo.NewHTTPError(http.StatusForbidden,
					"Access denied. "+required.Title()+" role required")
			}

			c.Set(string(ClaimsKey), claims)
			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// extractToken prefers the auth-token header and falls back to a bearer
// Authorization header.
func extractToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	h := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, UserIDKey, claims.ID)
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// CallerID returns the authenticated account id. Handlers behind the gate
// always have one; the error covers credentials signed with a foreign id
// format.
func CallerID(ctx context.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(UserIDFromContext(ctx))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, msgInvalidToken)
	}
	return id, nil
}

func RoleFromContext(ctx context.Context) Role {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Role
	}
	return ""
}
