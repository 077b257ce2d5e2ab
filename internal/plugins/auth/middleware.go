package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
)

// contextKeyIdentity is the Echo context key for the resolved caller. Other
// plugins read it through GetIdentity and GetUserID.
const contextKeyIdentity = "auth_identity"

// RequireAuth returns middleware that verifies the bearer token and then
// re-loads the user, so a deleted account is locked out before its token
// expires. Every failure is a 401 with the same message.
func RequireAuth(tokens TokenIssuer, users UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return apperror.NewUnauthorized("Unauthorized access")
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return err
			}

			user, err := users.FindByID(c.Request().Context(), claims.ID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewUnauthorized("Unauthorized access")
				}
				return apperror.NewInternal(err)
			}

			SetIdentity(c, &Identity{
				ID:      user.ID,
				Email:   user.Email,
				IsAdmin: user.IsAdmin,
			})
			return next(c)
		}
	}
}

// RequireAdmin must be chained after RequireAuth. It re-reads the admin flag
// from the store rather than trusting the token claim.
func RequireAdmin(users UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := GetIdentity(c)
			if id == nil {
				return apperror.NewUnauthorized("Unauthorized access")
			}

			user, err := users.FindByID(c.Request().Context(), id.ID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewForbidden("Admin access required")
				}
				return apperror.NewInternal(err)
			}
			if !user.IsAdmin {
				return apperror.NewForbidden("Admin access required")
			}
			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// SetIdentity stores the resolved caller on the Echo context.
func SetIdentity(c echo.Context, id *Identity) {
	c.Set(contextKeyIdentity, id)
}

// GetIdentity retrieves the authenticated caller from the Echo context.
// Returns nil if RequireAuth did not run.
func GetIdentity(c echo.Context) *Identity {
	id, ok := c.Get(contextKeyIdentity).(*Identity)
	if !ok {
		return nil
	}
	return id
}

// GetUserID retrieves the authenticated user's ID, or 0 when unauthenticated.
func GetUserID(c echo.Context) int64 {
	if id := GetIdentity(c); id != nil {
		return id.ID
	}
	return 0
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
