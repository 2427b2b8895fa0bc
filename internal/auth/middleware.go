package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDKey = "auth_uid"

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(auther *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := bearerUID(c, auther)
			if !ok {
				return echo.ErrUnauthorized
			}
			c.Set(userIDKey, uid)
			return next(c)
		}
	}
}

// OptionalAuth attaches the uid when a valid bearer token is present and
// lets anonymous requests through. Used by endpoints that allow anonymous
// creation.
func OptionalAuth(auther *Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid, ok := bearerUID(c, auther); ok {
				c.Set(userIDKey, uid)
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated owner uid, or "" for anonymous
// requests.
func UserID(c echo.Context) string {
	uid, _ := c.Get(userIDKey).(string)
	return uid
}

func bearerUID(c echo.Context, auther *Authenticator) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}

	uid, err := auther.Verify(token)
	if err != nil {
		return "", false
	}
	return uid, true
}
