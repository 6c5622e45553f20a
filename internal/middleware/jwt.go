// Package middleware provides the composable request-processing stages:
// access token verification, role gating and rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hr-records-api/internal/auth"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// AccessCookie is the HttpOnly cookie carrying the access token.
const AccessCookie = "access_token"

// JWTAuth verifies the access token from the access_token cookie, falling
// back to an Authorization bearer header, and stores the subject and role
// in the request context. Expired and malformed tokens both produce a 401
// but are logged at different levels: expiry is routine client behavior,
// a malformed token is not.
func JWTAuth(issuer *auth.Issuer, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
				raw = ck.Value
			} else if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					log.Debug().Str("ip", c.RealIP()).Msg("expired access token")
				} else {
					log.Warn().Str("ip", c.RealIP()).Msg("malformed access token")
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id from the context, or "".
func UserID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok {
		return v
	}
	return ""
}
