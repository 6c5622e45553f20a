package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hr-records-api/internal/auth"
	"github.com/iliyamo/hr-records-api/internal/middleware"
	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/validation"
)

const dbTimeout = 5 * time.Second

// RefreshCookie is the HttpOnly cookie carrying the raw refresh secret.
const RefreshCookie = "refresh_token"

// SessionCounter reports how many active sessions a user holds.
type SessionCounter interface {
	ActiveCountForUser(ctx context.Context, userID string) (int, error)
}

// AuthHandler serves the session endpoints. Tokens travel in HttpOnly
// cookies; response bodies carry only messages and the user profile.
type AuthHandler struct {
	Sessions *auth.SessionManager
	Users    auth.UserStore
	Tokens   SessionCounter
	Log      zerolog.Logger
}

func NewAuthHandler(s *auth.SessionManager, u auth.UserStore, t SessionCounter, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Sessions: s, Users: u, Tokens: t, Log: log}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	EmployeeID      *string `json:"employee_id"`
	EmailVerifiedAt *string `json:"email_verified_at"`
	FirstTimeLogin  bool    `json:"first_time_login"`
}

func toUserPart(u repository.User) userPart {
	p := userPart{ID: u.ID, Email: u.Email, Role: u.Role, FirstTimeLogin: u.FirstTimeLogin}
	if u.EmployeeID.Valid {
		v := u.EmployeeID.String
		p.EmployeeID = &v
	}
	if u.EmailVerifiedAt.Valid {
		v := u.EmailVerifiedAt.Time.UTC().Format(time.RFC3339)
		p.EmailVerifiedAt = &v
	}
	return p
}

// Login verifies credentials and opens a session. POST /v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body."})
	}

	errs := validation.Errors{}
	if req.Email == "" {
		errs.Add("email", "is required")
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		errs.Add("email", "must be a valid email address")
	}
	if req.Password == "" {
		errs.Add("password", "is required")
	}
	if errs.Any() {
		return validationFailed(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "The provided credentials are incorrect."})
		}
		h.Log.Error().Err(err).Str("ip", c.RealIP()).Msg("login failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while logging in."})
	}

	setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful.",
		"user":    toUserPart(pair.User),
	})
}

// Refresh exchanges the refresh cookie for a new token pair, rotating the
// presented secret. POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		presented = ck.Value
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	pair, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Refresh token not provided."})
		case errors.Is(err, auth.ErrInvalidOrExpired):
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or expired refresh token."})
		}
		h.Log.Error().Err(err).Str("ip", c.RealIP()).Msg("refresh failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while refreshing the token."})
	}

	setTokenCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{"message": "Token refreshed successfully."})
}

// Me returns the authenticated user's profile. GET /v1/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.Log.Error().Err(err).Str("user_id", uid).Msg("load user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while loading the profile."})
	}

	sessions, err := h.Tokens.ActiveCountForUser(ctx, uid)
	if err != nil {
		h.Log.Warn().Err(err).Str("user_id", uid).Msg("count sessions failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"user":            toUserPart(u),
			"active_sessions": sessions,
		},
	})
}

// Logout revokes all of the user's refresh tokens and clears the cookies.
// The access token is not blacklisted; it expires with its TTL.
// POST /v1/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	uid := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Sessions.Logout(ctx, uid); err != nil {
		h.Log.Error().Err(err).Str("user_id", uid).Msg("logout failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while logging out."})
	}

	clearTokenCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out."})
}

func setTokenCookies(c echo.Context, pair auth.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    pair.Access.Token,
		Path:     "/",
		Expires:  pair.Access.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshSecret,
		Path:     "/",
		Expires:  pair.RefreshExpires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func validationFailed(c echo.Context, errs validation.Errors) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"message": "The given data was invalid.",
		"errors":  errs,
	})
}
