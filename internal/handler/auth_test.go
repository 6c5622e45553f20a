package handler_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hr-records-api/internal/auth"
	"github.com/iliyamo/hr-records-api/internal/handler"
	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/router"
	"github.com/iliyamo/hr-records-api/internal/utils"
)

type fakeUserStore struct {
	byEmail map[string]repository.User
	byID    map[string]repository.User
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (repository.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, ok := f.byEmail[email]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (repository.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

type ledgerRow struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

type fakeTokenStore struct {
	mu   sync.Mutex
	rows map[string]*ledgerRow
}

func newFakeTokenStore() *fakeTokenStore { return &fakeTokenStore{rows: map[string]*ledgerRow{}} }

func (f *fakeTokenStore) StoreRefresh(_ context.Context, userID, tokenHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tokenHash] = &ledgerRow{userID: userID, expiresAt: exp}
	return nil
}

func (f *fakeTokenStore) Rotate(_ context.Context, presentedHash, newHash string, exp time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[presentedHash]
	if !ok || row.revoked || time.Now().After(row.expiresAt) {
		return "", sql.ErrNoRows
	}
	row.revoked = true
	f.rows[newHash] = &ledgerRow{userID: row.userID, expiresAt: exp}
	return row.userID, nil
}

func (f *fakeTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.userID == userID {
			row.revoked = true
		}
	}
	return nil
}

func (f *fakeTokenStore) ActiveCountForUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.userID == userID && !row.revoked && time.Now().Before(row.expiresAt) {
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	e         *echo.Echo
	users     *fakeUserStore
	tokens    *fakeTokenStore
	employees *fakeEmployeeStore
	issuer    *auth.Issuer
	audited   *[]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := utils.HashPassword("password", 4)
	require.NoError(t, err)

	admin := repository.User{ID: "user-1", Email: "admin@example.com", PasswordHash: hash, Role: "admin"}
	staff := repository.User{ID: "user-2", Email: "employee@example.com", PasswordHash: hash, Role: "employee", FirstTimeLogin: true}
	users := &fakeUserStore{
		byEmail: map[string]repository.User{admin.Email: admin, staff.Email: staff},
		byID:    map[string]repository.User{admin.ID: admin, staff.ID: staff},
	}
	tokens := newFakeTokenStore()
	employees := newFakeEmployeeStore()

	issuer := auth.NewIssuer("test-secret", time.Minute)
	sessions := auth.NewSessionManager(users, tokens, issuer, 14*24*time.Hour, zerolog.Nop())

	audited := []string{}
	env := &testEnv{users: users, tokens: tokens, employees: employees, issuer: issuer, audited: &audited}

	e := echo.New()
	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(sessions, users, tokens, zerolog.Nop()),
		Employees: handler.NewEmployeeHandler(employees, env.recordAudit, zerolog.Nop()),
		Issuer:    issuer,
		Redis:     nil, // limiter disabled
		Log:       zerolog.Nop(),
	})
	env.e = e
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestLoginRefreshReuseFlow(t *testing.T) {
	env := newTestEnv(t)

	// Login on seeded credentials.
	rec := env.do(jsonReq(http.MethodPost, "/v1/auth/login", `{"email":"admin@example.com","password":"password"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful.", decodeBody(t, rec)["message"])

	access := cookieByName(rec, "access_token")
	refresh := cookieByName(rec, "refresh_token")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)

	n, _ := env.tokens.ActiveCountForUser(context.Background(), "user-1")
	assert.Equal(t, 1, n, "login mints exactly one refresh token")

	// Refresh with that secret: new pair, old row revoked.
	req := jsonReq(http.MethodPost, "/v1/auth/refresh", "")
	req.AddCookie(refresh)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := cookieByName(rec, "refresh_token")
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	n, _ = env.tokens.ActiveCountForUser(context.Background(), "user-1")
	assert.Equal(t, 1, n, "rotation replaces, never accumulates")

	// Replaying the original secret is rejected.
	req = jsonReq(http.MethodPost, "/v1/auth/refresh", "")
	req.AddCookie(refresh)
	rec = env.do(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired refresh token.", decodeBody(t, rec)["message"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"email":"admin@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"password"}`,
	} {
		rec := env.do(jsonReq(http.MethodPost, "/v1/auth/login", body))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "The provided credentials are incorrect.", decodeBody(t, rec)["message"])
	}
}

func TestLoginValidatesBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonReq(http.MethodPost, "/v1/auth/login", `{"email":"not-an-email"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "The given data was invalid.", body["message"])
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestRefreshWithoutCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonReq(http.MethodPost, "/v1/auth/refresh", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token not provided.", decodeBody(t, rec)["message"])
}

func TestMeReturnsProfile(t *testing.T) {
	env := newTestEnv(t)

	tok, err := env.issuer.Issue("user-2", "employee")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: tok.Token})
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	user := data["user"].(map[string]any)
	assert.Equal(t, "employee@example.com", user["email"])
	assert.Equal(t, true, user["first_time_login"])
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestLogoutRevokesAllAndClearsCookies(t *testing.T) {
	env := newTestEnv(t)

	// Two sessions for the same user.
	rec := env.do(jsonReq(http.MethodPost, "/v1/auth/login", `{"email":"admin@example.com","password":"password"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	access := cookieByName(rec, "access_token")
	rec = env.do(jsonReq(http.MethodPost, "/v1/auth/login", `{"email":"admin@example.com","password":"password"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	n, _ := env.tokens.ActiveCountForUser(context.Background(), "user-1")
	require.Equal(t, 2, n)

	req := jsonReq(http.MethodPost, "/v1/auth/logout", "")
	req.AddCookie(access)
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully logged out.", decodeBody(t, rec)["message"])

	n, _ = env.tokens.ActiveCountForUser(context.Background(), "user-1")
	assert.Equal(t, 0, n, "logout revokes every session")

	for _, name := range []string{"access_token", "refresh_token"} {
		ck := cookieByName(rec, name)
		require.NotNil(t, ck)
		assert.Empty(t, ck.Value)
		assert.Less(t, ck.MaxAge, 0)
	}
}
