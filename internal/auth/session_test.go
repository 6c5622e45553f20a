package auth

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/utils"
)

// fakeUserStore serves a fixed set of users keyed by email and id.
type fakeUserStore struct {
	byEmail map[string]repository.User
	byID    map[string]repository.User
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (repository.User, error) {
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

// fakeTokenStore mirrors the ledger semantics: hash-keyed rows, conditional
// revoke inside Rotate, bulk revoke on logout. Mutex-guarded so concurrent
// rotations contend the way database rows do.
type fakeTokenStore struct {
	mu   sync.Mutex
	rows map[string]*ledgerRow // keyed by token hash
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{rows: map[string]*ledgerRow{}}
}

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
		if row.userID == userID && !row.revoked && time.Now().Before(row.expiresAt) {
			row.revoked = true
		}
	}
	return nil
}

func (f *fakeTokenStore) activeCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.userID == userID && !row.revoked && time.Now().Before(row.expiresAt) {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T) (*SessionManager, *fakeTokenStore) {
	t.Helper()
	hash, err := utils.HashPassword("password", 4) // min cost keeps the test fast
	require.NoError(t, err)
	u := repository.User{ID: "user-1", Email: "admin@example.com", PasswordHash: hash, Role: "admin"}
	users := &fakeUserStore{
		byEmail: map[string]repository.User{u.Email: u},
		byID:    map[string]repository.User{u.ID: u},
	}
	tokens := newFakeTokenStore()
	issuer := NewIssuer("test-secret", time.Minute)
	return NewSessionManager(users, tokens, issuer, 14*24*time.Hour, zerolog.Nop()), tokens
}

func TestLoginSuccess(t *testing.T) {
	m, tokens := newTestSession(t)

	pair, err := m.Login(context.Background(), "admin@example.com", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access.Token)
	assert.Len(t, pair.RefreshSecret, 96)
	assert.Equal(t, 1, tokens.activeCount("user-1"))

	// A second login opens a second session; the first is untouched.
	_, err = m.Login(context.Background(), "admin@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, 2, tokens.activeCount("user-1"))
}

func TestLoginFailureIndistinguishable(t *testing.T) {
	m, tokens := newTestSession(t)

	_, errUnknown := m.Login(context.Background(), "nobody@example.com", "password")
	_, errWrongPw := m.Login(context.Background(), "admin@example.com", "wrong")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPw)
	assert.Equal(t, 0, tokens.activeCount("user-1"))
}

func TestRefreshRotates(t *testing.T) {
	m, tokens := newTestSession(t)

	pair, err := m.Login(context.Background(), "admin@example.com", "password")
	require.NoError(t, err)

	next, err := m.Refresh(context.Background(), pair.RefreshSecret)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshSecret, next.RefreshSecret)
	assert.Equal(t, "user-1", next.User.ID)
	// Rotation: old token dead, exactly one replacement.
	assert.Equal(t, 1, tokens.activeCount("user-1"))

	// Replaying the consumed secret is the reuse signal.
	_, err = m.Refresh(context.Background(), pair.RefreshSecret)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	// The rotated-to secret still works.
	_, err = m.Refresh(context.Background(), next.RefreshSecret)
	require.NoError(t, err)
}

func TestRefreshMissingToken(t *testing.T) {
	m, _ := newTestSession(t)

	_, err := m.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRefreshUnknownToken(t *testing.T) {
	m, _ := newTestSession(t)

	_, err := m.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestRefreshExpiredToken(t *testing.T) {
	_, tokens := newTestSession(t)
	users := &fakeUserStore{byID: map[string]repository.User{}, byEmail: map[string]repository.User{}}
	m := NewSessionManager(users, tokens, NewIssuer("test-secret", time.Minute), 14*24*time.Hour, zerolog.Nop())

	// A token past its expiry never matches, even though it was not revoked.
	secret, err := utils.NewRefreshSecret()
	require.NoError(t, err)
	require.NoError(t, tokens.StoreRefresh(context.Background(), "user-1",
		utils.HashSecret(secret), time.Now().Add(-time.Minute)))

	_, err = m.Refresh(context.Background(), secret)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	m, tokens := newTestSession(t)

	pair, err := m.Login(context.Background(), "admin@example.com", "password")
	require.NoError(t, err)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		reuse     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Refresh(context.Background(), pair.RefreshSecret)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case err == ErrInvalidOrExpired:
				reuse++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, reuse)
	assert.Equal(t, 1, tokens.activeCount("user-1"))
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	m, tokens := newTestSession(t)

	for i := 0; i < 3; i++ {
		_, err := m.Login(context.Background(), "admin@example.com", "password")
		require.NoError(t, err)
	}
	require.Equal(t, 3, tokens.activeCount("user-1"))

	require.NoError(t, m.Logout(context.Background(), "user-1"))
	assert.Equal(t, 0, tokens.activeCount("user-1"))

	// Idempotent: a second logout succeeds with no state change.
	require.NoError(t, m.Logout(context.Background(), "user-1"))
}
