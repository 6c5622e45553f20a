// Package auth implements the session lifecycle: password login, refresh
// token rotation with reuse detection, and logout. It owns the write path
// for refresh tokens; nothing else in the application mutates that table.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/hr-records-api/internal/metrics"
	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/utils"
)

// UserStore is the credential lookup surface the session manager needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id string) (repository.User, error)
}

// TokenStore is the refresh token ledger. Rotate must revoke the presented
// hash and insert the replacement atomically, returning sql.ErrNoRows when
// no active row matches.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, presentedHash, newHash string, exp time.Time) (string, error)
	RevokeAllForUser(ctx context.Context, userID string) error
}

// TokenPair is the result of a successful login or refresh. RefreshSecret
// is the raw secret; this is the only time it exists outside the client.
type TokenPair struct {
	User           repository.User
	Access         AccessToken
	RefreshSecret  string
	RefreshExpires time.Time
}

// SessionManager orchestrates the credential store, the token ledger and
// the issuer. All dependencies are injected; it holds no global state.
type SessionManager struct {
	users      UserStore
	tokens     TokenStore
	issuer     *Issuer
	refreshTTL time.Duration
	log        zerolog.Logger
}

func NewSessionManager(users UserStore, tokens TokenStore, issuer *Issuer, refreshTTL time.Duration, log zerolog.Logger) *SessionManager {
	return &SessionManager{users: users, tokens: tokens, issuer: issuer, refreshTTL: refreshTTL, log: log}
}

// dummyHash is a valid bcrypt digest compared against when the email is
// unknown, so both login failure paths cost one bcrypt verification and
// stay indistinguishable to the caller.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Login verifies the credentials and opens a new session. Existing sessions
// for the user are left alone; concurrent sessions are allowed.
func (m *SessionManager) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.VerifyPassword(dummyHash, password)
			metrics.LoginAttempt("failure")
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		metrics.LoginAttempt("failure")
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := m.openSession(ctx, u)
	if err != nil {
		return TokenPair{}, err
	}
	metrics.LoginAttempt("success")
	m.log.Info().Str("user_id", u.ID).Msg("login")
	return pair, nil
}

// Refresh rotates a refresh token: the presented secret is consumed and a
// brand-new pair is minted for its owner. Presenting a rotated, revoked or
// expired secret fails with ErrInvalidOrExpired; a replayed secret landing
// here is the reuse-detection signal, so it is logged and counted. The
// session is not bulk-revoked on reuse.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, ErrMissingToken
	}

	secret, err := utils.NewRefreshSecret()
	if err != nil {
		return TokenPair{}, err
	}
	exp := time.Now().UTC().Add(m.refreshTTL)

	userID, err := m.tokens.Rotate(ctx, utils.HashSecret(presented), utils.HashSecret(secret), exp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.RefreshReuse()
			m.log.Warn().Msg("refresh token rejected: revoked, expired or unknown")
			return TokenPair{}, ErrInvalidOrExpired
		}
		return TokenPair{}, err
	}

	u, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := m.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	metrics.TokenRotated()
	m.log.Info().Str("user_id", u.ID).Msg("refresh token rotated")
	return TokenPair{User: u, Access: access, RefreshSecret: secret, RefreshExpires: exp}, nil
}

// Logout revokes every active refresh token the user holds. Idempotent:
// a user with no active sessions logs out successfully with no state change.
// Outstanding access tokens are not blacklisted; they die with their TTL.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if err := m.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	m.log.Info().Str("user_id", userID).Msg("logout, all sessions revoked")
	return nil
}

func (m *SessionManager) openSession(ctx context.Context, u repository.User) (TokenPair, error) {
	access, err := m.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	secret, err := utils.NewRefreshSecret()
	if err != nil {
		return TokenPair{}, err
	}
	exp := time.Now().UTC().Add(m.refreshTTL)
	if err := m.tokens.StoreRefresh(ctx, u.ID, utils.HashSecret(secret), exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{User: u, Access: access, RefreshSecret: secret, RefreshExpires: exp}, nil
}
