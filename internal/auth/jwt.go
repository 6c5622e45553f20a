package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs and verifies short-lived HS256 access tokens. It keeps no
// state: there is no revocation list, so a compromised signing key
// invalidates every outstanding token at once and logout relies on the
// short TTL plus cookie clearing.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// AccessToken is a signed JWT along with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID string
	Role   string
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// TTL reports the configured access token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the user with claims sub, role, exp and iat.
func (i *Issuer) Issue(userID, role string) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(i.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify parses and validates a signed token. Expired tokens return
// ErrTokenExpired; everything else wrong with the token (bad signature,
// wrong algorithm, garbage input) returns ErrTokenMalformed.
func (i *Issuer) Verify(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenMalformed
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrTokenMalformed
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return Claims{}, ErrTokenMalformed
	}
	return Claims{UserID: sub, Role: role}, nil
}
