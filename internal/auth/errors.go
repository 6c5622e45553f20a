package auth

import "errors"

// Session failure modes. All of these surface to the client as a 401 with a
// generic message; ErrInvalidCredentials deliberately covers both unknown
// email and wrong password so callers cannot enumerate accounts.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("refresh token not provided")
	ErrInvalidOrExpired   = errors.New("invalid or expired refresh token")
)

// Access token verification failures. Both map to 401 at the boundary but
// are logged differently: expiry is routine, malformation is suspicious.
var (
	ErrTokenExpired   = errors.New("access token expired")
	ErrTokenMalformed = errors.New("access token malformed")
)
