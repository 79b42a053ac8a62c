package auth

import "errors"

var (
	// ErrMissingCredentials means the authenticator found nothing to check.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrInvalidCredentials means credentials were present but rejected.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenExpired means the credential verified but is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenMalformed means the token could not be parsed.
	ErrTokenMalformed = errors.New("auth: token malformed")
)

// Rejected reports whether err means the caller presented bad credentials,
// as opposed to none at all.
func Rejected(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed)
}
