package auth

import (
	"context"
	"errors"
	"net/http"
)

// Authenticator verifies the credentials carried by request headers.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: ErrMissingCredentials when the headers hold nothing this
//   authenticator understands; ErrInvalidCredentials, ErrTokenExpired or
//   ErrTokenMalformed when they do but verification fails. Any other error
//   is an internal failure.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, h http.Header) (*Identity, error)
}

// Composite tries authenticators in order. Authenticators reporting
// ErrMissingCredentials are skipped; the first other outcome is returned.
type Composite []Authenticator

func (c Composite) Name() string { return "composite" }

func (c Composite) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	for _, a := range c {
		id, err := a.Authenticate(ctx, h)
		if errors.Is(err, ErrMissingCredentials) {
			continue
		}
		return id, err
	}
	return nil, ErrMissingCredentials
}
