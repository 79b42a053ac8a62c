package auth

import (
	"context"
	"net"
	"strings"
	"time"
)

// Method indicates how authentication was performed.
type Method string

const (
	MethodAnonymous Method = "anonymous"
	MethodJWT       Method = "jwt"
	MethodAPIKey    Method = "api_key"
)

// Identity is an authenticated principal.
type Identity struct {
	Principal string
	Method    Method
	Claims    map[string]any
	ExpiresAt time.Time
}

// IsAnonymous reports whether id carries no principal.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Method == MethodAnonymous || id.Principal == ""
}

// Anonymous returns the identity of an unauthenticated caller.
func Anonymous() *Identity {
	return &Identity{Method: MethodAnonymous}
}

type identityKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity in ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// CallerKey derives the rate-limit caller key. An authenticated principal
// wins, then a client-supplied session id, then the remote host.
func CallerKey(id *Identity, sessionID, remoteAddr string) string {
	if !id.IsAnonymous() {
		return "user:" + id.Principal
	}
	if s := strings.TrimSpace(sessionID); s != "" {
		return "sess:" + s
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
