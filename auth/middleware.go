package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Middleware authenticates each request and stores the Identity in its
// context. Requests without credentials continue as Anonymous; rejected
// credentials get a 401. A nil authenticator makes every caller anonymous.
func Middleware(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Anonymous()
			if a != nil {
				got, err := a.Authenticate(r.Context(), r.Header)
				switch {
				case err == nil:
					id = got
				case Rejected(err):
					writeUnauthorized(w, err)
					return
				case !errors.Is(err, ErrMissingCredentials):
					http.Error(w, `{"error":"auth_unavailable"}`, http.StatusServiceUnavailable)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="toolgate"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": err.Error(),
	})
}
