// Package auth identifies the caller of a gateway entry point.
//
// Authenticators inspect request headers and return an Identity. A request
// without credentials is anonymous, which is allowed; a request with
// credentials that do not verify is rejected. CallerKey turns the identity,
// the client session and the remote address into the key the rate limiter
// buckets by.
package auth
