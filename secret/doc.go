// Package secret resolves secret references in configuration values.
//
// A value of the form secretref:<provider>:<ref> is replaced by what the
// named provider returns for ref. References may also appear inline, as in
// "redis://:secretref:file:/run/secrets/redis_pw@cache:6379/0". Values
// without a reference pass through unchanged.
//
// Two providers are built in: env reads another environment variable and
// file reads a file, trimming one trailing newline (the layout used by
// Docker and Kubernetes secret mounts).
package secret
