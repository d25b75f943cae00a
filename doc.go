// Package identity is the credential-and-session authority for the
// platform: password authentication, signed access tokens, rotating opaque
// refresh tokens with theft detection, one-time verification and reset
// tokens, and admin-gated teacher approval.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// identity is the public surface. It exposes [Service], [Builder],
// [Config], the store contracts, and value types (AuthResult, TokenPair,
// AuditEvent). The rotation protocol lives in the session package, signing
// in jwt, hashing in password; storage backends live under storage/.
//
// # What this package must NOT do
//
//   - Persist or log plaintext passwords or token secrets. The one
//     exception is [LogDelivery], the explicitly development-only fallback.
//   - Leak storage detail through its error taxonomy. Callers only ever
//     see the sentinels in errors.go.
//   - Import any sub-package that re-imports identity (no import cycles).
package identity
