// Package session implements refresh-token rotation with family-based reuse
// detection.
//
// # Rotation protocol
//
// Login issues a token in a fresh family. Each refresh atomically retires the
// presented token and mints a successor in the same family, so at any moment
// a family has exactly one live token. Presenting a retired token is treated
// as evidence of theft: the entire family is revoked and the caller receives
// [ErrReuseDetected].
//
// # Architecture boundaries
//
// This package owns the [Manager] (rotation protocol) and the [Store]
// contract. It does NOT mint JWTs, verify passwords, or enforce account
// policy. Those responsibilities belong to the Service.
//
// # What this package must NOT do
//
//   - Import the identity root package (no upward imports).
//   - Persist plaintext secrets. Only SHA-256 digests reach the Store.
//   - Decide which callers may refresh. That is account policy.
package session
