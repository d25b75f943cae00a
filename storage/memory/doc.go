// Package memory provides in-memory store implementations for tests and
// development. All stores are safe for concurrent use and honor the same
// contracts as the persistent backends, including the atomic conditional
// updates the rotation and redemption protocols depend on.
package memory
