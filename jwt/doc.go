// Package jwt mints and verifies access tokens using configured signing keys
// and strict validation semantics suitable for low-latency authentication paths.
package jwt
