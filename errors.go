package identity

import "errors"

var (
	// ErrConflict is returned when a unique constraint is violated, such as
	// registering an email twice or re-verifying a teacher.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the caller's role does not permit the
	// operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the referenced account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned on failed authentication. Unknown
	// email and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRole is returned when a registration names an unknown role.
	ErrInvalidRole = errors.New("invalid account role")
	// ErrInvalidEmail is returned when a registration email is empty or
	// structurally unusable.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrPasswordPolicy is returned when a new password fails policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidToken is returned when a one-time token is unknown or malformed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidAccessToken is returned when a bearer access token fails
	// signature or claims validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrTokenExpired is returned when a one-time token exists but its
	// lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenAlreadyUsed is returned when a one-time token is redeemed twice.
	ErrTokenAlreadyUsed = errors.New("token already used")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown or
	// malformed.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshTokenExpired is returned when a refresh token exists but its
	// lifetime has elapsed.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrTokenReuseDetected is returned when a revoked refresh token is
	// presented. The token's whole family has been revoked by the time the
	// caller sees this error.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	// ErrVerificationDisabled is returned when email verification flows are
	// invoked on a Service built without a verification token store.
	ErrVerificationDisabled = errors.New("email verification disabled")
	// ErrPasswordResetDisabled is returned when password reset flows are
	// invoked on a Service built without a reset token store.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrServiceNotReady is returned by a zero Service that was not built
	// through the Builder.
	ErrServiceNotReady = errors.New("service not initialized")
)
