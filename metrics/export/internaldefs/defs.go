package internaldefs

import (
	identity "github.com/opencourse/identity"
)

// CounterDef binds a counter ID to its exported name and help text. Both
// exporters read from this table so metric names stay consistent across
// backends.
type CounterDef struct {
	ID   identity.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: identity.MetricRegisterSuccess, Name: "identity_register_success_total", Help: "Successful account registrations."},
	{ID: identity.MetricRegisterConflict, Name: "identity_register_conflict_total", Help: "Registrations rejected for a duplicate email."},
	{ID: identity.MetricLoginSuccess, Name: "identity_login_success_total", Help: "Successful authentications."},
	{ID: identity.MetricLoginFailure, Name: "identity_login_failure_total", Help: "Failed authentications."},
	{ID: identity.MetricRefreshSuccess, Name: "identity_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: identity.MetricRefreshFailure, Name: "identity_refresh_failure_total", Help: "Rejected rotations other than reuse."},
	{ID: identity.MetricRefreshReuseDetected, Name: "identity_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: identity.MetricLogout, Name: "identity_logout_total", Help: "Logout operations."},
	{ID: identity.MetricVerificationIssued, Name: "identity_verification_issued_total", Help: "Email verification tokens issued."},
	{ID: identity.MetricVerificationSuccess, Name: "identity_verification_success_total", Help: "Successful email verifications."},
	{ID: identity.MetricVerificationFailure, Name: "identity_verification_failure_total", Help: "Rejected verification redemptions."},
	{ID: identity.MetricResetRequested, Name: "identity_reset_requested_total", Help: "Password reset tokens issued."},
	{ID: identity.MetricResetSuccess, Name: "identity_reset_success_total", Help: "Completed password resets."},
	{ID: identity.MetricResetFailure, Name: "identity_reset_failure_total", Help: "Rejected reset redemptions."},
	{ID: identity.MetricTeacherVerified, Name: "identity_teacher_verified_total", Help: "Admin teacher verifications."},
}
