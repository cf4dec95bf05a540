package internaldefs

import (
	authcore "github.com/studyportal/authcore"
)

// CounterDef binds an engine metric ID to its exported name and help text.
//
// CounterDef instances are configured at package init and treated as
// immutable afterwards.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every engine counter in a stable order. Exporters
// iterate this slice so that Prometheus and OTel output stays aligned.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricTokenIssued, Name: "authcore_token_issued_total", Help: "Issued session tokens."},
	{ID: authcore.MetricVerifySuccess, Name: "authcore_verify_success_total", Help: "Token verifications that produced a principal."},
	{ID: authcore.MetricVerifyFailure, Name: "authcore_verify_failure_total", Help: "Rejected token verifications."},
	{ID: authcore.MetricGateDenied, Name: "authcore_gate_denied_total", Help: "Requests rejected by HTTP gates."},
	{ID: authcore.MetricAccountCreated, Name: "authcore_account_created_total", Help: "Successful account creations."},
	{ID: authcore.MetricAccountDuplicate, Name: "authcore_account_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: authcore.MetricAccountDeactivated, Name: "authcore_account_deactivated_total", Help: "Account deactivation operations."},
	{ID: authcore.MetricSessionsRevoked, Name: "authcore_sessions_revoked_total", Help: "Session revocation operations (token version bumps)."},
}

// AuditDroppedName is the counter name for audit events shed under
// dispatcher backpressure or abandoned at the shutdown drain deadline. It
// lives outside the engine snapshot.
const AuditDroppedName = "authcore_audit_dropped_total"

// AuditDroppedHelp documents [AuditDroppedName].
const AuditDroppedHelp = "Audit events dropped under backpressure or at shutdown."
