package internaldefs

import (
	"github.com/coursemaster/coursegate"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   coursegate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   coursegate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: coursegate.MetricGateAllow, Name: "coursegate_gate_allow_total", Help: "Admin route checks that allowed the visitor."},
	{ID: coursegate.MetricGateDeny, Name: "coursegate_gate_deny_total", Help: "Admin route checks that redirected to the passkey challenge."},
	{ID: coursegate.MetricGateRedirectLimit, Name: "coursegate_gate_redirect_limit_total", Help: "Route checks stopped by the redirect loop guard."},
	{ID: coursegate.MetricAdminTokenCleared, Name: "coursegate_admin_token_cleared_total", Help: "Unusable admin tokens removed by the gate."},
	{ID: coursegate.MetricLoginSuccess, Name: "coursegate_login_success_total", Help: "Successful logins."},
	{ID: coursegate.MetricLoginFailure, Name: "coursegate_login_failure_total", Help: "Logins refused by the backend."},
	{ID: coursegate.MetricRegisterSuccess, Name: "coursegate_register_success_total", Help: "Successful registrations."},
	{ID: coursegate.MetricRegisterFailure, Name: "coursegate_register_failure_total", Help: "Registrations refused by the backend."},
	{ID: coursegate.MetricLogout, Name: "coursegate_logout_total", Help: "Logouts."},
	{ID: coursegate.MetricPasskeySuccess, Name: "coursegate_passkey_success_total", Help: "Accepted admin passkeys."},
	{ID: coursegate.MetricPasskeyFailure, Name: "coursegate_passkey_failure_total", Help: "Rejected admin passkeys."},
	{ID: coursegate.MetricPasskeyRateLimited, Name: "coursegate_passkey_rate_limited_total", Help: "Passkey attempts refused by the attempt limit."},
	{ID: coursegate.MetricListingServed, Name: "coursegate_listing_served_total", Help: "Course listings answered by the backend."},
	{ID: coursegate.MetricListingDegraded, Name: "coursegate_listing_degraded_total", Help: "Course listings replaced by an empty result."},
	{ID: coursegate.MetricCategoriesDegraded, Name: "coursegate_categories_degraded_total", Help: "Category lists replaced by an empty result."},
	{ID: coursegate.MetricCourseCreated, Name: "coursegate_course_created_total", Help: "Courses created."},
	{ID: coursegate.MetricCourseUpdated, Name: "coursegate_course_updated_total", Help: "Courses updated."},
	{ID: coursegate.MetricCourseDeleted, Name: "coursegate_course_deleted_total", Help: "Courses deleted."},
	{ID: coursegate.MetricValidationRejected, Name: "coursegate_validation_rejected_total", Help: "Forms rejected before reaching the backend."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: coursegate.MetricBackendLatency, Name: "coursegate_backend_latency_seconds", Help: "Latency of course backend reads."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const AuditDroppedName = "coursegate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds are the finite bucket upper bounds in seconds. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
