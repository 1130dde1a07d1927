package internaldefs

import (
	"tokengate"
)

// CounterDef binds one engine counter to its exported series name.
type CounterDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// CounterDefs lists every lifecycle counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tokengate.MetricPairIssued, Name: "tokengate_pair_issued_total", Help: "Access/refresh token pairs issued."},
	{ID: tokengate.MetricVerifySuccess, Name: "tokengate_verify_success_total", Help: "Access tokens verified successfully."},
	{ID: tokengate.MetricVerifyExpired, Name: "tokengate_verify_expired_total", Help: "Access tokens rejected as expired."},
	{ID: tokengate.MetricVerifyFailure, Name: "tokengate_verify_failure_total", Help: "Access tokens rejected for any other reason."},
	{ID: tokengate.MetricRefreshSuccess, Name: "tokengate_refresh_success_total", Help: "Successful refresh exchanges."},
	{ID: tokengate.MetricRefreshFailure, Name: "tokengate_refresh_failure_total", Help: "Failed refresh exchanges, excluding revocation."},
	{ID: tokengate.MetricRefreshRevoked, Name: "tokengate_refresh_revoked_total", Help: "Refresh exchanges rejected as revoked."},
	{ID: tokengate.MetricLogout, Name: "tokengate_logout_total", Help: "Single-device logout operations."},
	{ID: tokengate.MetricLogoutAll, Name: "tokengate_logout_all_total", Help: "Logout-all operations."},
	{ID: tokengate.MetricSweepRemoved, Name: "tokengate_sweep_removed_total", Help: "Expired session records removed by sweeps."},
}
