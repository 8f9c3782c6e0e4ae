package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "academy", Name: "rate_limit_allowed_total", Help: "Allowed requests by limiter backend and scope."},
		[]string{"limiter", "scope"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "academy", Name: "rate_limit_rejected_total", Help: "Rejected requests by limiter backend and scope."},
		[]string{"limiter", "scope"},
	)
	SessionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "academy", Name: "session_resolutions_total", Help: "Session resolutions by outcome (cached, found, missing, error, stale, signed_out)."},
		[]string{"outcome"},
	)
	ProfileSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "academy", Name: "profile_saves_total", Help: "Profile editor saves by outcome."},
		[]string{"outcome"},
	)
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "academy", Name: "guard_decisions_total", Help: "Route guard decisions by outcome."},
		[]string{"outcome"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "academy", Name: "active_session_controllers", Help: "Session controllers currently held by the registry."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(SessionResolutions)
	reg.MustRegister(ProfileSaves)
	reg.MustRegister(GuardDecisions)
	reg.MustRegister(ActiveSessions)
}
