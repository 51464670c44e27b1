// Package metrics defines the fleet's custom Prometheus metrics. It is the
// single source of truth for metric names, labels, and help strings; the
// per-request HTTP metrics come from echoprometheus separately.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filecove"

// LoginsTotal counts login attempts by outcome ("ok", "rejected", "error").
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts by outcome
// ("ok", "weak_password", "taken", "error").
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by outcome.",
	},
	[]string{"result"},
)

// RoleMutationsTotal counts grant/revoke operations.
// Labels:
//   - op: "grant" or "revoke"
//   - result: "ok", "rejected", "error"
var RoleMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_mutations_total",
		Help:      "Total number of role grant/revoke operations, by outcome.",
	},
	[]string{"op", "result"},
)

// TokenVerificationsTotal counts bearer-token validations in the shared
// middleware, labelled "ok", "missing", "invalid", or "bad_signature".
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of bearer token validations, by outcome.",
	},
	[]string{"result"},
)

// SessionKeygenDuration measures per-session RSA key generation, which is
// paid on every login and registration.
var SessionKeygenDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_keygen_duration_seconds",
		Help:      "Duration of per-session RSA key pair generation and signing.",
		Buckets:   prometheus.DefBuckets,
	},
)
