// Package metrics defines and registers all custom Prometheus metrics for the
// customer portal. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry on package init via
// promauto; /metrics exposes them together with the echoprometheus request
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register/login/confirm/reset attempts.
// Labels:
//   - operation: "register", "login", "confirm", "reset_request", "reset"
//   - outcome: "ok", "invalid", "duplicate", "unconfirmed", "bad_credentials", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// TokensIssuedTotal counts session tokens minted.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of session tokens issued.",
	},
)

// ── Route guard metrics ───────────────────────────────────────────────────────

// RouteGuardDecisionsTotal counts guard classifications.
// Labels:
//   - state: "public", "unrestricted", "protected_no_token",
//     "protected_valid_token", "protected_invalid_token"
//   - reason: "missing", "invalid", "expired" or "" when allowed
var RouteGuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_guard_decisions_total",
		Help:      "Total number of route guard decisions, by state.",
	},
	[]string{"state", "reason"},
)

// ── Application metrics ───────────────────────────────────────────────────────

// ApplicationsSubmittedTotal counts new visa applications.
// Labels:
//   - destination: e.g. "france"
//   - visa_type: e.g. "tourist"
var ApplicationsSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_submitted_total",
		Help:      "Total number of visa applications submitted.",
	},
	[]string{"destination", "visa_type"},
)

// ApplicationsReplayedTotal counts submissions answered from an Idempotency-Key.
var ApplicationsReplayedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_replayed_total",
		Help:      "Total number of application submissions answered by idempotent replay.",
	},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailQueueDepth tracks pending messages per dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of messages pending in each mail worker channel.",
	},
	[]string{"worker_id"},
)

// MailSentTotal counts delivery results.
// Labels:
//   - kind: "verification", "password_reset", "application_received"
//   - result: "sent", "failed", "dropped"
var MailSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_sent_total",
		Help:      "Total number of outgoing emails, by kind and result.",
	},
	[]string{"kind", "result"},
)

// MailSendDuration measures a single SMTP delivery.
var MailSendDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_send_duration_seconds",
		Help:      "Duration of a single mail delivery.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)
