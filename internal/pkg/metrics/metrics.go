// Package metrics defines and registers all custom Prometheus metrics for the
// users service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry on package load, so
// importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users"

// ── Authentication metrics ────────────────────────────────────────────────────

// SignInTotal counts sign-in attempts.
// Label:
//   - outcome: "success", "unknown_user", "wrong_credentials", "locked" or "error"
var SignInTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_in_total",
		Help:      "Total number of sign-in attempts, by outcome.",
	},
	[]string{"outcome"},
)

// TokensIssuedTotal counts signed tokens.
// Label:
//   - type: "access" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of tokens issued, by token type.",
	},
	[]string{"type"},
)

// TokenRenewalsTotal counts refresh-token redemptions.
// Label:
//   - outcome: "success", "missing", "expired" or "invalid"
var TokenRenewalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_renewals_total",
		Help:      "Total number of access-token renewals, by outcome.",
	},
	[]string{"outcome"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersCreatedTotal counts successful registrations.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of users created.",
	},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsPublishedTotal counts event deliveries to the broker.
// Labels:
//   - event_type: e.g. "user.registered"
//   - result: "ok", "error" or "dropped"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of integration events handed to the broker, by type and result.",
	},
	[]string{"event_type", "result"},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
