package signin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a sign-in event. Every outcome still issues a session.
const (
	OutcomeLinked       = "linked"
	OutcomeNoEmail      = "no_email"
	OutcomeStoreFailure = "store_failure"
	OutcomeNoStore      = "no_store"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signin_events_total",
		Help: "Sign-in and refresh events by outcome.",
	}, []string{"event", "outcome"})

	tenantSourceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signin_tenant_source_total",
		Help: "Resolved tenants by the precedence step that produced them.",
	}, []string{"source"})
)
