package remote

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects coordinator counters.
type Metrics struct {
	RequestsSubmitted prometheus.Counter
	RequestsDeferred  prometheus.Counter
	RequestsFailed    prometheus.Counter

	MessagesReceived *prometheus.CounterVec
	MessagesDropped  prometheus.Counter

	DedupSuppressed prometheus.Counter

	AccountRootHits   prometheus.Counter
	AccountRootMisses prometheus.Counter
}

// NewMetrics creates and registers the coordinator metrics. A nil registerer
// leaves them unregistered, which keeps tests independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "requests_submitted_total",
			Help: "Requests accepted by the router.",
		}),
		RequestsDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "requests_deferred_total",
			Help: "Requests queued while offline.",
		}),
		RequestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "requests_failed_total",
			Help: "Requests failed by the router before dispatch.",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "messages_received_total",
			Help: "Inbound node messages by type.",
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "messages_dropped_total",
			Help: "Inbound messages dropped as malformed.",
		}),
		DedupSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "transactions_suppressed_total",
			Help: "Transaction notifications suppressed as duplicates.",
		}),
		AccountRootHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "account_root_cache_hits_total",
			Help: "Account-root requests answered from cache.",
		}),
		AccountRootMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xrpl_remote", Name: "account_root_cache_misses_total",
			Help: "Account-root requests dispatched to the network.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsSubmitted, m.RequestsDeferred, m.RequestsFailed,
			m.MessagesReceived, m.MessagesDropped, m.DedupSuppressed,
			m.AccountRootHits, m.AccountRootMisses,
		)
	}
	return m
}
