package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aiwot/reputation-engine/internal/scoring"
	"github.com/aiwot/reputation-engine/internal/wottype"
)

// Metrics holds the aggregator's prometheus instruments. A nil *Metrics is
// always safe to use: every recording method returns early when the
// Aggregator's metrics are nil, so metrics remain strictly optional.
type Metrics struct {
	relayQueries  *prometheus.CounterVec
	relayDuration *prometheus.HistogramVec
	scoresServed  prometheus.Counter
}

// NewMetrics registers the aggregator's instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		relayQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiwot",
			Subsystem: "relay",
			Name:      "queries_total",
			Help:      "Relay queries attempted by the aggregator, labeled by relay and outcome.",
		}, []string{"relay", "outcome"}),
		relayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aiwot",
			Subsystem: "relay",
			Name:      "query_duration_seconds",
			Help:      "Per-relay query latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"relay"}),
		scoresServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aiwot",
			Subsystem: "scoring",
			Name:      "results_total",
			Help:      "Reputation scores computed by the aggregator.",
		}),
	}
	reg.MustRegister(m.relayQueries, m.relayDuration, m.scoresServed)
	return m
}

func (a *Aggregator) recordRelayQuery(relayURL string, dur time.Duration, err error) {
	if a.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	a.metrics.relayQueries.WithLabelValues(relayURL, outcome).Inc()
	a.metrics.relayDuration.WithLabelValues(relayURL).Observe(dur.Seconds())
}

func (a *Aggregator) recordScore(target wottype.Key, result scoring.Result) {
	if a.metrics == nil {
		return
	}
	_ = target
	_ = result
	a.metrics.scoresServed.Inc()
}
