// Package observability exposes Prometheus instruments for collection runs
// and the API server scrape endpoint
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghinsight/ghinsight/internal/domain"
)

// Recorder bundles the instruments a collection service emits. Every
// Recorder owns an independent registry, so tests and servers never fight
// over collector registration.
type Recorder struct {
	registry *prometheus.Registry

	apiCalls      *prometheus.CounterVec
	rateRemaining *prometheus.GaugeVec
	runDuration   prometheus.Histogram
	repoFailures  prometheus.Counter
	runsCompleted *prometheus.CounterVec
}

// NewRecorder creates a recorder with all instruments registered on a fresh
// registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		apiCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghinsight",
			Name:      "api_calls_total",
			Help:      "GitHub API calls consumed, labeled by endpoint",
		}, []string{"endpoint"}),
		rateRemaining: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ghinsight",
			Name:      "rate_limit_remaining",
			Help:      "Remaining budget from the latest rate limit snapshot",
		}, []string{"endpoint"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ghinsight",
			Name:      "collection_duration_seconds",
			Help:      "Wall time of whole collection runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		repoFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ghinsight",
			Name:      "repository_failures_total",
			Help:      "Repositories skipped because collection failed",
		}),
		runsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ghinsight",
			Name:      "runs_total",
			Help:      "Collection runs by outcome",
		}, []string{"status"}),
	}
}

// Handler serves the scrape endpoint for this recorder's registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one completed collection run
func (r *Recorder) ObserveRun(result *domain.AggregateResult) {
	usage := result.Metadata.APIUsage
	r.runsCompleted.WithLabelValues("complete").Inc()
	r.runDuration.Observe(float64(result.Metadata.Execution.DurationMS) / 1000)
	r.repoFailures.Add(float64(result.Metadata.Collection.ErrorsEncountered))
	r.apiCalls.WithLabelValues(string(domain.EndpointCore)).Add(callDelta(usage.Before.Core, usage.After.Core))
	r.apiCalls.WithLabelValues(string(domain.EndpointGraphQL)).Add(callDelta(usage.Before.GraphQL, usage.After.GraphQL))
	r.ObserveSnapshot(&usage.After)
}

// ObserveFailure records a run that ended in an error
func (r *Recorder) ObserveFailure() {
	r.runsCompleted.WithLabelValues("failed").Inc()
}

// ObserveSnapshot updates the rate gauges from a fresh snapshot
func (r *Recorder) ObserveSnapshot(snapshot *domain.RateLimitSnapshot) {
	if snapshot == nil {
		return
	}
	r.rateRemaining.WithLabelValues(string(domain.EndpointCore)).Set(float64(snapshot.Core.Remaining))
	r.rateRemaining.WithLabelValues(string(domain.EndpointGraphQL)).Set(float64(snapshot.GraphQL.Remaining))
}

// callDelta derives how many calls one endpoint consumed between two
// snapshots. A negative difference means the window reset mid-run, in which
// case the calls of the fresh window are the best available answer.
func callDelta(before, after domain.RateLimitUsage) float64 {
	delta := after.CallsMade - before.CallsMade
	if delta < 0 {
		return float64(after.CallsMade)
	}
	return float64(delta)
}
