// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrendingRuns counts trending cycles by result: ok, partial, skipped or failed.
	TrendingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_trending_runs_total",
		Help: "Total number of trending score recomputation cycles",
	}, []string{"result"})

	// TrendingPosts counts posts handled by the trending job, by outcome.
	TrendingPosts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_trending_posts_total",
		Help: "Total number of posts processed by the trending job",
	}, []string{"outcome"})

	TrendingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polls_trending_run_duration_seconds",
		Help:    "Duration of a trending cycle in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Interactions counts interaction records written, by kind.
	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_interactions_total",
		Help: "Total number of user interactions recorded",
	}, []string{"kind"})

	// InteractionWriteErrors counts interaction or interest writes that failed after the post commit.
	InteractionWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_interaction_write_errors_total",
		Help: "Total number of failed interaction or interest writes",
	}, []string{"kind"})

	// FeedsServed counts feed pages by source: personalized or trending.
	FeedsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_feeds_served_total",
		Help: "Total number of feed pages served",
	}, []string{"source"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polls_http_requests_total",
		Help: "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polls_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Since returns a function that observes the time elapsed since the call, for defer.
func Since(o prometheus.Observer) func() {
	start := time.Now()
	return func() {
		o.Observe(time.Since(start).Seconds())
	}
}
