package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Latencies holds the per-stage latency histograms §9 calls out for
// matcher/risk timing. Buckets are tuned for sub-millisecond in-process
// work, not network round-trips.
type Latencies struct {
	Risk     prometheus.Histogram
	Matching prometheus.Histogram
	Gateway  prometheus.Histogram
}

// NewLatencies registers the three stage histograms against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel tests.
func NewLatencies(reg prometheus.Registerer) *Latencies {
	buckets := prometheus.ExponentialBuckets(1e-7, 2, 20) // 100ns .. ~52ms

	l := &Latencies{
		Risk: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchcore",
			Subsystem: "risk",
			Name:      "check_duration_seconds",
			Help:      "Time spent in the risk gate's Check call.",
			Buckets:   buckets,
		}),
		Matching: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchcore",
			Subsystem: "matching",
			Name:      "submit_duration_seconds",
			Help:      "Time spent matching one incoming order.",
			Buckets:   buckets,
		}),
		Gateway: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchcore",
			Subsystem: "marketdata",
			Name:      "process_duration_seconds",
			Help:      "Time spent processing one raw market-data message.",
			Buckets:   buckets,
		}),
	}
	reg.MustRegister(l.Risk, l.Matching, l.Gateway)
	return l
}
