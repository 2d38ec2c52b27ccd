package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics records JSON-RPC activity segmented by method and outcome.
type RPCMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *RPCMetrics
)

// RPC returns the lazily-initialised RPC metrics registry. Collectors are
// registered against the default Prometheus registerer on first use.
func RPC() *RPCMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bankchain",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bankchain",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bankchain",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.errors, rpcRegistry.latency)
	})
	return rpcRegistry
}

// ObserveRequest records one handled request.
func (m *RPCMetrics) ObserveRequest(method string, start time.Time, errCode int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if errCode != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, strconv.Itoa(errCode)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ReporterMetrics records rate-reporter activity.
type ReporterMetrics struct {
	polls       prometheus.Counter
	refreshes   prometheus.Counter
	submissions *prometheus.CounterVec
	fetchErrors prometheus.Counter
}

var (
	reporterMetricsOnce sync.Once
	reporterRegistry    *ReporterMetrics
)

// Reporter returns the lazily-initialised rate-reporter metrics registry.
func Reporter() *ReporterMetrics {
	reporterMetricsOnce.Do(func() {
		reporterRegistry = &ReporterMetrics{
			polls: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bankchain",
				Subsystem: "rated",
				Name:      "polls_total",
				Help:      "Total event-log polls against the node.",
			}),
			refreshes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bankchain",
				Subsystem: "rated",
				Name:      "refresh_requests_total",
				Help:      "Total refresh requests observed in the event log.",
			}),
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bankchain",
				Subsystem: "rated",
				Name:      "submissions_total",
				Help:      "Total rate submissions segmented by outcome.",
			}, []string{"outcome"}),
			fetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bankchain",
				Subsystem: "rated",
				Name:      "price_fetch_errors_total",
				Help:      "Total failures fetching the upstream price.",
			}),
		}
		prometheus.MustRegister(
			reporterRegistry.polls,
			reporterRegistry.refreshes,
			reporterRegistry.submissions,
			reporterRegistry.fetchErrors,
		)
	})
	return reporterRegistry
}

// ObservePoll records one poll of the node's event log and the number of
// refresh requests it surfaced.
func (m *ReporterMetrics) ObservePoll(refreshes int) {
	if m == nil {
		return
	}
	m.polls.Inc()
	for i := 0; i < refreshes; i++ {
		m.refreshes.Inc()
	}
}

// ObserveSubmission records one rate submission attempt.
func (m *ReporterMetrics) ObserveSubmission(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveFetchError records a failed upstream price fetch.
func (m *ReporterMetrics) ObserveFetchError() {
	if m == nil {
		return
	}
	m.fetchErrors.Inc()
}
