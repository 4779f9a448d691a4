package imoji

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/imoji/pkg/transport"
)

const metricsNamespace = "imoji"

var apiEndpoints = []string{
	"oauth/revoke",
	"imoji/search",
	"imoji/featured",
	"imoji/fetchMultiple",
	"categories/fetch",
	"user/imoji/collection/add",
	"user/imoji/collection",
}

type metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	handshakes  *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// newMetrics builds the session collectors, unregistered.
func newMetrics() *metrics {
	return &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "api_requests_total",
			Help:      "HTTP attempts against the imoji API by endpoint and status.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of HTTP attempts against the imoji API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "content_cache_hits_total",
			Help:      "Renders served from the content cache or a coalesced render.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "content_cache_misses_total",
			Help:      "Renders that had to be produced.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handshakes_total",
			Help:      "Consumed handshake callbacks by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_state_transitions_total",
			Help:      "Applied session state transitions.",
		}, []string{"from", "to"}),
	}
}

// register adds every collector to reg, or none of them: on failure the ones
// already added are removed again. A nil reg is a no-op.
func (m *metrics) register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	collectors := []prometheus.Collector{m.requests, m.duration, m.cacheHits, m.cacheMisses, m.handshakes, m.transitions}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return newError(CodeInvalidArgument, "register metrics", err)
		}
	}
	return nil
}

// observe records one transport attempt.
func (m *metrics) observe(base *url.URL, a transport.Attempt) {
	endpoint := endpointLabel(base, a.URL)
	status := "error"
	if a.StatusCode != 0 {
		status = strconv.Itoa(a.StatusCode)
	}
	m.requests.WithLabelValues(endpoint, status).Inc()
	m.duration.WithLabelValues(endpoint).Observe(a.Duration.Seconds())
}

// endpointLabel keeps label cardinality bounded: known API paths map to
// themselves, everything else is an asset download.
func endpointLabel(base *url.URL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || base == nil || !strings.EqualFold(u.Host, base.Host) {
		return "download"
	}
	rest := strings.Trim(strings.TrimPrefix(u.Path, base.Path), "/")
	for _, e := range apiEndpoints {
		if rest == e {
			return e
		}
	}
	return "download"
}
