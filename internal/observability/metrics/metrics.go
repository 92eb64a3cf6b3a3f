package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters/histograms for the lead relay.
type RelayMetrics struct {
	submissionsTotal *prometheus.CounterVec
	downstreamTotal  *prometheus.CounterVec
	relayLatency     *prometheus.HistogramVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "relay",
			Name:      "submissions_total",
			Help:      "Total form submissions by result",
		}, []string{"form", "result"}),
		downstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadrelay",
			Subsystem: "relay",
			Name:      "downstream_attempts_total",
			Help:      "Total CRM and mail attempts by outcome",
		}, []string{"target", "channel", "outcome"}),
		relayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadrelay",
			Subsystem: "relay",
			Name:      "request_duration_seconds",
			Help:      "Latency of lead relay requests including downstream calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"form"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.downstreamTotal, m.relayLatency)
	return m
}

// ObserveSubmission counts a submission; result is accepted, invalid or error.
func (m *RelayMetrics) ObserveSubmission(form, result string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(form, result).Inc()
}

// ObserveDownstream counts one CRM or mail attempt.
func (m *RelayMetrics) ObserveDownstream(target, channel, outcome string) {
	if m == nil {
		return
	}
	m.downstreamTotal.WithLabelValues(target, channel, outcome).Inc()
}

func (m *RelayMetrics) ObserveLatency(form string, seconds float64) {
	if m == nil {
		return
	}
	m.relayLatency.WithLabelValues(form).Observe(seconds)
}
