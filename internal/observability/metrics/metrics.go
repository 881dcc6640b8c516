package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics exposes counters/histograms for webhook and bot flows.
type RelayMetrics struct {
	inboundTotal     *prometheus.CounterVec
	persistTotal     *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
	droppedTotal     *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botpe",
			Subsystem: "webhook",
			Name:      "inbound_events_total",
			Help:      "Total normalized inbound webhook items",
		}, []string{"account", "kind", "type"}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botpe",
			Subsystem: "webhook",
			Name:      "persist_total",
			Help:      "Event persistence attempts by outcome",
		}, []string{"kind", "status"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botpe",
			Subsystem: "webhook",
			Name:      "dropped_total",
			Help:      "Webhook bodies or items dropped before dispatch",
		}, []string{"reason"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botpe",
			Subsystem: "bot",
			Name:      "transitions_total",
			Help:      "Booking bot transitions by stage and outcome",
		}, []string{"from", "to", "outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botpe",
			Subsystem: "bot",
			Name:      "outbound_total",
			Help:      "Bot prompts sent through the BotPe API",
		}, []string{"account", "prompt", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "botpe",
			Subsystem: "webhook",
			Name:      "processing_seconds",
			Help:      "Latency of asynchronous webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.persistTotal, m.droppedTotal, m.transitionsTotal, m.outboundTotal, m.webhookLatency)
	return m
}

func (m *RelayMetrics) ObserveInbound(account, kind, msgType string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(account, kind, msgType).Inc()
}

func (m *RelayMetrics) ObservePersist(kind string, err error) {
	if m == nil {
		return
	}
	m.persistTotal.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *RelayMetrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *RelayMetrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, result).Inc()
}

func (m *RelayMetrics) ObserveOutbound(account, prompt string, err error) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(account, prompt, outcome(err)).Inc()
}

func (m *RelayMetrics) ObserveWebhookLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(route).Observe(seconds)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
