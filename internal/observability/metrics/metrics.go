package metrics

import "github.com/prometheus/client_golang/prometheus"

// TemplateMetrics exposes counters/histograms for template engine flows.
type TemplateMetrics struct {
	validateTotal  *prometheus.CounterVec
	renderTotal    *prometheus.CounterVec
	renderLatency  *prometheus.HistogramVec
	cacheTotal     *prometheus.CounterVec
	broadcastTotal *prometheus.CounterVec
}

func NewTemplateMetrics(reg prometheus.Registerer) *TemplateMetrics {
	m := &TemplateMetrics{
		validateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sampark",
			Subsystem: "templates",
			Name:      "validate_total",
			Help:      "Total template validations",
		}, []string{"outcome"}),
		renderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sampark",
			Subsystem: "templates",
			Name:      "render_total",
			Help:      "Total template renders",
		}, []string{"source", "status"}),
		renderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sampark",
			Subsystem: "templates",
			Name:      "render_latency_seconds",
			Help:      "Latency of template render operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sampark",
			Subsystem: "templates",
			Name:      "ast_cache_total",
			Help:      "Compiled-template cache lookups",
		}, []string{"result"}),
		broadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sampark",
			Subsystem: "campaigns",
			Name:      "broadcast_messages_total",
			Help:      "Messages produced by campaign broadcasts",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.validateTotal, m.renderTotal, m.renderLatency, m.cacheTotal, m.broadcastTotal)
	return m
}

func (m *TemplateMetrics) ObserveValidate(outcome string) {
	if m == nil {
		return
	}
	m.validateTotal.WithLabelValues(outcome).Inc()
}

func (m *TemplateMetrics) ObserveRender(source, status string) {
	if m == nil {
		return
	}
	m.renderTotal.WithLabelValues(source, status).Inc()
}

func (m *TemplateMetrics) ObserveRenderLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.renderLatency.WithLabelValues(source).Observe(seconds)
}

func (m *TemplateMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

func (m *TemplateMetrics) ObserveBroadcast(channel, status string) {
	if m == nil {
		return
	}
	m.broadcastTotal.WithLabelValues(channel, status).Inc()
}
