package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTemplateMetricsObserve(t *testing.T) {
	m := NewTemplateMetrics(prometheus.NewRegistry())
	m.ObserveValidate("valid")
	m.ObserveRender("stored", "ok")
	m.ObserveRenderLatency("stored", 0.002)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveBroadcast("sms", "sent")
}

func TestTemplateMetricsNilSafe(t *testing.T) {
	var m *TemplateMetrics
	m.ObserveValidate("valid")
	m.ObserveRender("inline", "error")
	m.ObserveRenderLatency("inline", 0.1)
	m.ObserveCache(false)
	m.ObserveBroadcast("survey", "failed")
}
