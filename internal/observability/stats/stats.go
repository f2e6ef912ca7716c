// Package stats exposes a JSON summary of the engine's Prometheus metrics
// for the outreach dashboard, so the UI does not need to scrape and parse
// the exposition format itself.
package stats

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/samparkhq/sampark/pkg/logging"
)

// Snapshot is the dashboard payload.
type Snapshot struct {
	Validations      map[string]int64 `json:"validations"`
	Renders          map[string]int64 `json:"renders"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	CacheHitRate     float64          `json:"cache_hit_rate"`
	Broadcasts       map[string]int64 `json:"broadcasts"`
	RenderLatencyP90 float64          `json:"render_latency_p90_ms"`
	RenderLatencyP95 float64          `json:"render_latency_p95_ms"`
}

// Handler serves GET /api/stats from a Prometheus gatherer.
type Handler struct {
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewHandler(gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{gatherer: gatherer, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mfs, err := h.gatherer.Gather()
	if err != nil {
		h.logger.Error("gather metrics", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	snap := Snapshot{
		Validations: map[string]int64{},
		Renders:     map[string]int64{},
		Broadcasts:  map[string]int64{},
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case "sampark_templates_validate_total":
			sumCounterBy(mf, "outcome", snap.Validations)
		case "sampark_templates_render_total":
			sumCounterBy(mf, "status", snap.Renders)
		case "sampark_templates_ast_cache_total":
			byResult := map[string]int64{}
			sumCounterBy(mf, "result", byResult)
			snap.CacheHits = byResult["hit"]
			snap.CacheMisses = byResult["miss"]
		case "sampark_campaigns_broadcast_messages_total":
			sumCounterBy(mf, "status", snap.Broadcasts)
		case "sampark_templates_render_latency_seconds":
			p90, p95 := latencyQuantiles(mf)
			snap.RenderLatencyP90 = p90 * 1000.0
			snap.RenderLatencyP95 = p95 * 1000.0
		}
	}

	if total := snap.CacheHits + snap.CacheMisses; total > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(total)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

func sumCounterBy(mf *dto.MetricFamily, label string, out map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		key := labelValue(metric, label)
		if key == "" {
			key = "unknown"
		}
		out[key] += int64(metric.GetCounter().GetValue())
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// latencyQuantiles aggregates histogram buckets across label sets and
// estimates p90/p95 from the cumulative counts.
func latencyQuantiles(mf *dto.MetricFamily) (p90, p95 float64) {
	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64

	for _, metric := range mf.Metric {
		if metric == nil {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return 0, 0
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper),
		histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper)
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	rank := uint64(math.Ceil(q * float64(total)))
	for _, upper := range uppers {
		if cumulativeByUpper[upper] >= rank {
			if math.IsInf(upper, 1) {
				break
			}
			return upper
		}
	}
	// Everything above the largest finite bucket.
	for i := len(uppers) - 1; i >= 0; i-- {
		if !math.IsInf(uppers[i], 1) {
			return uppers[i]
		}
	}
	return 0
}
