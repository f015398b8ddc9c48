package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter mirrors Store's counters into Prometheus collectors so
// they can be scraped alongside the rest of process metrics.
type PrometheusExporter struct {
	interactions *prometheus.CounterVec
	quality      *prometheus.HistogramVec
	latencyMS    *prometheus.HistogramVec
	journalDepth prometheus.GaugeFunc
}

// NewPrometheusExporter registers the exporter's collectors with reg and
// wires journalDepth to report store's current journal backlog.
func NewPrometheusExporter(reg prometheus.Registerer, store *Store) (*PrometheusExporter, error) {
	e := &PrometheusExporter{
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orchestrator",
			Subsystem: "metrics",
			Name:      "interactions_total",
			Help:      "Total recorded interactions by agent and success.",
		}, []string{"agent_id", "success"}),
		quality: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orchestrator",
			Subsystem: "metrics",
			Name:      "interaction_quality",
			Help:      "Distribution of recorded interaction quality scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"agent_id"}),
		latencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orchestrator",
			Subsystem: "metrics",
			Name:      "interaction_latency_ms",
			Help:      "Distribution of recorded interaction response times in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}, []string{"agent_id"}),
	}
	e.journalDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "orchestrator",
		Subsystem: "metrics",
		Name:      "journal_depth",
		Help:      "Number of records currently buffered in the retry journal.",
	}, func() float64 { return float64(store.JournalLen()) })

	for _, c := range []prometheus.Collector{e.interactions, e.quality, e.latencyMS, e.journalDepth} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Observe feeds one InteractionRecord into the Prometheus collectors. Call
// this alongside Store.Record for every interaction.
func (e *PrometheusExporter) Observe(r InteractionRecord) {
	success := "false"
	if r.Success {
		success = "true"
	}
	e.interactions.WithLabelValues(r.AgentID, success).Inc()
	e.quality.WithLabelValues(r.AgentID).Observe(r.Quality)
	e.latencyMS.WithLabelValues(r.AgentID).Observe(float64(r.ResponseTimeMS))
}
