package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(extractionLatencyMs, extractionCandidates) }

var extractionLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "extraction_latency_ms",
		Help:    "Structured extraction call latency in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
	},
	[]string{"provider", "model", "success"},
)

var extractionCandidates = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "extraction_candidates_per_document",
		Help:    "Candidate tickets extracted per document.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	},
)

func ObserveExtraction(provider, model string, latencyMs int, candidates int, success bool) {
	extractionLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	if success {
		extractionCandidates.Observe(float64(candidates))
	}
}
