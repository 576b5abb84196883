package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(documentsTotal, batchesTotal, recordsCreatedTotal, chainFallbacksTotal)
}

var documentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingestion_documents_total",
		Help: "Documents run through the ingestion pipeline, labeled by final state.",
	},
	[]string{"state"}, // 'completed', 'no_data', 'skipped', 'failed'
)

var batchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingestion_batches_total",
		Help: "Ingestion batches, labeled by outcome.",
	},
	[]string{"status"}, // 'completed', 'halted', 'rejected'
)

var recordsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingestion_records_created_total",
		Help: "Business records created by the pipeline, labeled by kind.",
	},
	[]string{"kind"}, // 'ticket', 'client', 'booking', 'invoice'
)

var chainFallbacksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "record_chain_fallbacks_total",
		Help: "Times the manual record-creation fallback ran because the workflow failed.",
	},
)

func IncDocument(state string) { documentsTotal.WithLabelValues(norm(state)).Inc() }

func IncBatch(status string) { batchesTotal.WithLabelValues(norm(status)).Inc() }

func IncRecordsCreated(kind string, n int) {
	if n > 0 {
		recordsCreatedTotal.WithLabelValues(norm(kind)).Add(float64(n))
	}
}

func IncChainFallback() { chainFallbacksTotal.Inc() }
