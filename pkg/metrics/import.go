package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	importRuns       = counterVec("import_runs_total", "Import runs by outcome (count)", "status")
	importRunTime    = histogramVec("import_run_duration_ms", "Duration of a full import run in milliseconds", runBuckets, "status")
	importPhaseTime  = histogramVec("import_phase_duration_ms", "Duration of a single import phase in milliseconds", latencyBuckets, "phase")
	importEntities   = prometheus.NewCounter(prometheus.CounterOpts{Name: "import_entities_total", Help: "Normalized entities written to snapshots (count)"})
	rowsRejected     = counterVec("import_rows_rejected_total", "Raw rows not turned into entities (count)", "reason")
	changeEvents     = counterVec("change_events_total", "Classified change events (count)", "change_type", "severity")
	counterCacheHits = counterVec("counter_cache_requests_total", "Projection counter cache lookups (count)", "result")
	fallbacks        = counterVec("fallback_usage_total", "Times a degraded path served a request (count)", "service", "strategy", "reason")
)

func RegisterImportMetrics() {
	register(importRuns, importRunTime, importPhaseTime, importEntities, rowsRejected, changeEvents, counterCacheHits, fallbacks)
}

func ObserveImportRun(duration time.Duration, status string) {
	importRuns.WithLabelValues(status).Inc()
	importRunTime.WithLabelValues(status).Observe(ms(duration))
}

func ObserveImportPhase(phase string, duration time.Duration) {
	importPhaseTime.WithLabelValues(phase).Observe(ms(duration))
}

func AddImportEntities(n int) {
	importEntities.Add(float64(n))
}

func AddRowsRejected(reason string, n int) {
	if n > 0 {
		rowsRejected.WithLabelValues(reason).Add(float64(n))
	}
}

func AddChangeEvents(changeType, severity string, n int) {
	if n > 0 {
		changeEvents.WithLabelValues(changeType, severity).Add(float64(n))
	}
}

// IncCounterCacheRequest records a lookup result: hit, miss or error.
func IncCounterCacheRequest(result string) {
	counterCacheHits.WithLabelValues(result).Inc()
}

func IncFallback(service, strategy, reason string) {
	fallbacks.WithLabelValues(service, strategy, reason).Inc()
}
