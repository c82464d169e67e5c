// Package metrics holds the Prometheus collectors of the sync binaries. Each
// concern has its own Register function so a binary exports only what it runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	runBuckets     = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}
	sizeBuckets    = prometheus.ExponentialBuckets(100, 5, 8)
)

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

func gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

func histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
}

func register(collectors ...prometheus.Collector) {
	prometheus.MustRegister(collectors...)
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
