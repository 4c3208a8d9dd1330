// Package metrics exposes rate limiting statistics through Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts admission outcomes and drop burst sizes. It satisfies
// the MetricsRecorder interfaces of both pkg/tickgate and api.
type Recorder struct {
	requests   *prometheus.CounterVec
	dropBursts *prometheus.HistogramVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
// A nil reg uses the default Prometheus registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickgate",
			Name:      "requests_total",
			Help:      "Admission attempts by key and outcome.",
		}, []string{"key", "outcome"}),
		dropBursts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tickgate",
			Name:      "drop_burst_size",
			Help:      "Consecutive dropped calls flushed at the next successful admission.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"key"}),
	}
}

// RecordRequest counts one admission attempt for key.
func (r *Recorder) RecordRequest(key string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "dropped"
	}
	r.requests.WithLabelValues(key, outcome).Inc()
}

// RecordDropBurst observes the size of a flushed drop burst for key.
func (r *Recorder) RecordDropBurst(key string, dropped uint32) {
	r.dropBursts.WithLabelValues(key).Observe(float64(dropped))
}

// DropBurstCallback adapts RecordDropBurst to the limiter's dropped-call
// callback shape:
//
//	limiter.SetDroppedCallCallback(recorder.DropBurstCallback("telemetry"))
func (r *Recorder) DropBurstCallback(key string) func(uint32) {
	return func(dropped uint32) {
		r.RecordDropBurst(key, dropped)
	}
}

// Handler serves the default Prometheus registry, for mounting at
// /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
