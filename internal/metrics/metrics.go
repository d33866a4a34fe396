// Package metrics provides Prometheus metrics for the iris prediction
// service and batch scorer, exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction paths.
type Metrics struct {
	PredictionsTotal   prometheus.Counter   // Total number of successful predictions
	ValidationFailures prometheus.Counter   // Total number of rejected input records
	InferenceFailures  prometheus.Counter   // Total number of failures inside transform/predict
	PredictionLatency  prometheus.Histogram // Transform+predict latency in seconds
	ModelAge           prometheus.Gauge     // Age of the loaded model artifact in seconds

	BatchRowsProcessed prometheus.Counter // Total number of batch rows read
	BatchRowErrors     prometheus.Counter // Total number of batch rows written as error rows
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, which keeps
// tests isolated from the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful predictions",
		}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total number of input records rejected by validation",
		}),
		InferenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "inference_failures_total",
			Help: "Total number of failures inside the transform/predict step",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Transform+predict latency in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
		BatchRowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_rows_processed_total",
			Help: "Total number of batch input rows read",
		}),
		BatchRowErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_row_errors_total",
			Help: "Total number of batch rows written as error rows",
		}),
	}
}

// PredictionsInc implements the predictor's metrics interface.
func (m *Metrics) PredictionsInc() { m.PredictionsTotal.Inc() }

// InferenceFailuresInc implements the predictor's metrics interface.
func (m *Metrics) InferenceFailuresInc() { m.InferenceFailures.Inc() }

// LatencyObserve implements the predictor's metrics interface.
func (m *Metrics) LatencyObserve(v float64) { m.PredictionLatency.Observe(v) }
