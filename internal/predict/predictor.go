// Package predict applies the resolved artifact pair to validated
// feature vectors. Inference is pure and deterministic; failures are
// reported to the caller, never retried.
package predict

import (
	"fmt"
	"time"

	"iris-predictor/internal/artifacts"
	"iris-predictor/internal/features"
)

// ClassNames maps a class index to its species label.
var ClassNames = []string{"setosa", "versicolor", "virginica"}

// Metrics defines the metric hooks the predictor needs.
type Metrics interface {
	PredictionsInc()
	InferenceFailuresInc()
	LatencyObserve(float64)
}

// Result is one prediction: class index, species label and the wall-clock
// time the transform+predict step took.
type Result struct {
	Index   int
	Class   string
	Elapsed time.Duration
}

// Predictor runs the shared scale-then-classify routine against one
// immutable bundle. Safe for concurrent use; it holds no mutable state.
type Predictor struct {
	bundle  *artifacts.Bundle
	metrics Metrics
}

func New(bundle *artifacts.Bundle, metrics Metrics) *Predictor {
	return &Predictor{bundle: bundle, metrics: metrics}
}

// Predict derives the full feature vector from a validated raw 4-vector,
// applies the scaler and classifies. The outlier flag comes from the
// caller: always false online, per-batch on the batch path.
func (p *Predictor) Predict(raw []float64, outlier bool) (Result, error) {
	if p == nil || p.bundle == nil {
		return Result{}, fmt.Errorf("no artifacts loaded")
	}

	start := time.Now()
	res, err := p.run(raw, outlier)
	elapsed := time.Since(start)

	if p.metrics != nil {
		p.metrics.LatencyObserve(elapsed.Seconds())
		if err != nil {
			p.metrics.InferenceFailuresInc()
		} else {
			p.metrics.PredictionsInc()
		}
	}
	if err != nil {
		return Result{}, err
	}
	res.Elapsed = elapsed
	return res, nil
}

func (p *Predictor) run(raw []float64, outlier bool) (Result, error) {
	full, err := features.Derive(raw, outlier)
	if err != nil {
		return Result{}, err
	}
	scaled, err := p.bundle.Scaler.Transform(full)
	if err != nil {
		return Result{}, fmt.Errorf("scale: %w", err)
	}
	idx, err := p.bundle.Model.Predict(scaled)
	if err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	if idx >= len(ClassNames) {
		return Result{}, fmt.Errorf("class index %d out of range", idx)
	}
	return Result{Index: idx, Class: ClassNames[idx]}, nil
}
