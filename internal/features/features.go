// Package features defines the iris feature schema shared by the online
// and batch prediction paths. It validates raw input records into ordered
// numeric vectors and appends the derived columns the scaler was fitted on,
// so both paths feed the model through the exact same pipeline.
package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Names lists the required input features in the order the scaler and
// model expect them.
var Names = []string{
	"sepal length (cm)",
	"sepal width (cm)",
	"petal length (cm)",
	"petal width (cm)",
}

const (
	// RawWidth is the number of raw input features.
	RawWidth = 4
	// Width is the vector width after the derived columns are appended:
	// the four raw features, sepal_ratio, petal_ratio and is_outlier.
	Width = 7

	// epsilon guards the ratio features against division by zero.
	epsilon = 1e-6

	// outlierZScore is the per-batch z-score beyond which a row is
	// flagged as an outlier.
	outlierZScore = 3.0
)

// RejectReason classifies why a record failed validation.
type RejectReason string

const (
	RejectEmpty     RejectReason = "empty input"
	RejectMissing   RejectReason = "missing field"
	RejectWrongType RejectReason = "wrong type"
	RejectRange     RejectReason = "out of range"
)

// ValidationError reports a failed record along with the violation class
// and the fields involved. Validation is all-or-nothing per record.
type ValidationError struct {
	Reason RejectReason
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

// Validate checks that a record carries all four required features with
// positive numeric values and returns the ordered raw vector. CSV cells
// arrive as strings, so numeric strings are coerced; anything else is a
// wrong-type rejection.
func Validate(record map[string]any) ([]float64, error) {
	if len(record) == 0 {
		return nil, &ValidationError{Reason: RejectEmpty}
	}

	var missing []string
	for _, name := range Names {
		if _, ok := record[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Reason: RejectMissing, Fields: missing}
	}

	vec := make([]float64, RawWidth)
	var badType, badRange []string
	for i, name := range Names {
		v, ok := toFloat(record[name])
		if !ok {
			badType = append(badType, name)
			continue
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			badRange = append(badRange, name)
			continue
		}
		vec[i] = v
	}
	if len(badType) > 0 {
		return nil, &ValidationError{Reason: RejectWrongType, Fields: badType}
	}
	if len(badRange) > 0 {
		return nil, &ValidationError{Reason: RejectRange, Fields: badRange}
	}

	return vec, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Derive appends the engineered columns to a validated raw vector,
// producing the full vector the scaler was fitted on. The outlier flag is
// always zero on the online path; the batch path computes it per batch
// via OutlierFlags.
func Derive(raw []float64, outlier bool) ([]float64, error) {
	if len(raw) != RawWidth {
		return nil, fmt.Errorf("expected %d raw features, got %d", RawWidth, len(raw))
	}

	full := make([]float64, Width)
	copy(full, raw)
	full[4] = raw[0] / (raw[1] + epsilon) // sepal_ratio
	full[5] = raw[2] / (raw[3] + epsilon) // petal_ratio
	if outlier {
		full[6] = 1
	}
	return full, nil
}

// OutlierFlags flags rows whose z-score exceeds the threshold on any
// numeric column (the four raw features plus the two ratios), using the
// batch's own mean and sample standard deviation. Rows must all be raw
// 4-vectors.
func OutlierFlags(rows [][]float64) []bool {
	flags := make([]bool, len(rows))
	if len(rows) < 2 {
		return flags
	}

	const cols = RawWidth + 2
	values := make([][]float64, len(rows))
	for i, raw := range rows {
		v := make([]float64, cols)
		copy(v, raw)
		v[4] = raw[0] / (raw[1] + epsilon)
		v[5] = raw[2] / (raw[3] + epsilon)
		values[i] = v
	}

	for c := 0; c < cols; c++ {
		var sum float64
		for _, v := range values {
			sum += v[c]
		}
		mean := sum / float64(len(values))

		var sq float64
		for _, v := range values {
			d := v[c] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(values)-1))
		if std == 0 {
			std = epsilon
		}

		for i, v := range values {
			if math.Abs((v[c]-mean)/std) > outlierZScore {
				flags[i] = true
			}
		}
	}

	return flags
}
