// Package artifacts resolves and loads the serialized model and scaler
// pair produced by the training pipeline. Artifacts are loaded exactly
// once at startup; the resulting Bundle is immutable and safe for any
// number of concurrent readers.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"iris-predictor/internal/features"
)

const (
	modelPrefix  = "iris_model"
	scalerPrefix = "iris_scaler"
	artifactExt  = ".json"

	// TagFormat is the YYYYMMDD layout of the date tag embedded in
	// artifact and batch output file names.
	TagFormat = "20060102"
)

// Model is a serialized multinomial logistic-regression classifier: one
// coefficient row and intercept per class. Prediction is the argmax of
// the per-class linear scores over a scaled feature vector.
type Model struct {
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
	TrainedAt    string      `json:"trained_at,omitempty"`
}

// Predict returns the class index with the highest linear score.
func (m *Model) Predict(x []float64) (int, error) {
	best := 0
	bestScore := 0.0
	for i, row := range m.Coefficients {
		if len(row) != len(x) {
			return 0, fmt.Errorf("model expects %d features, got %d", len(row), len(x))
		}
		score := m.Intercepts[i]
		for j, w := range row {
			score += w * x[j]
		}
		if i == 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best, nil
}

// Scaler is a serialized standard scaler: per-column mean and scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform normalizes a feature vector column-wise.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// Source describes where to find the artifact pair. Explicit paths take
// precedence; otherwise paths are built from the base directory and date
// tag following the <name>_<YYYYMMDD>.json convention.
type Source struct {
	Dir        string
	Tag        string
	ModelPath  string
	ScalerPath string
}

// Resolve returns the concrete model and scaler paths for this source,
// plus the effective date tag (today's when none was set). Tag
// defaulting lives here and nowhere else.
func (s Source) Resolve() (model, scaler, tag string) {
	tag = s.Tag
	if tag == "" {
		tag = time.Now().Format(TagFormat)
	}
	model = s.ModelPath
	if model == "" {
		model = ModelPath(s.Dir, tag)
	}
	scaler = s.ScalerPath
	if scaler == "" {
		scaler = ScalerPath(s.Dir, tag)
	}
	return model, scaler, tag
}

// ModelPath builds the conventional model artifact path for a date tag.
func ModelPath(dir, tag string) string {
	return filepath.Join(dir, modelPrefix+"_"+tag+artifactExt)
}

// ScalerPath builds the conventional scaler artifact path for a date tag.
func ScalerPath(dir, tag string) string {
	return filepath.Join(dir, scalerPrefix+"_"+tag+artifactExt)
}

// Bundle is a resolved (model, scaler) pair plus the provenance needed
// for the model info endpoint. Immutable after Load.
type Bundle struct {
	Model      *Model
	Scaler     *Scaler
	Tag        string
	ModelPath  string
	ScalerPath string
	LoadedAt   time.Time
	ModelMTime time.Time
}

// Load deserializes the artifact pair described by src. It is called
// exactly once at startup; any failure here is final and callers must
// degrade rather than retry per request.
func Load(src Source) (*Bundle, error) {
	modelPath, scalerPath, tag := src.Resolve()

	var model Model
	if err := readJSON(modelPath, &model); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	var scaler Scaler
	if err := readJSON(scalerPath, &scaler); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	if err := validatePair(&model, &scaler); err != nil {
		return nil, fmt.Errorf("validate artifacts: %w", err)
	}

	b := &Bundle{
		Model:      &model,
		Scaler:     &scaler,
		Tag:        tag,
		ModelPath:  modelPath,
		ScalerPath: scalerPath,
		LoadedAt:   time.Now(),
	}
	if info, err := os.Stat(modelPath); err == nil {
		b.ModelMTime = info.ModTime()
	}

	log.Info().
		Str("model_path", modelPath).
		Str("scaler_path", scalerPath).
		Str("tag", b.Tag).
		Int("classes", len(model.Coefficients)).
		Msg("artifacts loaded")

	return b, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// validatePair checks that the model and scaler agree on the feature
// width the shared pipeline produces.
func validatePair(m *Model, s *Scaler) error {
	if len(m.Coefficients) < 2 {
		return fmt.Errorf("model has %d classes, need at least 2", len(m.Coefficients))
	}
	if len(m.Intercepts) != len(m.Coefficients) {
		return fmt.Errorf("model has %d intercepts for %d classes", len(m.Intercepts), len(m.Coefficients))
	}
	for i, row := range m.Coefficients {
		if len(row) != features.Width {
			return fmt.Errorf("model class %d expects %d features, pipeline produces %d", i, len(row), features.Width)
		}
	}
	if len(s.Mean) != features.Width || len(s.Scale) != features.Width {
		return fmt.Errorf("scaler covers %d/%d columns, pipeline produces %d", len(s.Mean), len(s.Scale), features.Width)
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scaler column %d has zero scale", i)
		}
	}
	return nil
}
