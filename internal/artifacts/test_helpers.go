package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TestModel returns a small hand-built classifier for tests. The class
// scores depend only on the petal columns, which separates the three
// iris species on typical measurements.
func TestModel() *Model {
	return &Model{
		Coefficients: [][]float64{
			{0, 0, -2, -2, 0, 0, 0},
			{0, 0, 1, 0.5, 0, 0, 0},
			{0, 0, 2, 2, 0, 0, 0},
		},
		Intercepts: []float64{6, -3, -10},
		TrainedAt:  "2025-01-02T03:04:05Z",
	}
}

// TestScaler returns an identity scaler so test expectations can be
// computed by hand.
func TestScaler() *Scaler {
	return &Scaler{
		Mean:  make([]float64, 7),
		Scale: []float64{1, 1, 1, 1, 1, 1, 1},
	}
}

// TestBundle returns an in-memory bundle for tests that do not need the
// file-based load path.
func TestBundle() *Bundle {
	return &Bundle{
		Model:      TestModel(),
		Scaler:     TestScaler(),
		Tag:        "20250102",
		ModelPath:  ModelPath("artifacts", "20250102"),
		ScalerPath: ScalerPath("artifacts", "20250102"),
		LoadedAt:   time.Now(),
	}
}

// WriteTestPair writes the test model and scaler into dir under the
// conventional names for the given tag, returning the two paths.
func WriteTestPair(dir, tag string) (string, string, error) {
	modelPath := ModelPath(dir, tag)
	scalerPath := ScalerPath(dir, tag)
	if err := writeTestJSON(modelPath, TestModel()); err != nil {
		return "", "", err
	}
	if err := writeTestJSON(scalerPath, TestScaler()); err != nil {
		return "", "", err
	}
	return modelPath, scalerPath, nil
}

func writeTestJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o600)
}
