package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"iris-predictor/internal/features"
)

func TestSourceResolve(t *testing.T) {
	tests := []struct {
		name       string
		source     Source
		wantModel  string
		wantScaler string
	}{
		{
			name:       "directory and tag convention",
			source:     Source{Dir: "artifacts", Tag: "20250102"},
			wantModel:  filepath.Join("artifacts", "iris_model_20250102.json"),
			wantScaler: filepath.Join("artifacts", "iris_scaler_20250102.json"),
		},
		{
			name: "explicit paths win over convention",
			source: Source{
				Dir:        "artifacts",
				Tag:        "20250102",
				ModelPath:  "/opt/models/m.json",
				ScalerPath: "/opt/models/s.json",
			},
			wantModel:  "/opt/models/m.json",
			wantScaler: "/opt/models/s.json",
		},
		{
			name:       "explicit model path only",
			source:     Source{Dir: "artifacts", Tag: "20250102", ModelPath: "/opt/models/m.json"},
			wantModel:  "/opt/models/m.json",
			wantScaler: filepath.Join("artifacts", "iris_scaler_20250102.json"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model, scaler, tag := tc.source.Resolve()
			if model != tc.wantModel {
				t.Errorf("model path = %q, want %q", model, tc.wantModel)
			}
			if scaler != tc.wantScaler {
				t.Errorf("scaler path = %q, want %q", scaler, tc.wantScaler)
			}
			if tag != tc.source.Tag {
				t.Errorf("tag = %q, want %q", tag, tc.source.Tag)
			}
		})
	}
}

func TestSourceResolve_DefaultsTagToToday(t *testing.T) {
	model, scaler, tag := Source{Dir: "artifacts"}.Resolve()
	if _, err := time.Parse(TagFormat, tag); err != nil {
		t.Fatalf("tag %q is not YYYYMMDD: %v", tag, err)
	}
	if model != ModelPath("artifacts", tag) {
		t.Errorf("model path = %q, want convention for tag %s", model, tag)
	}
	if scaler != ScalerPath("artifacts", tag) {
		t.Errorf("scaler path = %q, want convention for tag %s", scaler, tag)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := WriteTestPair(dir, "20250102"); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	bundle, err := Load(Source{Dir: dir, Tag: "20250102"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bundle.Tag != "20250102" {
		t.Errorf("tag = %q, want 20250102", bundle.Tag)
	}
	if len(bundle.Model.Coefficients) != 3 {
		t.Errorf("expected 3 classes, got %d", len(bundle.Model.Coefficients))
	}
	if len(bundle.Scaler.Mean) != features.Width {
		t.Errorf("expected scaler width %d, got %d", features.Width, len(bundle.Scaler.Mean))
	}
	if bundle.ModelMTime.IsZero() {
		t.Error("expected model mtime to be recorded")
	}
}

func TestLoad_MissingModel(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(Source{Dir: dir, Tag: "20250102"})
	if err == nil {
		t.Fatal("expected error for missing artifacts")
	}
	if !strings.Contains(err.Error(), "load model") {
		t.Errorf("expected load model error, got: %v", err)
	}
}

func TestLoad_MissingScaler(t *testing.T) {
	dir := t.TempDir()
	if err := writeTestJSON(ModelPath(dir, "20250102"), TestModel()); err != nil {
		t.Fatalf("write model: %v", err)
	}

	_, err := Load(Source{Dir: dir, Tag: "20250102"})
	if err == nil {
		t.Fatal("expected error for missing scaler")
	}
	if !strings.Contains(err.Error(), "load scaler") {
		t.Errorf("expected load scaler error, got: %v", err)
	}
}

func TestLoad_CorruptModel(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := WriteTestPair(dir, "20250102"); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if err := os.WriteFile(ModelPath(dir, "20250102"), []byte("not json"), 0o600); err != nil {
		t.Fatalf("corrupt model: %v", err)
	}

	if _, err := Load(Source{Dir: dir, Tag: "20250102"}); err == nil {
		t.Fatal("expected error for corrupt model")
	}
}

func TestLoad_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	model := TestModel()
	model.Coefficients[1] = []float64{0, 0, 1} // wrong width
	if err := writeTestJSON(ModelPath(dir, "20250102"), model); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if err := writeTestJSON(ScalerPath(dir, "20250102"), TestScaler()); err != nil {
		t.Fatalf("write scaler: %v", err)
	}

	_, err := Load(Source{Dir: dir, Tag: "20250102"})
	if err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
	if !strings.Contains(err.Error(), "validate artifacts") {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestLoad_ZeroScale(t *testing.T) {
	dir := t.TempDir()
	scaler := TestScaler()
	scaler.Scale[2] = 0
	if err := writeTestJSON(ModelPath(dir, "20250102"), TestModel()); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if err := writeTestJSON(ScalerPath(dir, "20250102"), scaler); err != nil {
		t.Fatalf("write scaler: %v", err)
	}

	if _, err := Load(Source{Dir: dir, Tag: "20250102"}); err == nil {
		t.Fatal("expected error for zero scale column")
	}
}

func TestScalerTransform(t *testing.T) {
	s := &Scaler{
		Mean:  []float64{1, 1, 1, 1, 0, 0, 0},
		Scale: []float64{2, 2, 2, 2, 1, 1, 1},
	}
	out, err := s.Transform([]float64{3, 5, 1, 1, 2, 4, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, 2, 0, 0, 2, 4, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}

	if _, err := s.Transform([]float64{1, 2}); err == nil {
		t.Error("expected error for wrong input width")
	}
}

func TestModelPredict(t *testing.T) {
	m := TestModel()
	tests := []struct {
		name string
		x    []float64
		want int
	}{
		{"small petal is setosa", []float64{5.1, 3.5, 1.4, 0.2, 1.46, 7, 0}, 0},
		{"mid petal is versicolor", []float64{6.2, 2.8, 4.7, 1.3, 2.2, 3.6, 0}, 1},
		{"large petal is virginica", []float64{7.3, 2.9, 6.3, 1.8, 2.5, 3.5, 0}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Predict(tc.x)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("predicted class %d, want %d", got, tc.want)
			}
		})
	}

	if _, err := m.Predict([]float64{1, 2}); err == nil {
		t.Error("expected error for wrong input width")
	}
}
