package features

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func validRecord() map[string]any {
	return map[string]any{
		"sepal length (cm)": 5.1,
		"sepal width (cm)":  3.5,
		"petal length (cm)": 1.4,
		"petal width (cm)":  0.2,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  map[string]any
		want    []float64
		reason  RejectReason
		inError string
	}{
		{
			name:   "valid record preserves feature order",
			record: validRecord(),
			want:   []float64{5.1, 3.5, 1.4, 0.2},
		},
		{
			name: "integers accepted",
			record: map[string]any{
				"sepal length (cm)": 4,
				"sepal width (cm)":  3.5,
				"petal length (cm)": 1.4,
				"petal width (cm)":  0.2,
			},
			want: []float64{4, 3.5, 1.4, 0.2},
		},
		{
			name: "numeric strings coerced for the CSV path",
			record: map[string]any{
				"sepal length (cm)": "5.1",
				"sepal width (cm)":  "3.5",
				"petal length (cm)": "1.4",
				"petal width (cm)":  "0.2",
			},
			want: []float64{5.1, 3.5, 1.4, 0.2},
		},
		{
			name:   "empty record",
			record: map[string]any{},
			reason: RejectEmpty,
		},
		{
			name:   "nil record",
			record: nil,
			reason: RejectEmpty,
		},
		{
			name: "missing field named in error",
			record: map[string]any{
				"sepal length (cm)": 5.1,
				"sepal width (cm)":  3.5,
				"petal length (cm)": 1.4,
			},
			reason:  RejectMissing,
			inError: "petal width (cm)",
		},
		{
			name: "non-numeric string",
			record: map[string]any{
				"sepal length (cm)": 5.1,
				"sepal width (cm)":  "wide",
				"petal length (cm)": 1.4,
				"petal width (cm)":  0.2,
			},
			reason:  RejectWrongType,
			inError: "sepal width (cm)",
		},
		{
			name: "null value",
			record: map[string]any{
				"sepal length (cm)": 5.1,
				"sepal width (cm)":  3.5,
				"petal length (cm)": nil,
				"petal width (cm)":  0.2,
			},
			reason: RejectWrongType,
		},
		{
			name: "bool value",
			record: map[string]any{
				"sepal length (cm)": 5.1,
				"sepal width (cm)":  3.5,
				"petal length (cm)": true,
				"petal width (cm)":  0.2,
			},
			reason: RejectWrongType,
		},
		{
			name: "non-positive value",
			record: map[string]any{
				"sepal length (cm)": 5.1,
				"sepal width (cm)":  3.5,
				"petal length (cm)": 1.4,
				"petal width (cm)":  -0.2,
			},
			reason:  RejectRange,
			inError: "petal width (cm)",
		},
		{
			name: "NaN rejected",
			record: map[string]any{
				"sepal length (cm)": math.NaN(),
				"sepal width (cm)":  3.5,
				"petal length (cm)": 1.4,
				"petal width (cm)":  0.2,
			},
			reason: RejectRange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vec, err := Validate(tc.record)
			if tc.reason == "" {
				if err != nil {
					t.Fatalf("expected success, got error: %v", err)
				}
				if len(vec) != RawWidth {
					t.Fatalf("expected %d values, got %d", RawWidth, len(vec))
				}
				for i, want := range tc.want {
					if vec[i] != want {
						t.Errorf("vec[%d] = %v, want %v", i, vec[i], want)
					}
				}
				return
			}

			if err == nil {
				t.Fatalf("expected %s rejection, got vector %v", tc.reason, vec)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if verr.Reason != tc.reason {
				t.Errorf("expected reason %q, got %q", tc.reason, verr.Reason)
			}
			if tc.inError != "" && !strings.Contains(err.Error(), tc.inError) {
				t.Errorf("expected error to name %q, got %q", tc.inError, err.Error())
			}
		})
	}
}

func TestValidate_AllOrNothing(t *testing.T) {
	// One missing field and one bad value: the record is rejected as a
	// whole, no partial vector escapes.
	record := map[string]any{
		"sepal length (cm)": 5.1,
		"sepal width (cm)":  "wide",
		"petal length (cm)": 1.4,
	}
	vec, err := Validate(record)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if vec != nil {
		t.Errorf("expected no vector on rejection, got %v", vec)
	}
}

func TestDerive(t *testing.T) {
	raw := []float64{5.1, 3.5, 1.4, 0.2}

	full, err := Derive(raw, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(full) != Width {
		t.Fatalf("expected width %d, got %d", Width, len(full))
	}
	for i, v := range raw {
		if full[i] != v {
			t.Errorf("raw feature %d changed: %v != %v", i, full[i], v)
		}
	}
	if got, want := full[4], 5.1/(3.5+epsilon); math.Abs(got-want) > 1e-12 {
		t.Errorf("sepal_ratio = %v, want %v", got, want)
	}
	if got, want := full[5], 1.4/(0.2+epsilon); math.Abs(got-want) > 1e-12 {
		t.Errorf("petal_ratio = %v, want %v", got, want)
	}
	if full[6] != 0 {
		t.Errorf("outlier flag = %v, want 0", full[6])
	}

	flagged, err := Derive(raw, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flagged[6] != 1 {
		t.Errorf("outlier flag = %v, want 1", flagged[6])
	}
}

func TestDerive_WrongWidth(t *testing.T) {
	if _, err := Derive([]float64{1, 2, 3}, false); err == nil {
		t.Error("expected error for short vector")
	}
}

func TestOutlierFlags(t *testing.T) {
	// Twenty near-identical rows and one far-off row: only the outlier
	// is flagged.
	rows := make([][]float64, 0, 21)
	base := []float64{5.0, 3.4, 1.5, 0.2}
	for i := 0; i < 20; i++ {
		r := make([]float64, 4)
		copy(r, base)
		r[0] += float64(i) * 0.01
		rows = append(rows, r)
	}
	rows = append(rows, []float64{50.0, 3.4, 1.5, 0.2})

	flags := OutlierFlags(rows)
	for i := 0; i < 20; i++ {
		if flags[i] {
			t.Errorf("row %d flagged as outlier", i)
		}
	}
	if !flags[20] {
		t.Error("expected far-off row to be flagged")
	}
}

func TestOutlierFlags_SmallBatch(t *testing.T) {
	flags := OutlierFlags([][]float64{{5.0, 3.4, 1.5, 0.2}})
	if len(flags) != 1 || flags[0] {
		t.Errorf("single-row batch should not flag anything, got %v", flags)
	}
	if got := OutlierFlags(nil); len(got) != 0 {
		t.Errorf("expected no flags for empty batch, got %v", got)
	}
}
