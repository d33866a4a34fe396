// Package batch implements the offline scoring run: resolve artifacts,
// read a CSV of feature rows, validate and score each row independently
// and write a date-stamped output file. A bad row becomes an error row;
// only an artifact or file failure aborts the run.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"iris-predictor/internal/artifacts"
	"iris-predictor/internal/features"
	"iris-predictor/internal/metrics"
	"iris-predictor/internal/predict"
)

// Options configures one batch run. OutputPath may be empty, in which
// case a predictions_<YYYYMMDD>.csv path beside the input is used so
// each run's output stays distinguishable.
type Options struct {
	InputPath  string
	OutputPath string
	Source     artifacts.Source
}

// Summary reports what a completed run did.
type Summary struct {
	Rows       int
	Scored     int
	ErrorRows  int
	OutputPath string
}

type row struct {
	cells map[string]any
	vec   []float64 // nil when invalid
	err   error
}

// Run executes the batch scoring end to end. Artifact-load and file I/O
// failures abort the whole run; row-level validation failures do not.
func Run(opts Options, m *metrics.Metrics) (Summary, error) {
	bundle, err := artifacts.Load(opts.Source)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve artifacts: %w", err)
	}
	predictor := predict.New(bundle, m)

	rows, err := readInput(opts.InputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("read input: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		tag := bundle.Tag
		outputPath = filepath.Join(filepath.Dir(opts.InputPath), "predictions_"+tag+".csv")
	}

	summary := Summary{Rows: len(rows), OutputPath: outputPath}

	// The outlier flag is a batch-level statistic over the valid rows.
	valid := make([][]float64, 0, len(rows))
	for _, r := range rows {
		if r.err == nil {
			valid = append(valid, r.vec)
		}
	}
	flags := features.OutlierFlags(valid)

	type scored struct {
		r      row
		result predict.Result
	}
	results := make([]scored, 0, len(rows))
	vi := 0
	for _, r := range rows {
		m.BatchRowsProcessed.Inc()
		if r.err != nil {
			m.BatchRowErrors.Inc()
			summary.ErrorRows++
			results = append(results, scored{r: r})
			continue
		}
		result, err := predictor.Predict(r.vec, flags[vi])
		vi++
		if err != nil {
			log.Error().Err(err).Floats64("features", r.vec).Msg("row prediction failed")
			r.err = err
			m.BatchRowErrors.Inc()
			summary.ErrorRows++
			results = append(results, scored{r: r})
			continue
		}
		summary.Scored++
		results = append(results, scored{r: r, result: result})
	}

	writer, file, err := openOutput(outputPath)
	if err != nil {
		return Summary{}, err
	}
	defer file.Close()

	header := append(append([]string{}, features.Names...), "prediction", "prediction_class_name", "error")
	if err := writer.Write(header); err != nil {
		return Summary{}, fmt.Errorf("write output: %w", err)
	}
	for _, s := range results {
		if err := writer.Write(outputRow(s.r, s.result)); err != nil {
			return Summary{}, fmt.Errorf("write output: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return Summary{}, fmt.Errorf("write output: %w", err)
	}

	log.Info().
		Str("input", opts.InputPath).
		Str("output", outputPath).
		Int("rows", summary.Rows).
		Int("scored", summary.Scored).
		Int("error_rows", summary.ErrorRows).
		Msg("batch run complete")

	return summary, nil
}

// readInput loads the CSV and validates each row independently. The
// header must name all four feature columns; extra columns are ignored.
func readInput(path string) ([]row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil // empty input, header-only output
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	indices := make(map[string]int, len(header))
	for i, col := range header {
		indices[col] = i
	}
	for _, name := range features.Names {
		if _, ok := indices[name]; !ok {
			return nil, fmt.Errorf("input missing required column %q", name)
		}
	}

	var rows []row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		// A ragged row still carries its cells; validation turns the
		// missing ones into an error row instead of losing the rest of
		// the file. Any other reader error is a file-level failure.
		if err != nil && !errors.Is(err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}

		cells := make(map[string]any, features.RawWidth)
		for _, name := range features.Names {
			if idx := indices[name]; idx < len(record) {
				cells[name] = record[idx]
			}
		}

		r := row{cells: cells}
		r.vec, r.err = features.Validate(cells)
		rows = append(rows, r)
	}

	log.Info().Str("file", path).Int("rows", len(rows)).Msg("input loaded")
	return rows, nil
}

func openOutput(path string) (*csv.Writer, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return csv.NewWriter(file), file, nil
}

func outputRow(r row, result predict.Result) []string {
	out := make([]string, 0, features.RawWidth+3)
	if r.err == nil {
		for _, v := range r.vec {
			out = append(out, strconv.FormatFloat(v, 'g', -1, 64))
		}
		out = append(out, strconv.Itoa(result.Index), result.Class, "")
		return out
	}

	// Error rows echo the raw cells and carry the cause in the error
	// column; prediction columns stay empty.
	for _, name := range features.Names {
		cell := ""
		if v, ok := r.cells[name].(string); ok {
			cell = v
		}
		out = append(out, cell)
	}
	out = append(out, "", "", r.err.Error())
	return out
}
