package main

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"iris-predictor/internal/artifacts"
	"iris-predictor/internal/batch"
	"iris-predictor/internal/metrics"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "Path to input CSV (required)")
		outputPath = flag.String("output", "", "Path for output CSV (default: predictions_<YYYYMMDD>.csv beside the input)")
		modelPath  = flag.String("model", "", "Path to model artifact (default: <artifacts dir>/iris_model_<YYYYMMDD>.json)")
		scalerPath = flag.String("scaler", "", "Path to scaler artifact (default: <artifacts dir>/iris_scaler_<YYYYMMDD>.json)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		flag.Usage()
		log.Error().Msg("--input is required")
		os.Exit(1)
	}

	source := artifacts.Source{
		Dir:        envOrDefault("ARTIFACTS_DIR", "artifacts"),
		Tag:        envOrDefault("DATE_TAG", time.Now().Format(artifacts.TagFormat)),
		ModelPath:  *modelPath,
		ScalerPath: *scalerPath,
	}

	log.Info().
		Str("input", *inputPath).
		Str("output", *outputPath).
		Str("model", *modelPath).
		Str("scaler", *scalerPath).
		Msg("starting batch prediction")

	summary, err := batch.Run(batch.Options{
		InputPath:  *inputPath,
		OutputPath: *outputPath,
		Source:     source,
	}, metrics.New())
	if err != nil {
		log.Error().Err(err).Msg("batch prediction failed")
		os.Exit(1)
	}

	log.Info().
		Int("rows", summary.Rows).
		Int("scored", summary.Scored).
		Int("error_rows", summary.ErrorRows).
		Str("output", summary.OutputPath).
		Msg("batch prediction finished")
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
