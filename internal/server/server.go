// Package server exposes the online prediction front end: health,
// prediction, metrics and model info endpoints over one resolved
// artifact pair. The artifact state is set once at construction and
// never changes; request handling is read-only.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"iris-predictor/internal/artifacts"
	"iris-predictor/internal/cfg"
	"iris-predictor/internal/features"
	"iris-predictor/internal/metrics"
	"iris-predictor/internal/predict"
)

// Server serves predictions over one immutable artifact bundle. When the
// startup load failed, loadErr records the cause and every prediction
// request is answered with 503 without touching the model.
type Server struct {
	bundle    *artifacts.Bundle
	loadErr   error
	predictor *predict.Predictor
	metrics   *metrics.Metrics
	server    *http.Server
}

// HealthResponse is the health check body. The endpoint itself never
// fails; Status reports the artifact state.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PredictResponse is the successful prediction body.
type PredictResponse struct {
	Prediction       int     `json:"prediction"`
	ClassName        string  `json:"class_name"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

// ErrorResponse is the structured error body for every failure mode.
type ErrorResponse struct {
	Error string `json:"error"`
}

// New creates the prediction server. bundle may be nil when loadErr is
// set; the server then serves the degraded state instead of refusing to
// start.
func New(c cfg.Settings, bundle *artifacts.Bundle, loadErr error, m *metrics.Metrics) *Server {
	s := &Server{
		bundle:  bundle,
		loadErr: loadErr,
		metrics: m,
	}
	if bundle != nil {
		s.predictor = predict.New(bundle, m)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/model/info", s.handleModelInfo)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", c.Port),
		Handler:      mux,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
	}

	return s
}

// Handler returns the route handler, used by tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Bool("artifacts_loaded", s.loadErr == nil).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Message: "service is running and artifacts are loaded",
	}
	if s.loadErr != nil {
		resp.Status = "error"
		resp.Message = "service is running but artifacts failed to load"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	if s.loadErr != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "model or scaler failed to load during initialization"})
		return
	}

	var record map[string]any
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	vec, err := features.Validate(record)
	if err != nil {
		s.metrics.ValidationFailures.Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := s.predictor.Predict(vec, false)
	if err != nil {
		log.Error().Err(err).Floats64("features", vec).Msg("prediction failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "prediction failed"})
		return
	}

	log.Debug().
		Floats64("features", vec).
		Int("prediction", result.Index).
		Str("class_name", result.Class).
		Dur("elapsed", result.Elapsed).
		Msg("prediction served")

	writeJSON(w, http.StatusOK, PredictResponse{
		Prediction:       result.Index,
		ClassName:        result.Class,
		ProcessingTimeMS: float64(result.Elapsed.Nanoseconds()) / 1e6,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if s.loadErr != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "artifacts failed to load"})
		return
	}

	info := map[string]any{
		"tag":         s.bundle.Tag,
		"model_path":  s.bundle.ModelPath,
		"scaler_path": s.bundle.ScalerPath,
		"trained_at":  s.bundle.Model.TrainedAt,
		"loaded_at":   s.bundle.LoadedAt.Format(time.RFC3339),
		"features":    features.Names,
		"classes":     predict.ClassNames,
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
