package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/aegisshield/entity-network/internal/database"
	"github.com/aegisshield/entity-network/internal/engine"
	"github.com/aegisshield/entity-network/internal/matching"
	"github.com/aegisshield/entity-network/internal/metrics"
	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/resolver"
	"github.com/aegisshield/entity-network/internal/standardization"
)

// Service is the orchestration surface the HTTP API exposes
type Service interface {
	ResolveBatch(ctx context.Context, records []models.RawRecord) (*models.ResolutionJob, error)
	BuildNetwork(ctx context.Context, req engine.NetworkRequest) (*engine.NetworkResult, error)
	GetEntity(ctx context.Context, resolvedID string) (*models.ResolvedEntity, error)
	GetJob(ctx context.Context, id string) (*models.ResolutionJob, error)
}

// BatchSubmitter queues record batches for asynchronous resolution
type BatchSubmitter interface {
	PublishRecordBatch(ctx context.Context, records []models.RawRecord) (string, error)
}

// ReadinessCheck reports whether one dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// HTTPHandler handles HTTP requests for entity resolution and network generation
type HTTPHandler struct {
	service   Service
	submitter BatchSubmitter
	checks    map[string]ReadinessCheck
	metrics   *metrics.Collector
	debug     bool
	logger    *slog.Logger
}

// ResolveRequest is the body of POST /api/v1/resolve
type ResolveRequest struct {
	Records []models.RawRecord `json:"records"`
}

// SimilarityRequest is the body of POST /api/v1/similarity
type SimilarityRequest struct {
	NameA string `json:"name_a"`
	NameB string `json:"name_b"`
}

// SimilarityResponse reports every component of a name comparison
type SimilarityResponse struct {
	StandardizedA string             `json:"standardized_a"`
	StandardizedB string             `json:"standardized_b"`
	Scores        matching.NameScore `json:"scores"`
}

// NewHTTPHandler creates a new HTTP handler. Checks are run by /ready;
// debug adds error details to error responses.
func NewHTTPHandler(
	service Service,
	checks map[string]ReadinessCheck,
	collector *metrics.Collector,
	debug bool,
	logger *slog.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		checks:  checks,
		metrics: collector,
		debug:   debug,
		logger:  logger,
	}
}

// WithBatchSubmitter enables POST /api/v1/batches
func (h *HTTPHandler) WithBatchSubmitter(submitter BatchSubmitter) *HTTPHandler {
	h.submitter = submitter
	return h
}

// RegisterRoutes registers HTTP routes
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.MetricsMiddleware)

	api.HandleFunc("/resolve", h.ResolveBatch).Methods(http.MethodPost)
	api.HandleFunc("/batches", h.SubmitBatch).Methods(http.MethodPost)
	api.HandleFunc("/entities/{id}", h.GetEntity).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet)
	api.HandleFunc("/networks", h.BuildNetwork).Methods(http.MethodPost)
	api.HandleFunc("/similarity", h.CompareNames).Methods(http.MethodPost)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadinessCheck).Methods(http.MethodGet)
}

// ResolveBatch resolves a batch of raw records synchronously
func (h *HTTPHandler) ResolveBatch(w http.ResponseWriter, r *http.Request) {
	var request ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(request.Records) == 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "At least one record is required", nil)
		return
	}

	job, err := h.service.ResolveBatch(r.Context(), request.Records)
	if err != nil {
		if errors.Is(err, resolver.ErrInvalidInput) {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid records", err)
			return
		}
		h.logger.Error("Failed to resolve batch", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to resolve batch", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, job)
}

// SubmitBatch queues a batch on the records topic and answers 202
func (h *HTTPHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	if h.submitter == nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "Asynchronous resolution is not enabled", nil)
		return
	}

	var request ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(request.Records) == 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "At least one record is required", nil)
		return
	}

	batchID, err := h.submitter.PublishRecordBatch(r.Context(), request.Records)
	if err != nil {
		h.logger.Error("Failed to submit batch", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to submit batch", err)
		return
	}

	h.logger.Info("Batch submitted", "batch_id", batchID, "records", len(request.Records))
	h.writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"batch_id": batchID,
		"records":  len(request.Records),
	})
}

// GetEntity returns a stored resolved entity
func (h *HTTPHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entity, err := h.service.GetEntity(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "Entity", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, entity)
}

// GetJob returns a stored resolution job
func (h *HTTPHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "Resolution job", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, job)
}

// BuildNetwork generates a relationship network
func (h *HTTPHandler) BuildNetwork(w http.ResponseWriter, r *http.Request) {
	var request engine.NetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.service.BuildNetwork(r.Context(), request)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidRequest) {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid network request", err)
			return
		}
		h.logger.Error("Failed to build network", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to build network", err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, result)
}

// CompareNames scores two names with every name similarity measure
func (h *HTTPHandler) CompareNames(w http.ResponseWriter, r *http.Request) {
	var request SimilarityRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a := standardization.StandardizeName(request.NameA)
	b := standardization.StandardizeName(request.NameB)
	h.writeJSONResponse(w, http.StatusOK, SimilarityResponse{
		StandardizedA: a,
		StandardizedB: b,
		Scores:        matching.NameScoreBreakdown(a, b),
	})
}

// HealthCheck reports liveness
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "entity-network",
		"timestamp": time.Now().UTC(),
	})
}

// ReadinessCheck runs every dependency check
func (h *HTTPHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	statusCode := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Readiness check failed", "component", name, "error", err)
			components[name] = "unavailable"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	status := "ready"
	if statusCode != http.StatusOK {
		status = "not_ready"
	}
	h.writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}

// Helper methods

func (h *HTTPHandler) writeLookupError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.writeErrorResponse(w, http.StatusNotFound, what+" not found", err)
	case errors.Is(err, engine.ErrStoreDisabled):
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "Entity store is not configured", err)
	default:
		h.logger.Error("Lookup failed", "resource", what, "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get "+what, err)
	}
}

func (h *HTTPHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *HTTPHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil && h.debug {
		response["details"] = err.Error()
	}

	h.writeJSONResponse(w, statusCode, response)
}

// Middleware

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// MetricsMiddleware logs API requests and records their count and latency
// by route template
func (h *HTTPHandler) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		duration := time.Since(start)
		h.metrics.RecordRequest("http", r.Method+" "+route, strconv.Itoa(recorder.status), duration)

		h.logger.Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}
