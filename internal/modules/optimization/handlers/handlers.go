// Package handlers exposes the optimization pipeline over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/optimization"
)

// Handler handles HTTP requests for the optimization module.
type Handler struct {
	service  *optimization.Service
	defaults domain.RunParams
	log      zerolog.Logger
}

// NewHandler creates an optimization handler. Defaults fill in any run
// parameter the request body omits.
func NewHandler(service *optimization.Service, defaults domain.RunParams, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		defaults: defaults,
		log:      log.With().Str("component", "optimization_handler").Logger(),
	}
}

// RegisterRoutes registers all optimization routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimization", func(r chi.Router) {
		r.Post("/run", h.HandleRun)
		r.Post("/frontier", h.HandleFrontier)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{runID}", h.HandleGetRun)
		r.Delete("/runs/{runID}", h.HandleDeleteRun)
	})
}

// HandleRun handles POST /api/optimization/run. The body is a partial
// RunParams; omitted fields take the configured defaults.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	params := h.defaults
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	solution, err := h.service.Run(params)
	if err != nil {
		h.writeDomainError(w, err, "Optimization run failed")
		return
	}

	h.writeJSON(w, http.StatusOK, solution)
}

// FrontierRequest is the body for POST /api/optimization/frontier.
type FrontierRequest struct {
	Samples int   `json:"samples"`
	Seed    int64 `json:"seed"`
}

// HandleFrontier handles POST /api/optimization/frontier - samples random
// portfolios for a return/risk cloud.
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	req := FrontierRequest{Samples: 500}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	points, err := h.service.Frontier(req.Samples, req.Seed)
	if err != nil {
		h.writeDomainError(w, err, "Frontier sampling failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"samples": len(points),
		"points":  points,
	})
}

// HandleListRuns handles GET /api/optimization/runs.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	repo := h.service.Runs()
	if repo == nil {
		h.writeError(w, http.StatusNotImplemented, "Run persistence is disabled")
		return
	}

	summaries, err := repo.List(0)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(summaries),
		"runs":  summaries,
	})
}

// HandleGetRun handles GET /api/optimization/runs/{runID}.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	repo := h.service.Runs()
	if repo == nil {
		h.writeError(w, http.StatusNotImplemented, "Run persistence is disabled")
		return
	}

	runID := chi.URLParam(r, "runID")
	solution, err := repo.Get(runID)
	if errors.Is(err, optimization.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load run")
		h.writeError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}

	h.writeJSON(w, http.StatusOK, solution)
}

// HandleDeleteRun handles DELETE /api/optimization/runs/{runID}.
func (h *Handler) HandleDeleteRun(w http.ResponseWriter, r *http.Request) {
	repo := h.service.Runs()
	if repo == nil {
		h.writeError(w, http.StatusNotImplemented, "Run persistence is disabled")
		return
	}

	runID := chi.URLParam(r, "runID")
	err := repo.Delete(runID)
	if errors.Is(err, optimization.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to delete run")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": runID})
}

// writeDomainError maps pipeline errors to HTTP statuses: bad parameters are
// client errors, thin or degenerate data is unprocessable, anything else is
// a server error.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, logMsg string) {
	var cfgErr *domain.ConfigurationError
	var dataErr *domain.InsufficientDataError
	var singularErr *domain.SingularCovarianceError
	var infeasibleErr *domain.InfeasibleError
	var penaltyErr *domain.PenaltyInsufficientError

	switch {
	case errors.As(err, &cfgErr):
		h.writeError(w, http.StatusBadRequest, cfgErr.Error())
	case errors.As(err, &dataErr):
		h.writeError(w, http.StatusUnprocessableEntity, dataErr.Error())
	case errors.As(err, &singularErr):
		h.writeError(w, http.StatusUnprocessableEntity, singularErr.Error())
	case errors.As(err, &infeasibleErr):
		h.writeError(w, http.StatusUnprocessableEntity, infeasibleErr.Error())
	case errors.As(err, &penaltyErr):
		h.writeError(w, http.StatusUnprocessableEntity, penaltyErr.Error())
	default:
		h.log.Error().Err(err).Msg(logMsg)
		h.writeError(w, http.StatusInternalServerError, logMsg)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
