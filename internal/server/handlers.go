package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/ecwilsonaz/plexsage/internal/generator"
	"github.com/ecwilsonaz/plexsage/internal/models"
	"github.com/ecwilsonaz/plexsage/internal/repositories"
	"github.com/ecwilsonaz/plexsage/internal/shared"
	"github.com/ecwilsonaz/plexsage/internal/tasks"
)

// APIHandler serves the JSON API. It implements [Handler].
type APIHandler struct {
	repo         *repositories.CacheRepository
	orchestrator *tasks.Orchestrator
	pipeline     *generator.Pipeline
	maxTracks    int
	logger       *log.Logger
}

// NewAPIHandler wires the API over the cache, the sync orchestrator and the
// generation pipeline. maxTracks is the default candidate budget for
// generation requests that leave it unset.
func NewAPIHandler(repo *repositories.CacheRepository, orchestrator *tasks.Orchestrator, pipeline *generator.Pipeline, maxTracks int, logger *log.Logger) *APIHandler {
	return &APIHandler{
		repo:         repo,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		maxTracks:    maxTracks,
		logger:       logger.With("component", "api"),
	}
}

func (h *APIHandler) Routes() []string {
	return []string{
		"GET /api/library/status",
		"POST /api/library/sync",
		"POST /api/filter/preview",
		"POST /api/generate",
		"GET /api/genres",
		"GET /api/decades",
	}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/library/status":
		h.libraryStatus(w, r)
	case "/api/library/sync":
		h.librarySync(w, r)
	case "/api/filter/preview":
		h.filterPreview(w, r)
	case "/api/generate":
		h.generate(w, r)
	case "/api/genres":
		h.genres(w, r)
	case "/api/decades":
		h.decades(w, r)
	default:
		http.NotFound(w, r)
	}
}

// NewAPIRouter assembles the full middleware chain around the handler.
func NewAPIRouter(handler *APIHandler, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(WithRequestID(), WithLogging(logger))
	router.Handler(handler)
	return router
}

// generateRequest is the JSON body shared by the preview and generate
// endpoints. The prompt is ignored by preview.
type generateRequest struct {
	Prompt      string   `json:"prompt"`
	Genres      []string `json:"genres"`
	Decades     []string `json:"decades"`
	MinRating   int      `json:"min_rating"`
	ExcludeLive bool     `json:"exclude_live"`
	TrackCount  int      `json:"track_count"`
	MaxTracks   int      `json:"max_tracks_to_ai"`
}

func (h *APIHandler) pipelineRequest(body generateRequest) generator.Request {
	maxTracks := body.MaxTracks
	if maxTracks == 0 {
		maxTracks = h.maxTracks
	}

	return generator.Request{
		Prompt: body.Prompt,
		Criteria: models.FilterCriteria{
			Genres:      body.Genres,
			Decades:     body.Decades,
			MinRating:   body.MinRating,
			ExcludeLive: body.ExcludeLive,
		},
		TrackCount:    body.TrackCount,
		MaxTracksToAI: maxTracks,
	}
}

func (h *APIHandler) libraryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.orchestrator.Status()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) librarySync(w http.ResponseWriter, r *http.Request) {
	background, err := h.orchestrator.Trigger(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"started": true, "background": background})
}

func (h *APIHandler) filterPreview(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, shared.ErrInvalidInput)
		return
	}

	preview, err := h.pipeline.Preview(h.pipelineRequest(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

func (h *APIHandler) generate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, shared.ErrInvalidInput)
		return
	}

	playlist, err := h.pipeline.Generate(r.Context(), h.pipelineRequest(body))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, playlist)
}

func (h *APIHandler) genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.repo.Genres()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

func (h *APIHandler) decades(w http.ResponseWriter, r *http.Request) {
	decades, err := h.repo.Decades()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"decades": decades})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "err", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, shared.ErrSyncInProgress):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrCacheEmpty), errors.Is(err, shared.ErrNoMatches),
		errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrRemoteUnreachable), errors.Is(err, shared.ErrLLMRequest),
		errors.Is(err, shared.ErrBadLLMResponse):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestID(r), "err", err)
	}

	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
