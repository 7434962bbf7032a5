// Package handlers implements the HTTP handlers for the trex server.
// Handlers are boundary code: decode, validate, call the registry or the
// upstream client, and shape the JSON response. Every failure becomes a
// structured JSON error; nothing here is fatal to the process.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/trexlab/trex/internal/artifacts"
	"github.com/trexlab/trex/internal/store"
	"github.com/trexlab/trex/internal/upstream"
	"github.com/trexlab/trex/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store     store.Store
	Upstream  *upstream.Client
	Artifacts *artifacts.Dir
}

// New creates a new Handlers instance.
func New(s store.Store, up *upstream.Client, art *artifacts.Dir) *Handlers {
	return &Handlers{
		Store:     s,
		Upstream:  up,
		Artifacts: art,
	}
}

// ── Run Handlers ─────────────────────────────────────────────

// ListRuns handles GET /api/runs — a full snapshot in insertion order.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/run/{runID}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.Store.GetRun(r.Context(), runID)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, "Run not found")
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// CreateRuns handles POST /api/run-job. Configs are validated strictly:
// the first offending field fails the whole request, and no run from the
// batch is stored.
func (h *Handlers) CreateRuns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Configs []models.RunConfig `json:"configs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Configs == nil {
		respondError(w, http.StatusBadRequest, "configs is required")
		return
	}
	for i := range req.Configs {
		if err := req.Configs[i].Validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	runs, err := h.Store.CreateRuns(r.Context(), req.Configs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Int("count", len(runs)).Msg("Run job accepted")
	respondJSON(w, http.StatusOK, runs)
}

// ── Experiment Proxy ─────────────────────────────────────────

// RunExperiments handles POST /api/run_experiments. The prompt is
// forwarded to the translation service; its JSON is echoed back verbatim.
// On success the coerced experiments are recorded as pending runs and an
// assistant message is appended to the transcript.
func (h *Handlers) RunExperiments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	body, err := h.Upstream.RunExperiments(r.Context(), req.Prompt)
	if err != nil {
		var unavail *upstream.ErrUnavailable
		if errors.As(err, &unavail) {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error":   "Experiment backend unavailable",
				"details": unavail.Err.Error(),
			})
			return
		}
		var serr *upstream.StatusError
		if errors.As(err, &serr) {
			respondJSON(w, serr.Code, map[string]string{
				"error":   "Experiment backend error",
				"details": serr.Body,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.recordExperiments(r, body)

	// Echo the upstream JSON untouched; the UI renders it as-is.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// recordExperiments coerces the upstream payload and stores the resulting
// runs plus an assistant transcript message. Recording is best-effort:
// a malformed payload degrades to nothing stored, never to a failed
// request, and the upstream body is echoed either way.
func (h *Handlers) recordExperiments(r *http.Request, body []byte) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("Upstream payload is not JSON, nothing recorded")
		return
	}

	batch := models.CoerceExperimentBatch(payload)
	if len(batch.Experiments) == 0 {
		return
	}

	runs, err := h.Store.CreateRunsFromExperiments(r.Context(), batch.Experiments)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store experiment runs")
		return
	}

	content := batch.Summary
	if content == "" {
		content = "Experiments completed"
	}
	msg := &models.ChatMessage{
		ID:          "msg-" + uuid.New().String(),
		Role:        models.RoleAssistant,
		Content:     content,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Experiments: batch.Experiments,
		Summary:     batch.Summary,
		RawOutput:   batch.RawOutput,
	}
	if _, err := h.Store.AddMessage(r.Context(), msg); err != nil {
		log.Error().Err(err).Msg("Failed to store assistant message")
	}

	log.Info().Int("runs", len(runs)).Msg("Experiment results recorded")
}

// ── Message Handlers ─────────────────────────────────────────

// ListMessages handles GET /api/messages — the transcript in arrival order.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Store.ListMessages(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

// AddMessage handles POST /api/messages. ID and timestamp are filled when
// the client omits them; everything else validates strictly.
func (h *Handlers) AddMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
		} else {
			respondError(w, http.StatusBadRequest, "Invalid request body")
		}
		return
	}

	if msg.ID == "" {
		msg.ID = "msg-" + uuid.New().String()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if err := msg.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.Store.AddMessage(r.Context(), &msg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

// ── Artifact Handlers ────────────────────────────────────────

// RunImage handles GET /api/run/{runID}/image — serves the first artifact
// whose filename is prefixed by the run id.
func (h *Handlers) RunImage(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	path, err := h.Artifacts.Resolve(runID)
	if err != nil {
		var noArt *artifacts.ErrNoArtifact
		if errors.As(err, &noArt) {
			respondJSON(w, http.StatusNotFound, map[string]string{
				"error": "No image for run " + runID,
				"path":  noArt.Path,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.ServeFile(w, r, path)
}

type imageInfo struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// RunImages handles GET /api/run/{runID}/images — lists all artifacts for
// a run. A run with no artifacts yields an empty list, not an error.
func (h *Handlers) RunImages(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	names, err := h.Artifacts.List(runID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	images := make([]imageInfo, 0, len(names))
	for _, name := range names {
		images = append(images, imageInfo{
			Filename: name,
			URL:      "/artifacts/" + name,
		})
	}
	respondJSON(w, http.StatusOK, images)
}

// ── Plot Handler ─────────────────────────────────────────────

// RunPlot handles GET /api/run/{runID}/plot — a Plotly-shaped figure of
// the run's reported accuracy. Runs without metrics yield an empty trace
// list so the viewer renders a blank chart instead of erroring.
func (h *Handlers) RunPlot(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.Store.GetRun(r.Context(), runID)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, "Run not found")
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	plot := models.PlotData{
		Data: []any{},
		Layout: models.PlotLayout{
			Title: "Accuracy — " + run.ID,
			XAxis: map[string]any{"title": "run"},
			YAxis: map[string]any{"title": "accuracy"},
		},
	}
	if run.Accuracy != nil {
		plot.Data = append(plot.Data, map[string]any{
			"type": "bar",
			"x":    []string{run.ID},
			"y":    []float64{*run.Accuracy},
		})
	}
	respondJSON(w, http.StatusOK, plot)
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
