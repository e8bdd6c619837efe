// Package handlers implements the HTTP tool surface: one route per
// operation, synchronous request/response, JSON bodies.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	apperrors "github.com/seqforge/prosol/internal/errors"
	"github.com/seqforge/prosol/pkg/jobs"
)

// Handlers serves the job management routes. All job state access goes
// through the manager; handlers never touch records directly.
type Handlers struct {
	mgr *jobs.Manager
	log *zap.Logger
}

func New(mgr *jobs.Manager, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{mgr: mgr, log: log}
}

type submitRequest struct {
	Kind      string         `json:"kind"`
	Name      string         `json:"name,omitempty"`
	InputSpec map[string]any `json:"input_spec"`
}

// decodeSpec converts the loosely-typed input_spec payload into the typed
// spec. Unknown fields are submission mistakes and are rejected.
func decodeSpec(raw map[string]any) (jobs.InputSpec, error) {
	var spec jobs.InputSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &spec,
		ErrorUnused: true,
	})
	if err != nil {
		return spec, jobs.Errf(jobs.ErrInternalFault, "build spec decoder: %v", err)
	}
	if err := dec.Decode(raw); err != nil {
		return spec, jobs.Errf(jobs.ErrInvalidInput, "invalid input_spec: %v", err)
	}
	return spec, nil
}

// SubmitJob handles POST /jobs.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.RespondWithError(w, r, jobs.Errf(jobs.ErrInvalidInput, "invalid request body: %v", err))
		return
	}
	kind, err := jobs.ParseKind(req.Kind)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	spec, err := decodeSpec(req.InputSpec)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	jobID, err := h.mgr.Submit(kind, spec, strings.TrimSpace(req.Name))
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// ListJobs handles GET /jobs with an optional ?status= filter.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	var filter jobs.State
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		parsed, err := jobs.ParseState(s)
		if err != nil {
			apperrors.RespondWithError(w, r, err)
			return
		}
		filter = parsed
	}

	recs, err := h.mgr.List(filter)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": recs})
}

// JobStatus handles GET /jobs/{job_id}.
func (h *Handlers) JobStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.mgr.Status(chi.URLParam(r, "job_id"))
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// JobResult handles GET /jobs/{job_id}/result.
func (h *Handlers) JobResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.mgr.Result(chi.URLParam(r, "job_id"))
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// JobLog handles GET /jobs/{job_id}/log?tail=N.
func (h *Handlers) JobLog(w http.ResponseWriter, r *http.Request) {
	tail := 0
	if s := strings.TrimSpace(r.URL.Query().Get("tail")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			apperrors.RespondWithError(w, r, jobs.Errf(jobs.ErrInvalidInput, "invalid tail %q", s))
			return
		}
		tail = n
	}

	lines, total, err := h.mgr.Log(chi.URLParam(r, "job_id"), tail)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"lines":       lines,
		"total_lines": total,
	})
}

// CancelJob handles POST /jobs/{job_id}/cancel.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.mgr.Cancel(chi.URLParam(r, "job_id"))
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"outcome": outcome})
}

// RunSync handles POST /run: inline execution for short operations,
// bypassing the worker pool. No job id is issued.
func (h *Handlers) RunSync(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.RespondWithError(w, r, jobs.Errf(jobs.ErrInvalidInput, "invalid request body: %v", err))
		return
	}
	kind, err := jobs.ParseKind(req.Kind)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	spec, err := decodeSpec(req.InputSpec)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	res, err := h.mgr.RunSync(r.Context(), kind, spec)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
