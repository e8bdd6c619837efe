package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/seqforge/prosol/internal/errors"
	"github.com/seqforge/prosol/pkg/jobs"
)

type stubExecutor struct {
	err error
}

func (s stubExecutor) Execute(ctx context.Context, req jobs.ExecRequest) (*jobs.ExecResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if req.Log != nil {
		req.Log.WriteLine("executing " + req.InputFile)
	}
	return &jobs.ExecResult{Artifacts: map[string]string{"csv": req.OutputPrefix + ".csv"}}, nil
}

// newTestRouter mounts the job routes the same way the server does, so URL
// parameters resolve.
func newTestRouter(t *testing.T, exec jobs.Executor) chi.Router {
	t.Helper()
	mgr, err := jobs.New(jobs.Config{DataDir: t.TempDir()}, exec, nil)
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	h := New(mgr, nil)
	r := chi.NewRouter()
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/", h.ListJobs)
		r.Get("/{job_id}", h.JobStatus)
		r.Get("/{job_id}/result", h.JobResult)
		r.Get("/{job_id}/log", h.JobLog)
		r.Post("/{job_id}/cancel", h.CancelJob)
	})
	r.Post("/run", h.RunSync)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPError {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func waitTerminal(t *testing.T, r http.Handler, jobID string) map[string]any {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		rec, body := doJSON(t, r, http.MethodGet, "/jobs/"+jobID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		state, _ := body["state"].(string)
		switch state {
		case "completed", "failed", "cancelled":
			return body
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state (state=%q)", jobID, state)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSubmitJob_Lifecycle(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	rec, body := doJSON(t, r, http.MethodPost, "/jobs",
		`{"kind":"predict","name":"demo","input_spec":{"input_file":"/tmp/in.fasta"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)

	final := waitTerminal(t, r, jobID)
	assert.Equal(t, "completed", final["state"])
	assert.Equal(t, "demo", final["name"])

	rec, body = doJSON(t, r, http.MethodGet, "/jobs/"+jobID+"/result", "")
	require.Equal(t, http.StatusOK, rec.Code)
	artifacts, _ := body["artifacts"].(map[string]any)
	assert.NotEmpty(t, artifacts["csv"])

	rec, body = doJSON(t, r, http.MethodGet, "/jobs/"+jobID+"/log", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines, ok := body["lines"].([]any)
	require.True(t, ok, "lines must be an array, never null")
	assert.NotEmpty(t, lines)
}

func TestSubmitJob_InvalidRequests(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	t.Run("malformed body", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/jobs", `{not json`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, rec).Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/jobs", `{"kind":"guess","input_spec":{}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, rec).Code)
	})

	t.Run("unknown spec field", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/jobs",
			`{"kind":"predict","input_spec":{"input_file":"/tmp/a.fasta","bogus":1}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, rec).Code)
	})

	t.Run("spec shape", func(t *testing.T) {
		rec, _ := doJSON(t, r, http.MethodPost, "/jobs", `{"kind":"predict","input_spec":{}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, rec).Code)
	})
}

func TestJobRoutes_UnknownID(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/jobs/nope"},
		{http.MethodGet, "/jobs/nope/result"},
		{http.MethodGet, "/jobs/nope/log"},
		{http.MethodPost, "/jobs/nope/cancel"},
	} {
		rec, _ := doJSON(t, r, tc.method, tc.path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "NOT_FOUND", errorCode(t, rec).Code)
	}
}

func TestJobResult_NotReadyCarriesState(t *testing.T) {
	r := newTestRouter(t, stubExecutor{err: jobs.Errf(jobs.ErrExecutorFailure, "exit 2")})

	rec, body := doJSON(t, r, http.MethodPost, "/jobs",
		`{"kind":"predict","input_spec":{"input_file":"/tmp/in.fasta"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := body["job_id"].(string)

	final := waitTerminal(t, r, jobID)
	require.Equal(t, "failed", final["state"])

	rec, _ = doJSON(t, r, http.MethodGet, "/jobs/"+jobID+"/result", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	herr := errorCode(t, rec)
	assert.Equal(t, "NOT_READY", herr.Code)
	assert.Equal(t, "failed", herr.State)
}

func TestCancelJob_TerminalConflict(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	rec, body := doJSON(t, r, http.MethodPost, "/jobs",
		`{"kind":"predict","input_spec":{"input_file":"/tmp/in.fasta"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := body["job_id"].(string)
	waitTerminal(t, r, jobID)

	rec, _ = doJSON(t, r, http.MethodPost, "/jobs/"+jobID+"/cancel", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, rec).Code)
}

func TestListJobs_StatusFilter(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	rec, body := doJSON(t, r, http.MethodPost, "/jobs",
		`{"kind":"predict","input_spec":{"input_file":"/tmp/in.fasta"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitTerminal(t, r, body["job_id"].(string))

	rec, body = doJSON(t, r, http.MethodGet, "/jobs?status=completed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed, _ := body["jobs"].([]any)
	assert.Len(t, listed, 1)

	rec, body = doJSON(t, r, http.MethodGet, "/jobs?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed, _ = body["jobs"].([]any)
	assert.Empty(t, listed)

	rec, _ = doJSON(t, r, http.MethodGet, "/jobs?status=bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec).Code)
}

func TestJobLog_RejectsNegativeTail(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	rec, body := doJSON(t, r, http.MethodPost, "/jobs",
		`{"kind":"predict","input_spec":{"input_file":"/tmp/in.fasta"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := body["job_id"].(string)

	rec, _ = doJSON(t, r, http.MethodGet, "/jobs/"+jobID+"/log?tail=-5", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec).Code)
}

func TestRunSync_InlineAnalysis(t *testing.T) {
	r := newTestRouter(t, stubExecutor{})

	rec, body := doJSON(t, r, http.MethodPost, "/run",
		`{"kind":"analyze","input_spec":{"sequence":"MKTAYIAKQR","sequence_id":"p1","basic_only":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis, _ := body["analysis"].(map[string]any)
	assert.Contains(t, analysis, "p1")
}

func TestRunSync_ExecutorFailureMapsToBadGateway(t *testing.T) {
	r := newTestRouter(t, stubExecutor{err: jobs.Errf(jobs.ErrExecutorFailure, "exit 2")})

	rec, _ := doJSON(t, r, http.MethodPost, "/run",
		`{"kind":"predict","input_spec":{"input_file":"/tmp/in.fasta"}}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "EXECUTOR_FAILURE", errorCode(t, rec).Code)
}
