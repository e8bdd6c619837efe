// Package errors adapts the job error taxonomy to the HTTP surface.
//
// Every error response uses the same JSON envelope:
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}}
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/seqforge/prosol/pkg/jobs"
)

// AsJobError unwraps a classified job error from an error chain.
func AsJobError(err error, target **jobs.Error) bool {
	return stderrors.As(err, target)
}

// HTTPErrorResponse is the JSON envelope for all error responses.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// HTTPError is the error payload.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// State carries the job's current state for NOT_READY errors so
	// callers can decide whether to poll.
	State string `json:"state,omitempty"`
}

// statusForKind maps the job error taxonomy onto HTTP statuses and stable
// response codes.
func statusForKind(kind jobs.ErrorKind) (int, string) {
	switch kind {
	case jobs.ErrInvalidInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	case jobs.ErrNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case jobs.ErrNotReady:
		return http.StatusConflict, "NOT_READY"
	case jobs.ErrConflict:
		return http.StatusConflict, "CONFLICT"
	case jobs.ErrExecutorFailure:
		return http.StatusBadGateway, "EXECUTOR_FAILURE"
	case jobs.ErrTimeout:
		return http.StatusGatewayTimeout, "TIMEOUT"
	case jobs.ErrInterrupted:
		return http.StatusInternalServerError, "INTERRUPTED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// RespondWithError writes err as the standard envelope, classifying it
// through the job taxonomy.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var state string
	var je *jobs.Error
	if AsJobError(err, &je) {
		state = string(je.State)
	}
	status, code := statusForKind(jobs.KindOf(err))
	Respond(w, status, code, err.Error(), state)
}

// Respond writes an explicit error envelope.
func Respond(w http.ResponseWriter, status int, code, message, state string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPError{Code: code, Message: message, State: state},
	})
}
