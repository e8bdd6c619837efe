// Package middleware provides HTTP middleware for the prosol server.
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/seqforge/prosol/internal/observability"
)

// ErrorResponse mirrors the standard error envelope for responses written
// directly by middleware.
type ErrorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery converts handler panics into a 500 JSON error response. A panic
// must never take down the server: fault isolation is per-request, same as
// it is per-job in the manager.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			reqID := chimiddleware.GetReqID(r.Context())
			observability.CLILogger.Error("handler panic",
				zap.Any("panic", p),
				zap.String("request_id", reqID),
				zap.String("path", r.URL.Path))

			var resp ErrorResponse
			resp.Error.Code = "INTERNAL_ERROR"
			resp.Error.Message = fmt.Sprintf("panic: %v", p)
			resp.Error.RequestID = reqID

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(resp)
		}()
		next.ServeHTTP(w, r)
	})
}
