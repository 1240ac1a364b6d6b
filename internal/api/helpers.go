package api

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"

	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error *apperrors.StandardError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err onto its HTTP status. Internal faults are logged and
// returned without details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":      r.URL.Path,
			"errorCode": string(stdErr.Code),
			"error":     err,
			"requestId": middleware.GetReqID(r.Context()),
		})
	}
	if stdErr.Code == apperrors.ErrCodeInternal {
		stdErr = apperrors.FromCode(apperrors.ErrCodeInternal, "internal server error")
	}
	writeJSON(w, status, errorResponse{Error: stdErr})
}

// readJSON decodes a JSON body of at most limit bytes into v.
func readJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewInputValidationError("invalid request body: " + err.Error())
	}
	return nil
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http request", map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"requestId":   middleware.GetReqID(r.Context()),
			})
		})
	}
}
