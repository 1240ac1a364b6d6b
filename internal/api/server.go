// Package api serves the two-call investigation API over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"doc-investigator/internal/common/database"
	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/validation"
	"doc-investigator/internal/investigation"
	"doc-investigator/pkg/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const evaluationBodyLimit = 64 << 10

// Investigations is the service surface the API exposes.
type Investigations interface {
	Submit(ctx context.Context, req investigation.Request) (*investigation.Result, error)
	Evaluate(ctx context.Context, token string, ev investigation.Evaluation) (*investigation.Result, error)
	Pending(ctx context.Context, token string) (*investigation.WorkflowState, error)
}

type Options struct {
	UploadDir   string
	MaxUploadMB int
	// Dependencies are pinged by /ready.
	Dependencies map[string]database.Pinger
	// BreakerState reports the model circuit for /ready. Optional.
	BreakerState func() string
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

type Server struct {
	service   Investigations
	validator *validation.Validator
	opts      Options
	logger    logger.Logger
}

func NewServer(service Investigations, validator *validation.Validator, opts Options, log logger.Logger) *Server {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 64
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}
	return &Server{
		service:   service,
		validator: validator,
		opts:      opts,
		logger:    logger.Component(log, "api"),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", s.opts.MetricsHandler)

	r.Route("/api/v1/investigations", func(r chi.Router) {
		r.Post("/", s.startInvestigation)
		r.Get("/{token}", s.pendingInvestigation)
		r.Post("/{token}/evaluation", s.submitEvaluation)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.opts.Dependencies))
	for name := range s.opts.Dependencies {
		checks[name] = "ok"
	}
	failed := database.PingAll(ctx, s.opts.Dependencies)
	for name, err := range failed {
		checks[name] = err.Error()
	}

	body := map[string]interface{}{"checks": checks}
	if s.opts.BreakerState != nil {
		body["llm_circuit"] = s.opts.BreakerState()
	}

	if len(failed) > 0 {
		body["status"] = "not ready"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) startInvestigation(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, r, apperrors.NewInputValidationError("invalid multipart form: "+err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	params, err := formParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	docs, cleanup, err := saveUploads(s.opts.UploadDir, r.MultipartForm.File["files"])
	defer cleanup()
	if err != nil {
		s.writeError(w, r, apperrors.NewInternalError(err))
		return
	}

	req := investigation.Request{
		Documents: docs,
		Prompt:    r.FormValue("prompt"),
		Params:    params,
	}
	if err := s.validateStart(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Status == investigation.StatusSuspended {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// formParams reads the optional sampling parameters. Absent fields are left
// to the engine defaults.
func formParams(r *http.Request) (investigation.Params, error) {
	params := investigation.Params{}
	for _, key := range []string{investigation.ParamTemperature, investigation.ParamTopP} {
		raw := strings.TrimSpace(r.FormValue(key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.NewInputValidationError(key + ": must be a number")
		}
		params[key] = v
	}
	return params, nil
}

func (s *Server) validateStart(req investigation.Request) error {
	docs := make([]interface{}, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, map[string]interface{}{"name": d.Name, "path": d.Path})
	}
	doc := map[string]interface{}{
		"documents": docs,
		"prompt":    req.Prompt,
	}
	if v, ok := req.Params[investigation.ParamTemperature]; ok {
		doc["temperature"] = v
	}
	if v, ok := req.Params[investigation.ParamTopP]; ok {
		doc["topP"] = v
	}

	result, err := s.validator.Validate(registry.ActivityStartInvestigation, doc)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return result.Err()
}

func (s *Server) pendingInvestigation(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.Pending(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type evaluationRequest struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

func (s *Server) submitEvaluation(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := readJSON(w, r, evaluationBodyLimit, &raw); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.validator.Validate(registry.ActivitySubmitEvaluation, raw)
	if err != nil {
		s.writeError(w, r, apperrors.NewInternalError(err))
		return
	}
	if err := result.Err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	var body evaluationRequest
	body.Verdict, _ = raw["verdict"].(string)
	body.Reason, _ = raw["reason"].(string)

	res, err := s.service.Evaluate(r.Context(), chi.URLParam(r, "token"), investigation.Evaluation{
		Verdict: investigation.Verdict(body.Verdict),
		Reason:  body.Reason,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
