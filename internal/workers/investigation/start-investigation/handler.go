// internal/workers/investigation/start-investigation/handler.go
package startinvestigation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/metrics"
	"doc-investigator/internal/common/observability"
	"doc-investigator/internal/common/validation"
	"doc-investigator/internal/investigation"
	"doc-investigator/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "start-investigation"
)

var (
	ErrEmptyResult = errors.New("EMPTY_RESULT")
)

// Investigator is the part of investigation.Service this worker drives.
type Investigator interface {
	Submit(ctx context.Context, req investigation.Request) (*investigation.Result, error)
}

type Handler struct {
	config    *Config
	service   Investigator
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, service Investigator, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = observability.NewNoop()
	}
	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		service:   service,
		validator: validator,
		errors:    apperrors.NewErrorHandler(log),
		obs:       obs,
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job.Variables)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandard(err).Code)).Inc()
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.completeJob(client, job, output)
}

func (h *Handler) process(ctx context.Context, variables string) (*Output, error) {
	input, err := h.parseInput(variables)
	if err != nil {
		return nil, err
	}
	return h.execute(ctx, input)
}

// parseInput checks the raw job variables against the registered schema
// before decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, apperrors.NewInputValidationError(fmt.Sprintf("parse input: %v", err))
	}

	result, err := h.validator.Validate(registry.ActivityStartInvestigation, raw)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInputValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Submit(ctx, input.Request())
	if err != nil {
		return nil, err
	}
	if res == nil || res.State == nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("%w: submit returned no workflow state", ErrEmptyResult))
	}

	st := res.State
	h.logger.Info("investigation started", map[string]interface{}{
		"workflowId":     st.ID,
		"status":         string(res.Status),
		"state":          string(st.Current),
		"classification": string(st.Classification),
	})

	return &Output{
		Status:         string(res.Status),
		Token:          res.Token,
		WorkflowID:     st.ID,
		State:          string(st.Current),
		Answer:         st.Answer,
		Classification: string(st.Classification),
		CacheHit:       string(st.CacheHit),
		Logged:         st.Logged,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// Execute runs the worker logic on already-decoded variables.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
