// internal/workers/investigation/process-evaluation/handler.go
package processevaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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
	TaskType = "process-evaluation"
)

var (
	ErrEmptyResult = errors.New("EMPTY_RESULT")
)

// Evaluator is the part of investigation.Service this worker drives.
type Evaluator interface {
	Evaluate(ctx context.Context, token string, ev investigation.Evaluation) (*investigation.Result, error)
}

type Handler struct {
	config    *Config
	service   Evaluator
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, service Evaluator, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *Handler {
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

func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, apperrors.NewInputValidationError(fmt.Sprintf("parse input: %v", err))
	}

	result, err := h.validator.Validate(registry.ActivitySubmitEvaluation, raw)
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
	if strings.TrimSpace(input.Token) == "" {
		return nil, apperrors.NewInputValidationError("token: token is required")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.service.Evaluate(ctx, input.Token, investigation.Evaluation{
		Verdict: investigation.Verdict(input.Verdict),
		Reason:  input.Reason,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.State == nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("%w: evaluate returned no workflow state", ErrEmptyResult))
	}

	st := res.State
	out := &Output{
		Status:     string(res.Status),
		WorkflowID: st.ID,
		State:      string(st.Current),
		Logged:     st.Logged,
	}
	if st.Evaluation != nil {
		out.Verdict = string(st.Evaluation.Verdict)
	}

	h.logger.Info("evaluation processed", map[string]interface{}{
		"workflowId": st.ID,
		"verdict":    out.Verdict,
		"logged":     st.Logged,
	})
	return out, nil
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
