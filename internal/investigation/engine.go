package investigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"doc-investigator/internal/common/config"
	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/metrics"
	"doc-investigator/internal/common/observability"
	"doc-investigator/internal/documents"
	"doc-investigator/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// Answers substituted when a collaborator fails. Each mentions "Error" so the
// classifier routes it to the auto-log path.
const (
	ExtractionFailedAnswer = "Error: the documents could not be read. Please check the files and try again."
	RateLimitedAnswer      = "Error: the AI service is busy (rate limit exceeded). Please wait a minute and try again."
	ModelFailedAnswer      = "Error: an error occurred while communicating with the AI model. Please check the logs."
)

// Validation messages shown to the caller.
const (
	msgNoDocuments = "Please upload at least one document."
	msgEmptyPrompt = "Please enter a prompt to continue."
)

// Settings are the engine's fixed parameters.
type Settings struct {
	ModelName            string
	MaxContextCharacters int
	Sentinels            []string
	NoReasonGiven        string
	DefaultTemperature   float64
	DefaultTopP          float64

	// ModelTimeout bounds a shared model call, retries included. Zero leaves
	// it unbounded.
	ModelTimeout time.Duration
}

// SettingsFromConfig reads Settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ModelName:            cfg.LLM.Model,
		MaxContextCharacters: cfg.Investigation.MaxContextCharacters,
		Sentinels:            cfg.Investigation.Sentinels(),
		NoReasonGiven:        cfg.Investigation.NoReasonGiven,
		DefaultTemperature:   cfg.LLM.DefaultTemperature,
		DefaultTopP:          cfg.LLM.DefaultTopP,
		ModelTimeout:         config.GetDuration(cfg.LLM.Timeout) * time.Duration(cfg.LLM.MaxRetries+1),
	}
}

// Dependencies are the collaborators the engine drives.
type Dependencies struct {
	Documents     DocumentProcessor
	Model         Completer
	Cache         CacheStore
	Log           InteractionLog
	Observability *observability.Observability
}

// Engine runs the investigation state machine. It is safe for concurrent use;
// each call owns the WorkflowState it is given.
type Engine struct {
	settings Settings
	docs     DocumentProcessor
	model    Completer
	cache    CacheStore
	log      InteractionLog
	obs      *observability.Observability
	logger   logger.Logger

	calls singleflight.Group
	now   func() time.Time
}

func NewEngine(settings Settings, deps Dependencies, log logger.Logger) *Engine {
	if settings.NoReasonGiven == "" {
		settings.NoReasonGiven = config.DefaultNoReasonGiven
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Engine{
		settings: settings,
		docs:     deps.Documents,
		model:    deps.Model,
		cache:    deps.Cache,
		log:      deps.Log,
		obs:      obs,
		logger:   logger.Component(log, "engine"),
		now:      time.Now,
	}
}

// Start runs a new request until it terminates or suspends for a human verdict.
func (e *Engine) Start(ctx context.Context, req Request) (Status, *WorkflowState) {
	began := e.now()
	st := &WorkflowState{
		ID:        uuid.NewString(),
		DocNames:  docNames(req.Documents),
		Prompt:    req.Prompt,
		Params:    req.Params.withDefaults(e.settings.DefaultTemperature, e.settings.DefaultTopP),
		ModelName: e.settings.ModelName,
		CreatedAt: began.UTC(),
	}
	st.enter(StateValidateInputs)

	status := e.drive(ctx, st, req.Documents)
	e.obs.RecordWorkflow(ctx, string(st.Current), e.now().Sub(began))
	return status, st
}

// Resume feeds a human verdict into a workflow suspended at
// await_human_evaluation. Any other state is rejected without modification.
func (e *Engine) Resume(ctx context.Context, st *WorkflowState, ev Evaluation) (Status, *WorkflowState, error) {
	if st == nil {
		return StatusTerminal, nil, apperrors.NewWorkflowNotSuspendedError("")
	}
	if !st.Suspended() {
		return StatusTerminal, st, apperrors.NewWorkflowNotSuspendedError(string(st.Current))
	}

	began := e.now()
	if ev.Verdict != VerdictYes {
		ev.Verdict = VerdictNo
	}
	ev.Reason = strings.TrimSpace(ev.Reason)
	if ev.Reason == "" {
		ev.Reason = e.settings.NoReasonGiven
	}

	st.Update(func(s *WorkflowState) { s.Evaluation = &ev })
	st.enter(StateProcessHumanEvaluation)
	metrics.Resumptions.WithLabelValues(string(ev.Verdict)).Inc()

	status := e.drive(ctx, st, nil)
	e.obs.RecordWorkflow(ctx, string(st.Current), e.now().Sub(began))
	return status, st, nil
}

// drive executes the current state's action and follows transitions until a
// terminal state has run or the workflow suspends.
func (e *Engine) drive(ctx context.Context, st *WorkflowState, docs []Document) Status {
	for {
		next := e.act(ctx, st, docs)
		if st.Current == StateAwaitHumanEvaluation {
			metrics.Suspensions.Inc()
			return StatusSuspended
		}
		if st.Current.Terminal() {
			return StatusTerminal
		}
		st.enter(next)
	}
}

func (e *Engine) act(ctx context.Context, st *WorkflowState, docs []Document) State {
	state := st.Current
	ctx, span := e.obs.StartSpan(ctx, "investigation."+string(state),
		attribute.String("workflow.id", st.ID),
	)
	defer span.End()

	timer := time.Now()
	defer func() {
		metrics.ActionDuration.WithLabelValues(string(state)).Observe(time.Since(timer).Seconds())
	}()

	switch state {
	case StateValidateInputs:
		return e.validateInputs(st, docs)
	case StateExtractText:
		return e.extractText(ctx, st, docs)
	case StateCheckCache:
		return e.checkCache(ctx, st)
	case StateCallModel:
		return e.callModel(ctx, st)
	case StateClassifyAnswer:
		return e.classifyAnswer(st)
	case StateUpdateCache:
		return e.updateCache(ctx, st)
	case StateAutoLogAndTerminate:
		e.autoLog(ctx, st)
		return StateAutoLogAndTerminate
	case StateProcessHumanEvaluation:
		return e.processHumanEvaluation(ctx, st)
	case StateAwaitHumanEvaluation, StateError, StateEnd:
		return state
	default:
		panic(fmt.Sprintf("investigation: no action for state %q", state))
	}
}

func (e *Engine) validateInputs(st *WorkflowState, docs []Document) State {
	fail := func(err *apperrors.StandardError, msg string) State {
		e.logger.Warn("input validation failed", map[string]interface{}{
			"workflowId": st.ID,
			"errorCode":  string(err.Code),
			"reason":     msg,
		})
		st.Update(func(s *WorkflowState) {
			s.ErrorMessage = msg
			s.ErrorCode = string(err.Code)
		})
		return StateError
	}

	if len(docs) == 0 {
		return fail(apperrors.NewInputValidationError(msgNoDocuments), msgNoDocuments)
	}
	if strings.TrimSpace(st.Prompt) == "" {
		return fail(apperrors.NewInputValidationError(msgEmptyPrompt), msgEmptyPrompt)
	}
	if key, bad := st.Params.invalidKey(); bad {
		msg := fmt.Sprintf("Parameter %q must be a number between 0.0 and 1.0.", key)
		return fail(apperrors.NewInputValidationError(msg), msg)
	}
	if err := e.docs.Validate(docs); err != nil {
		return fail(apperrors.AsValidation(err), validationMessage(err))
	}
	return StateExtractText
}

func (e *Engine) extractText(ctx context.Context, st *WorkflowState, docs []Document) State {
	text, err := e.docs.Extract(ctx, docs)
	if err != nil {
		stdErr := apperrors.NewDocumentExtractionFailedError(err)
		e.logger.Error("document extraction failed", map[string]interface{}{
			"workflowId": st.ID,
			"errorCode":  string(stdErr.Code),
			"error":      err,
			"documents":  st.DocumentNames(),
		})
		st.Update(func(s *WorkflowState) { s.Answer = ExtractionFailedAnswer })
		return StateClassifyAnswer
	}

	if limit := e.settings.MaxContextCharacters; limit > 0 && utf8.RuneCountInString(text) > limit {
		e.logger.Warn("extracted text truncated", map[string]interface{}{
			"workflowId": st.ID,
			"limit":      limit,
		})
		text = truncateRunes(text, limit)
	}
	st.Update(func(s *WorkflowState) { s.ExtractedText = text })
	return StateCheckCache
}

func (e *Engine) checkCache(ctx context.Context, st *WorkflowState) State {
	key := ComputeFingerprint(st.ExtractedText, st.Prompt, st.Params, st.ModelName)
	st.Update(func(s *WorkflowState) { s.CacheKey = key })

	answer, found, err := e.cache.Get(ctx, key.String())
	if err != nil {
		stdErr := apperrors.NewCacheReadFailedError(key.String(), err)
		e.logger.Warn("cache lookup failed, treating as miss", map[string]interface{}{
			"workflowId": st.ID,
			"errorCode":  string(stdErr.Code),
			"error":      err,
		})
		metrics.StorageFailures.WithLabelValues("cache", "get").Inc()
		metrics.CacheLookups.WithLabelValues("error").Inc()
		found = false
	}

	if found {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		e.logger.Info("cache hit", map[string]interface{}{"workflowId": st.ID, "cacheKey": key.String()})
		st.Update(func(s *WorkflowState) {
			s.CacheHit = CacheHit
			s.Answer = answer
		})
		return StateClassifyAnswer
	}

	if err == nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	st.Update(func(s *WorkflowState) { s.CacheHit = CacheMiss })
	return StateCallModel
}

func (e *Engine) callModel(ctx context.Context, st *WorkflowState) State {
	text, prompt := st.ExtractedText, st.Prompt
	temperature, topP := st.Params.Temperature(), st.Params.TopP()

	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := e.calls.DoChan(st.CacheKey.String(), func() (interface{}, error) {
		callCtx := context.WithoutCancel(ctx)
		if e.settings.ModelTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, e.settings.ModelTimeout)
			defer cancel()
		}
		return e.model.Complete(callCtx, text, prompt, temperature, topP)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = apperrors.NewLLMTimeoutError(ctx.Err())
	}
	v, err, shared := res.Val, res.Err, res.Shared

	if err != nil {
		answer := ModelFailedAnswer
		outcome := "error"
		switch {
		case apperrors.IsCode(err, apperrors.ErrCodeLLMRateLimited):
			answer, outcome = RateLimitedAnswer, "rate_limited"
		case apperrors.IsCode(err, apperrors.ErrCodeLLMServiceUnavailable):
			outcome = "unavailable"
		case apperrors.IsCode(err, apperrors.ErrCodeLLMTimeout):
			outcome = "timeout"
		}
		metrics.ModelCalls.WithLabelValues(outcome).Inc()
		e.logger.Error("model call failed", map[string]interface{}{
			"workflowId": st.ID,
			"outcome":    outcome,
			"error":      err,
		})
		st.Update(func(s *WorkflowState) { s.Answer = answer })
		return StateClassifyAnswer
	}

	metrics.ModelCalls.WithLabelValues("ok").Inc()
	e.logger.Info("model answered", map[string]interface{}{
		"workflowId": st.ID,
		"shared":     shared,
	})
	st.Update(func(s *WorkflowState) { s.Answer = v.(string) })
	return StateClassifyAnswer
}

func (e *Engine) classifyAnswer(st *WorkflowState) State {
	class := Classify(st.Answer, e.settings.Sentinels)
	metrics.Classifications.WithLabelValues(string(class)).Inc()
	st.Update(func(s *WorkflowState) { s.Classification = class })

	if class == RealAnswer {
		return StateUpdateCache
	}
	return StateAutoLogAndTerminate
}

func (e *Engine) updateCache(ctx context.Context, st *WorkflowState) State {
	key := st.CacheKey.String()
	if st.CacheHit == CacheHit {
		// refresh recency only; the stored answer may be newer than ours
		if err := e.cache.Touch(ctx, key); err != nil {
			stdErr := apperrors.NewCacheWriteFailedError(key, err)
			e.logger.Warn("cache refresh failed", map[string]interface{}{
				"workflowId": st.ID,
				"errorCode":  string(stdErr.Code),
				"error":      err,
			})
			metrics.StorageFailures.WithLabelValues("cache", "touch").Inc()
		}
		return StateAwaitHumanEvaluation
	}

	if err := e.cache.Put(ctx, key, st.Answer); err != nil {
		stdErr := apperrors.NewCacheWriteFailedError(key, err)
		e.logger.Warn("cache write failed", map[string]interface{}{
			"workflowId": st.ID,
			"errorCode":  string(stdErr.Code),
			"error":      err,
		})
		metrics.StorageFailures.WithLabelValues("cache", "put").Inc()
	}
	return StateAwaitHumanEvaluation
}

func (e *Engine) autoLog(ctx context.Context, st *WorkflowState) {
	e.appendInteraction(ctx, st, models.OutputPassedNo, e.settings.NoReasonGiven)
}

func (e *Engine) processHumanEvaluation(ctx context.Context, st *WorkflowState) State {
	e.appendInteraction(ctx, st, string(st.Evaluation.Verdict), st.Evaluation.Reason)
	return StateEnd
}

func (e *Engine) appendInteraction(ctx context.Context, st *WorkflowState, passed, reason string) {
	entry := models.Interaction{
		Timestamp:     e.now().UTC(),
		DocumentNames: st.DocumentNames(),
		Prompt:        st.Prompt,
		Answer:        st.Answer,
		OutputPassed:  passed,
		EvalReason:    reason,
		ModelName:     st.ModelName,
		Temperature:   st.Params.Temperature(),
		TopP:          st.Params.TopP(),
	}

	err := e.log.Append(ctx, entry)
	if err != nil {
		stdErr := apperrors.NewInteractionLogFailedError(err)
		e.logger.Error("failed to log interaction", map[string]interface{}{
			"workflowId": st.ID,
			"errorCode":  string(stdErr.Code),
			"state":      string(st.Current),
			"error":      err,
		})
		metrics.StorageFailures.WithLabelValues("interaction_log", "append").Inc()
	}
	st.Update(func(s *WorkflowState) { s.Logged = err == nil })
}

// validationMessage picks the user-facing text of a Validate error.
func validationMessage(err error) string {
	var unsupported *documents.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		return unsupported.Error()
	}
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) && stdErr.Details != "" {
		return stdErr.Details
	}
	return err.Error()
}

func docNames(docs []Document) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.BaseName())
	}
	return names
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
