// Package investigation runs the document investigation workflow: validate,
// extract, look up the answer cache, call the model on a miss, classify the
// answer, and either auto-log it or suspend for a human verdict.
package investigation

import (
	"math"
	"strings"
	"time"

	"doc-investigator/internal/documents"
)

// State is a node of the investigation workflow.
type State string

const (
	StateValidateInputs         State = "validate_inputs"
	StateExtractText            State = "extract_text"
	StateCheckCache             State = "check_cache"
	StateCallModel              State = "call_model"
	StateClassifyAnswer         State = "classify_answer"
	StateUpdateCache            State = "update_cache"
	StateAwaitHumanEvaluation   State = "await_human_evaluation"
	StateProcessHumanEvaluation State = "process_human_evaluation"
	StateAutoLogAndTerminate    State = "auto_log_and_terminate"
	StateError                  State = "error"
	StateEnd                    State = "end"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateAutoLogAndTerminate, StateError, StateEnd:
		return true
	}
	return false
}

// Status is what Start and Resume hand back to the caller.
type Status string

const (
	StatusSuspended Status = "suspended"
	StatusTerminal  Status = "terminal"
)

type CacheStatus string

const (
	CacheUnknown CacheStatus = ""
	CacheHit     CacheStatus = "hit"
	CacheMiss    CacheStatus = "miss"
)

type Classification string

const (
	RealAnswer       Classification = "real_answer"
	PredefinedAnswer Classification = "predefined_answer"
)

type Verdict string

const (
	VerdictYes Verdict = "yes"
	VerdictNo  Verdict = "no"
)

// Valid reports whether v is yes or no.
func (v Verdict) Valid() bool {
	return v == VerdictYes || v == VerdictNo
}

// Evaluation is the human verdict supplied on resume.
type Evaluation struct {
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason"`
}

const (
	ParamTemperature = "temperature"
	ParamTopP        = "top_p"
)

// Params holds the sampling parameters. Keys are free-form; temperature and
// top_p are always present after defaults are applied.
type Params map[string]float64

func (p Params) Temperature() float64 { return p[ParamTemperature] }
func (p Params) TopP() float64        { return p[ParamTopP] }

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// withDefaults fills missing temperature and top_p.
func (p Params) withDefaults(temperature, topP float64) Params {
	out := p.Clone()
	if _, ok := out[ParamTemperature]; !ok {
		out[ParamTemperature] = temperature
	}
	if _, ok := out[ParamTopP]; !ok {
		out[ParamTopP] = topP
	}
	return out
}

// invalidKey returns the first parameter outside [0,1] or not finite.
func (p Params) invalidKey() (string, bool) {
	for k, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return k, true
		}
	}
	return "", false
}

// Document is an opaque handle to an uploaded file.
type Document = documents.Document

// Request is one question against a bundle of documents.
type Request struct {
	Documents []Document `json:"documents"`
	Prompt    string     `json:"prompt"`
	Params    Params     `json:"params"`
}

// WorkflowState carries everything the workflow knows about one request.
// It is owned by the engine for the duration of Start and Resume.
type WorkflowState struct {
	ID             string         `json:"id"`
	Current        State          `json:"current"`
	History        []State        `json:"history"`
	DocNames       []string       `json:"docNames"`
	Prompt         string         `json:"prompt"`
	Params         Params         `json:"params"`
	ModelName      string         `json:"modelName"`
	ExtractedText  string         `json:"-"`
	CacheKey       Fingerprint    `json:"cacheKey"`
	CacheHit       CacheStatus    `json:"cacheHit,omitempty"`
	Answer         string         `json:"answer"`
	Classification Classification `json:"classification,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	ErrorCode      string         `json:"errorCode,omitempty"`
	Evaluation     *Evaluation    `json:"evaluation,omitempty"`
	Logged         bool           `json:"logged"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Update applies fn and stamps UpdatedAt.
func (s *WorkflowState) Update(fn func(*WorkflowState)) {
	fn(s)
	s.UpdatedAt = time.Now().UTC()
}

// DocumentNames joins DocNames the way the interaction log stores them.
func (s *WorkflowState) DocumentNames() string {
	return strings.Join(s.DocNames, ", ")
}

// Suspended reports whether the workflow is waiting for a human verdict.
func (s *WorkflowState) Suspended() bool {
	return s.Current == StateAwaitHumanEvaluation
}

// Failed reports whether the request was rejected during validation.
func (s *WorkflowState) Failed() bool {
	return s.Current == StateError
}

func (s *WorkflowState) enter(next State) {
	s.Update(func(st *WorkflowState) {
		st.Current = next
		st.History = append(st.History, next)
	})
}
