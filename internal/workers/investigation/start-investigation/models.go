// internal/workers/investigation/start-investigation/models.go
package startinvestigation

import "doc-investigator/internal/investigation"

type Input struct {
	Documents   []investigation.Document `json:"documents"`
	Prompt      string                   `json:"prompt"`
	Temperature *float64                 `json:"temperature,omitempty"`
	TopP        *float64                 `json:"topP,omitempty"`
}

// Request converts the job variables into an engine request. Parameters the
// process did not set are left to the engine defaults.
func (in *Input) Request() investigation.Request {
	params := investigation.Params{}
	if in.Temperature != nil {
		params[investigation.ParamTemperature] = *in.Temperature
	}
	if in.TopP != nil {
		params[investigation.ParamTopP] = *in.TopP
	}
	return investigation.Request{
		Documents: in.Documents,
		Prompt:    in.Prompt,
		Params:    params,
	}
}

type Output struct {
	Status         string `json:"status"`
	Token          string `json:"token,omitempty"`
	WorkflowID     string `json:"workflowId"`
	State          string `json:"state"`
	Answer         string `json:"answer"`
	Classification string `json:"classification,omitempty"`
	CacheHit       string `json:"cacheHit,omitempty"`
	Logged         bool   `json:"logged"`
}
