// internal/workers/investigation/process-evaluation/models.go
package processevaluation

type Input struct {
	Token   string `json:"token"`
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

type Output struct {
	Status     string `json:"status"`
	WorkflowID string `json:"workflowId"`
	State      string `json:"state"`
	Verdict    string `json:"verdict"`
	Logged     bool   `json:"logged"`
}
