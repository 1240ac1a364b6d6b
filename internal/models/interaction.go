// internal/models/interaction.go
package models

import "time"

const (
	OutputPassedYes = "yes"
	OutputPassedNo  = "no"
)

// Interaction is one row of the append-only interaction log.
type Interaction struct {
	ID            int64     `json:"id" db:"id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	DocumentNames string    `json:"documentNames" db:"document_names"`
	Prompt        string    `json:"prompt" db:"prompt"`
	Answer        string    `json:"answer" db:"answer"`
	OutputPassed  string    `json:"outputPassed" db:"output_passed"`
	EvalReason    string    `json:"evalReason" db:"eval_reason"`
	ModelName     string    `json:"modelName" db:"model_name"`
	Temperature   float64   `json:"temperature" db:"temperature"`
	TopP          float64   `json:"topP" db:"top_p"`
}

// Passed reports whether the answer was accepted.
func (i Interaction) Passed() bool {
	return i.OutputPassed == OutputPassedYes
}
