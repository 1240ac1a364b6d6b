package models

import "time"

// Session is the envelope a suspended investigation is stored in while it
// waits for a human verdict.
type Session struct {
	Token      string    `json:"token"`
	WorkflowID string    `json:"workflowId"`
	State      []byte    `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

// IsExpired reports whether the session has a deadline that has passed.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
