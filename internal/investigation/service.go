package investigation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "doc-investigator/internal/common/errors"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/models"

	"github.com/google/uuid"
)

// Result is what the service returns for a submitted or evaluated request.
// Token is set only while the workflow is suspended.
type Result struct {
	Status Status         `json:"status"`
	Token  string         `json:"token,omitempty"`
	State  *WorkflowState `json:"state"`
}

// Service exposes the engine as a two-call API: Submit runs a request and
// parks it behind a token, Evaluate resumes it with a verdict. The parked
// state lives in the session store, so the verdict may arrive at a different
// process.
type Service struct {
	engine   *Engine
	sessions SessionStore
	ttl      time.Duration
	logger   logger.Logger
	now      func() time.Time
}

// NewService wires the engine to a session store. A zero ttl keeps suspended
// workflows until they are evaluated.
func NewService(engine *Engine, sessions SessionStore, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		engine:   engine,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger.Component(log, "service"),
		now:      time.Now,
	}
}

// Submit runs req. Validation failures come back as an error carrying the
// input error code; every other outcome is a Result.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	status, st := s.engine.Start(ctx, req)
	if st.Failed() {
		return nil, apperrors.FromCode(apperrors.ErrorCode(st.ErrorCode), st.ErrorMessage)
	}

	res := &Result{Status: status, State: st}
	if status != StatusSuspended {
		return res, nil
	}

	token, err := s.park(ctx, st)
	if err != nil {
		return nil, err
	}
	res.Token = token
	return res, nil
}

func (s *Service) park(ctx context.Context, st *WorkflowState) (string, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("encode workflow state: %w", err))
	}

	now := s.now().UTC()
	sess := &models.Session{
		Token:      uuid.NewString(),
		WorkflowID: st.ID,
		State:      data,
		CreatedAt:  now,
	}
	if s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Error("failed to store suspended workflow", map[string]interface{}{
			"workflowId": st.ID,
			"error":      err,
		})
		return "", apperrors.NewSessionStoreFailedError(err)
	}

	s.logger.Info("workflow suspended awaiting evaluation", map[string]interface{}{
		"workflowId": st.ID,
		"cacheHit":   string(st.CacheHit),
	})
	return sess.Token, nil
}

// Evaluate resumes the workflow parked under token with ev. The session is
// consumed; a second call with the same token reports SESSION_NOT_FOUND.
func (s *Service) Evaluate(ctx context.Context, token string, ev Evaluation) (*Result, error) {
	sess, err := s.sessions.Take(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		return nil, apperrors.NewSessionNotFoundError(token)
	}

	st, err := decodeState(sess)
	if err != nil {
		return nil, err
	}

	status, st, err := s.engine.Resume(ctx, st, ev)
	if err != nil {
		return nil, err
	}
	return &Result{Status: status, State: st}, nil
}

// Pending returns the suspended workflow behind token without consuming it.
func (s *Service) Pending(ctx context.Context, token string) (*WorkflowState, error) {
	sess, err := s.sessions.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		if delErr := s.sessions.Delete(ctx, token); delErr != nil {
			s.logger.Warn("failed to delete expired session", map[string]interface{}{
				"error": delErr,
			})
		}
		return nil, apperrors.NewSessionNotFoundError(token)
	}
	return decodeState(sess)
}

func decodeState(sess *models.Session) (*WorkflowState, error) {
	var st WorkflowState
	if err := json.Unmarshal(sess.State, &st); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("decode workflow %s: %w", sess.WorkflowID, err))
	}
	return &st, nil
}
