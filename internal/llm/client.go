// Package llm answers questions through an OpenAI-compatible chat completions
// endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"doc-investigator/internal/common/config"
	apperrors "doc-investigator/internal/common/errors"
	apphttp "doc-investigator/internal/common/http"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/resilience"
)

var (
	ErrRateLimited        = errors.New("LLM_RATE_LIMITED")
	ErrServiceUnavailable = errors.New("LLM_SERVICE_UNAVAILABLE")
	ErrTimeout            = errors.New("LLM_TIMEOUT")
	ErrBadResponse        = errors.New("LLM_BAD_RESPONSE")
)

const finishContentFilter = "content_filter"

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Phrases    Phrases

	BreakerFailures int
	BreakerTimeout  time.Duration
}

// ConfigFrom reads the client settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:    strings.TrimRight(cfg.LLM.BaseURL, "/"),
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    time.Duration(cfg.LLM.Timeout) * time.Millisecond,
		MaxRetries: cfg.LLM.MaxRetries,
		Phrases: Phrases{
			Unknown:    cfg.Investigation.UnknownAnswer,
			NotAllowed: cfg.Investigation.NotAllowedAnswer,
			TokenLimit: cfg.Investigation.TokenLimitAnswer,
		},
		BreakerFailures: cfg.LLM.BreakerFailures,
		BreakerTimeout:  time.Duration(cfg.LLM.BreakerTimeout) * time.Millisecond,
	}
}

type Client struct {
	config  Config
	http    *apphttp.Client
	breaker *resilience.Breaker
	logger  logger.Logger
	system  string
}

func NewClient(cfg Config, log logger.Logger) *Client {
	breaker := resilience.NewBreaker(cfg.BreakerFailures, cfg.BreakerTimeout).
		CountOnly(func(err error) bool {
			return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
		})

	return &Client{
		config:  cfg,
		http:    apphttp.NewClient(cfg.Timeout),
		breaker: breaker,
		logger:  logger.Component(log, "llm"),
		system:  SystemPrompt(cfg.Phrases),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete answers prompt from docContext. Provider content blocking yields
// the not-allowed phrase with no error. Failures carry LLM_* error codes.
func (c *Client) Complete(ctx context.Context, docContext, prompt string, temperature, topP float64) (string, error) {
	req := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.system},
			{Role: "user", Content: UserPrompt(docContext, prompt)},
		},
		Temperature: temperature,
		TopP:        topP,
	}

	var answer string
	err := c.breaker.Execute(func() error {
		var err error
		answer, err = c.completeWithRetry(ctx, &req)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("model circuit open, rejecting call", nil)
		return "", apperrors.NewLLMServiceUnavailableError(fmt.Errorf("%w: %v", ErrServiceUnavailable, err))
	}
	if err != nil {
		return "", classify(err)
	}
	return answer, nil
}

func (c *Client) completeWithRetry(ctx context.Context, req *chatRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
		}

		answer, err := c.send(ctx, req)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		if !retryable(err) {
			break
		}
		c.logger.Warn("model call failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err,
		})
	}
	return "", lastErr
}

func (c *Client) send(ctx context.Context, req *chatRequest) (string, error) {
	headers := map[string]string{}
	if c.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.config.APIKey
	}

	resp, err := c.http.PostJSON(ctx, c.config.BaseURL+"/chat/completions", headers, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrBadResponse, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	choice := out.Choices[0]
	if choice.FinishReason == finishContentFilter {
		c.logger.Warn("model response was blocked by the provider", nil)
		return c.config.Phrases.NotAllowed, nil
	}
	return strings.TrimSpace(choice.Message.Content), nil
}

func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServiceUnavailable)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrRateLimited):
		return apperrors.NewLLMRateLimitedError(err)
	case errors.Is(err, ErrTimeout):
		return apperrors.NewLLMTimeoutError(err)
	case errors.Is(err, ErrServiceUnavailable):
		return apperrors.NewLLMServiceUnavailableError(err)
	}
	return err
}

// BreakerState reports the circuit state for the readiness probe.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}
