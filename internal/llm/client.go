// Package llm provides the chat model client used by model-backed stage
// capabilities.
//
// The client wraps langchaingo's OpenAI-compatible client, so it works
// against the OpenAI API or any compatible gateway (local inference
// servers, proxies) by pointing BaseURL elsewhere. All calls are rate
// limited with a shared token bucket and retried with bounded exponential
// backoff on transient failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nourishlabs/mealpland/internal/config"
)

// ErrEmptyPrompt indicates an empty prompt.
var ErrEmptyPrompt = errors.New("empty prompt")

// Default retry backoff bounds.
const (
	defaultBaseBackoff = time.Second
	maxBackoff         = 30 * time.Second
	defaultBurst       = 5
)

// Client generates completions from a chat model.
type Client struct {
	model      llms.Model
	limiter    *rate.Limiter
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a model client from configuration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := cfg.APIKey.Value()
	if apiKey == "" {
		// langchaingo requires a token; local OpenAI-compatible servers
		// ignore it.
		apiKey = "placeholder"
	}

	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &Client{
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerMin/60.0), defaultBurst),
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout.Duration(),
		logger:     logger,
	}, nil
}

// NewClientWithModel creates a client around an existing model. Used by
// tests to substitute a fake model.
func NewClientWithModel(model llms.Model, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		model:      model,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: 1,
		timeout:    time.Minute,
		logger:     logger,
	}
}

// Generate produces a completion for prompt. Transient failures are
// retried up to the configured limit with exponential backoff; the
// context's deadline bounds the whole attempt sequence.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := defaultBaseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}

		out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("model call recovered after retries",
					zap.Int("attempts", attempt+1))
			}
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}

		c.logger.Warn("model call failed, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("model call aborted: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return "", fmt.Errorf("model call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
