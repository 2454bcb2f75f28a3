package codegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/repoforge/repoforge/internal/llm"
)

// Generator is what stages depend on; *Client implements it.
type Generator interface {
	Generate(ctx context.Context, pc PromptContext) (string, error)
}

// Client wraps a provider with rate limiting, retry and shape validation.
type Client struct {
	provider  llm.Provider
	policy    RetryPolicy
	limiter   *rate.Limiter
	logger    *zap.Logger
	maxTokens int
	observe   func(stage string, attempt int, err error, d time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRequestsPerMinute caps the provider call rate. Zero means unlimited.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMaxTokens sets the per-call output token budget.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithObserver registers a callback invoked after every provider attempt.
func WithObserver(fn func(stage string, attempt int, err error, d time.Duration)) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient builds a client over provider.
func NewClient(provider llm.Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		policy:   DefaultRetryPolicy,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate renders pc, calls the provider and returns validated text.
// Transient failures are retried up to the policy's attempt ceiling;
// anything else, including an invalid response shape, fails immediately.
func (c *Client) Generate(ctx context.Context, pc PromptContext) (string, error) {
	system, user := pc.render()
	req := llm.Request{System: system, Prompt: user, MaxTokens: c.maxTokens}
	log := c.logger.With(zap.String("stage", pc.Stage), zap.String("model", c.provider.Model()))

	maxAttempts := c.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if delay := c.policy.Delay(attempt); delay > 0 {
			log.Debug("backing off", zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", &Error{Reason: ReasonCancelled, Stage: pc.Stage, Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Reason: ReasonCancelled, Stage: pc.Stage, Attempts: attempt - 1, Err: err}
		}

		start := time.Now()
		text, err := c.provider.Complete(ctx, req)
		if c.observe != nil {
			c.observe(pc.Stage, attempt, err, time.Since(start))
		}
		if err == nil {
			if shapeErr := ValidateShape(text); shapeErr != nil {
				log.Warn("rejected response", zap.Int("attempt", attempt), zap.Error(shapeErr))
				return "", &Error{Reason: ReasonInvalidShape, Stage: pc.Stage, Attempts: attempt, Err: shapeErr}
			}
			return text, nil
		}

		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &Error{Reason: ReasonCancelled, Stage: pc.Stage, Attempts: attempt, Err: errors.Join(ctxErr, err)}
		}
		if !llm.IsTransient(err) {
			log.Warn("non-transient failure", zap.Int("attempt", attempt), zap.Error(err))
			return "", &Error{Reason: ReasonNonTransient, Stage: pc.Stage, Attempts: attempt, Err: err}
		}
		log.Info("transient failure", zap.Int("attempt", attempt), zap.Int("max_attempts", maxAttempts), zap.Error(err))
	}

	return "", &Error{
		Reason:   ReasonTransientExhausted,
		Stage:    pc.Stage,
		Attempts: maxAttempts,
		Err:      fmt.Errorf("retry ceiling reached: %w", lastErr),
	}
}
