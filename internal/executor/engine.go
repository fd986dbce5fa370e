// Package executor runs approved tool calls against their providers with
// per-category timeouts and bounded retries.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/toolgate/toolgate/internal/category"
	"github.com/toolgate/toolgate/internal/domain"
	"github.com/toolgate/toolgate/internal/provider"
)

// Resolver locates the provider implementing a tool in the current
// discovery snapshot.
type Resolver interface {
	Resolve(ctx context.Context, routingKey, toolName string) (provider.Provider, *domain.ToolDescriptor, error)
}

// Engine executes tool calls. Transient failures are retried with
// exponential backoff; validation, media, and timeout failures are not.
// Retries rely on the remote failure mode being "request never arrived" —
// a provider that fails after performing its side effect will perform it
// again.
type Engine struct {
	resolver   Resolver
	maxRetries int
	baseDelay  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an engine. maxRetries is the number of additional attempts
// after the first (2 per the retry policy); baseDelay scales linearly with
// the attempt number.
func New(resolver Resolver, maxRetries int, baseDelay time.Duration) *Engine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Engine{
		resolver:   resolver,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepCtx,
	}
}

// sleepCtx waits out the backoff delay unless the caller goes away first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute resolves and invokes the tool, returning the raw provider
// payload.
func (e *Engine) Execute(ctx context.Context, routingKey, toolName string, params domain.Params) (json.RawMessage, error) {
	prov, _, err := e.resolver.Resolve(ctx, routingKey, toolName)
	if err != nil {
		return nil, err
	}

	timeout := category.TimeoutFor(toolName)
	attempts := e.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, err := prov.CallTool(callCtx, toolName, params)
		cancel()

		if err == nil {
			return raw, nil
		}
		lastErr = classify(err, toolName, timeout)

		if !domain.Retryable(lastErr) {
			return nil, lastErr
		}
		if attempt < attempts {
			delay := e.baseDelay * time.Duration(attempt)
			log.Printf("WARN: tool %s attempt %d/%d failed, retrying in %s: %v", toolName, attempt, attempts, delay, err)
			if serr := e.sleep(ctx, delay); serr != nil {
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

// classify maps a provider error onto the pipeline taxonomy. Unknown
// failures count as transient; providers that meant a hard rejection say so
// with a typed error.
func classify(err error, toolName string, timeout time.Duration) error {
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.PipelineError{
			Code:     domain.ErrCodeTimeout,
			ToolName: toolName,
			Message:  "execution exceeded the " + timeout.String() + " ceiling; the action may still complete on the provider side",
			Err:      err,
		}
	}
	return &domain.PipelineError{
		Code:     domain.ErrCodeTransient,
		ToolName: toolName,
		Message:  "provider call failed",
		Err:      err,
	}
}
