// Package execpolicy wraps a fallible operation with a deadline and a
// bounded, unconditional retry schedule. It is grounded in the teacher's
// cache.Service initial-crawl spin-wait (poll-with-backoff over a context)
// generalized into a standalone, reusable wrapper the dispatcher (pkg/mcptools)
// puts around every tool handler.
package execpolicy

import (
	"context"
	"time"

	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// RetryInfo is passed to OnRetry after a failed attempt, before sleeping.
type RetryInfo struct {
	Attempt int
	Error   error
}

// Policy configures timeout + bounded retry around any zero-argument
// operation. The policy is unconditional: it does not classify errors as
// retryable or fatal, it just retries until MaxRetries is exhausted or the
// deadline expires. Callers decide post-hoc (via pkg/recovery) whether a
// final failure should be queued for later reconciliation.
type Policy struct {
	Timeout     time.Duration
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	OnRetry     func(RetryInfo)
}

// Default mirrors the CLI defaults from the root command: 5s timeout, 2
// retries.
func Default() Policy {
	return Policy{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
	}
}

// WithTimeout returns a copy of p with Timeout overridden.
func (p Policy) WithTimeout(d time.Duration) Policy {
	p.Timeout = d
	return p
}

// WithMaxRetries returns a copy of p with MaxRetries overridden.
func (p Policy) WithMaxRetries(n int) Policy {
	p.MaxRetries = n
	return p
}

// Op is any operation the policy can wrap.
type Op func(ctx context.Context) (any, error)

// Run executes op under p's deadline, retrying on error up to MaxRetries
// additional times with exponential backoff (base, capped at MaxDelay). If
// the deadline expires at any point — before an attempt, during the sleep
// between attempts — it aborts with a TimeoutError. Success short-circuits
// immediately; the policy never re-invokes an operation that already
// succeeded.
func (p Policy) Run(ctx context.Context, op Op) (any, error) {
	deadlineCtx := ctx
	var cancel context.CancelFunc
	if p.Timeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	delay := p.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	var lastErr error
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-deadlineCtx.Done():
			return nil, vaulterr.Wrap(vaulterr.TimeoutError, "operation deadline exceeded", deadlineCtx.Err())
		default:
		}

		result, err := op(deadlineCtx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(RetryInfo{Attempt: attempt, Error: err})
		}

		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			return nil, vaulterr.Wrap(vaulterr.TimeoutError, "operation deadline exceeded", deadlineCtx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return nil, lastErr
}
