package execpolicy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

func TestRun_AlwaysFailsInvokesExactlyMaxRetriesPlusOne(t *testing.T) {
	p := Policy{Timeout: time.Second, MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	calls := 0
	var retries []RetryInfo
	p.OnRetry = func(r RetryInfo) { retries = append(retries, r) }

	_, err := p.Run(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, retries, 3)
}

func TestRun_SucceedsOnAttemptKStopsRetrying(t *testing.T) {
	p := Policy{Timeout: time.Second, MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	calls := 0

	result, err := p.Run(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("not yet")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestRun_DeadlineAbortsWithTimeoutError(t *testing.T) {
	p := Policy{Timeout: 20 * time.Millisecond, MaxRetries: 100, BaseDelay: 10 * time.Millisecond, MaxDelay: 10 * time.Millisecond}

	_, err := p.Run(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, vaulterr.TimeoutError, vaulterr.CodeOf(err))
}

func TestRun_TransparentToSuccessValue(t *testing.T) {
	p := Default()
	result, err := p.Run(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
