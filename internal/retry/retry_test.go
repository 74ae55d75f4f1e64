package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	sleeps []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) {
	r.sleeps = append(r.sleeps, d)
}

func newTestExecutor(maxRetries int) (*Executor, *recordingSleeper) {
	s := &recordingSleeper{}
	return NewExecutor(NewConfig(maxRetries, 100*time.Millisecond), WithSleeper(s)), s
}

func TestDo_EmptyThenSuccess(t *testing.T) {
	e, s := newTestExecutor(5)

	calls := 0
	got, ok := Do(context.Background(), e, "test", func(context.Context) ([]int, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		return []int{42}, nil
	}, nil)

	require.True(t, ok)
	assert.Equal(t, []int{42}, got)
	assert.Equal(t, 3, calls)
	require.Len(t, s.sleeps, 2)
	assert.Greater(t, s.sleeps[1], s.sleeps[0], "empty backoff must grow")
	assert.Equal(t, 100*time.Millisecond, s.sleeps[0])
	assert.Equal(t, 150*time.Millisecond, s.sleeps[1])
}

func TestDo_AlwaysRateLimited(t *testing.T) {
	e, s := newTestExecutor(3)

	calls := 0
	got, ok := Do(context.Background(), e, "test", func(context.Context) (*int, error) {
		calls++
		return nil, &RateLimitError{Provider: "test"}
	}, nil)

	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 3, calls)
	// no sleep after the last attempt
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, s.sleeps)
}

func TestDo_RateLimitBacksOffFasterThanEmpty(t *testing.T) {
	cfg := NewConfig(4, time.Second)
	empty := cfg.Policies.Empty
	limited := cfg.Policies.RateLimited
	for attempt := 1; attempt < 4; attempt++ {
		assert.Greater(t, limited.Delay(attempt), empty.Delay(attempt))
	}
}

func TestDo_HonoursRetryAfter(t *testing.T) {
	e, s := newTestExecutor(2)

	calls := 0
	_, ok := Do(context.Background(), e, "test", func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &RateLimitError{Provider: "test", RetryAfter: 5 * time.Second}
		}
		return "ok", nil
	}, func(s string) bool { return s == "" })

	assert.True(t, ok)
	assert.Equal(t, []time.Duration{5 * time.Second}, s.sleeps)
}

func TestDo_TransientUsesFixedDelay(t *testing.T) {
	e, s := newTestExecutor(4)

	_, ok := Do(context.Background(), e, "test", func(context.Context) (*int, error) {
		return nil, errors.New("connection refused")
	}, nil)

	assert.False(t, ok)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond,
	}, s.sleeps)
}

func TestDo_PermanentDoesNotRetry(t *testing.T) {
	e, s := newTestExecutor(5)

	calls := 0
	_, ok := Do(context.Background(), e, "test", func(context.Context) (*int, error) {
		calls++
		return nil, Permanent(errors.New("invalid api key"))
	}, nil)

	assert.False(t, ok)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.sleeps)
}

func TestDo_RecoversPanic(t *testing.T) {
	e, s := newTestExecutor(2)

	calls := 0
	got, ok := Do(context.Background(), e, "test", func(context.Context) (map[string]int, error) {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		return map[string]int{"a": 1}, nil
	}, nil)

	assert.True(t, ok)
	assert.Equal(t, 1, got["a"])
	assert.Len(t, s.sleeps, 1)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	e, _ := newTestExecutor(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, ok := Do(ctx, e, "test", func(context.Context) (*int, error) {
		calls++
		return nil, nil
	}, nil)

	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Classify(nil))
	assert.Equal(t, OutcomeRateLimited, Classify(&RateLimitError{}))
	assert.Equal(t, OutcomeRateLimited, Classify(fmt.Errorf("wrapped: %w", &RateLimitError{})))
	assert.Equal(t, OutcomeFatal, Classify(Permanent(errors.New("x"))))
	assert.Equal(t, OutcomeTransient, Classify(errors.New("x")))
	assert.Nil(t, Permanent(nil))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MaxRetries = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Policies.Empty.Base = 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Policies.Transient.Kind = "linear"
	assert.Error(t, bad.Validate())
}
