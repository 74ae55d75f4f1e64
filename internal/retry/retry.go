// Package retry wraps calls to flaky market data providers. Every failure
// mode degrades to "no data"; nothing escapes to the caller.
package retry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"stock-screener/internal/logger"
)

// Sleeper blocks the calling goroutine for d.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration)

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) { f(ctx, d) }

// BlockingSleeper sleeps for the full duration unless ctx is cancelled first.
type BlockingSleeper struct{}

func (BlockingSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Executor runs operations under a retry Config.
type Executor struct {
	config  Config
	sleeper Sleeper
}

type Option func(*Executor)

func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		e.sleeper = s
	}
}

func NewExecutor(config Config, opts ...Option) *Executor {
	e := &Executor{
		config:  config,
		sleeper: BlockingSleeper{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Config() Config {
	return e.config
}

// Do invokes op until it yields a non-empty result or attempts run out.
// isEmpty may be nil, in which case only a nil pointer/slice/map counts as empty.
// The boolean is false whenever no data could be obtained.
func Do[T any](ctx context.Context, e *Executor, name string, op func(context.Context) (T, error), isEmpty func(T) bool) (T, bool) {
	var zero T
	maxRetries := e.config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var last Outcome
	for attempt := 0; attempt < maxRetries; attempt++ {
		if ctx.Err() != nil {
			logger.Warn(ctx, "Fetch abandoned, context done", "operation", name, "attempt", attempt+1)
			return zero, false
		}

		result, err := call(ctx, op)
		outcome := Classify(err)
		if outcome == OutcomeSuccess && empty(result, isEmpty) {
			outcome = OutcomeEmpty
		}
		last = outcome

		switch outcome {
		case OutcomeSuccess:
			if attempt > 0 {
				logger.Debug(ctx, "Fetch succeeded after retry", "operation", name, "attempt", attempt+1)
			}
			return result, true
		case OutcomeFatal:
			logger.Warn(ctx, "Fetch failed permanently", "operation", name, "error", err)
			return zero, false
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := e.config.policyFor(outcome).Delay(attempt)
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}
		logger.Debug(ctx, "Retrying fetch",
			"operation", name,
			"attempt", attempt+1,
			"outcome", outcome.String(),
			"delay_ms", delay.Milliseconds(),
			"error", errString(err),
		)
		e.sleeper.Sleep(ctx, delay)
	}

	if last == OutcomeEmpty {
		logger.Info(ctx, "No data returned after retries", "operation", name, "attempts", maxRetries)
	} else {
		logger.Warn(ctx, "Fetch failed after retries", "operation", name, "attempts", maxRetries, "outcome", last.String())
	}
	return zero, false
}

// call runs op, turning a panic into a transient error.
func call[T any](ctx context.Context, op func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in fetch: %v", r)
		}
	}()
	return op(ctx)
}

func empty[T any](v T, isEmpty func(T) bool) bool {
	if isEmpty != nil {
		return isEmpty(v)
	}
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil() || (rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface && rv.Len() == 0)
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
