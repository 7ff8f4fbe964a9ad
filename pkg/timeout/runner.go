package timeout

import (
	"context"
	"fmt"
	"io/fs"
	"reflect"
	"time"

	"github.com/core-tools/hsu-siat/pkg/errors"
)

// EmptyResultPolicy decides how a call that finished with an empty result is reported
type EmptyResultPolicy int

const (
	// MustExist reports an empty result as a missing dependency; the error also matches fs.ErrNotExist.
	MustExist EmptyResultPolicy = iota
	// Optional reports an empty result as a plain "object not found".
	Optional
)

func (p EmptyResultPolicy) String() string {
	switch p {
	case MustExist:
		return "must_exist"
	case Optional:
		return "optional"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// Run executes fn on a dedicated goroutine and waits at most timeout for it.
//
// When the deadline passes the goroutine is abandoned, not stopped: it keeps
// running in the background and whatever it eventually returns is discarded.
// Any socket or file it holds stays open until fn itself returns. Use
// RunContext when fn can observe cancellation.
func Run[T any](fn func() (T, error), timeout time.Duration, policy EmptyResultPolicy) (T, error) {
	return RunContext(context.Background(), func(context.Context) (T, error) {
		return fn()
	}, timeout, policy)
}

// RunContext is Run with cooperative cancellation: the context handed to fn is
// cancelled once the deadline passes or ctx ends. fn is still never waited for.
func RunContext[T any](ctx context.Context, fn func(ctx context.Context) (T, error), timeout time.Duration, policy EmptyResultPolicy) (T, error) {
	var zero T

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so an abandoned worker can always deliver and exit
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: errors.NewInternalError("wrapped call panicked", nil).
					WithContext("panic", fmt.Sprint(r))}
			}
		}()
		value, err := fn(callCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		if result.err != nil {
			return zero, result.err
		}
		if isEmpty(result.value) {
			return zero, emptyResultError(policy)
		}
		return result.value, nil

	case <-timer.C:
		return zero, errors.NewTimeoutError("call did not finish in time", nil).
			WithContext("timeout", timeout.String())

	case <-ctx.Done():
		return zero, errors.NewCancelledError("call cancelled", ctx.Err())
	}
}

func emptyResultError(policy EmptyResultPolicy) error {
	switch policy {
	case Optional:
		return errors.NewNoResultError("object not found", nil).
			WithContext("policy", policy.String())
	default:
		return errors.NewNoResultError("required result not found", fs.ErrNotExist).
			WithContext("policy", policy.String())
	}
}

// isEmpty treats nil references, empty strings and empty containers as no result.
// Numeric and boolean zero values are legitimate results.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	case reflect.Map, reflect.Slice:
		return v.IsNil() || v.Len() == 0
	case reflect.String, reflect.Array:
		return v.Len() == 0
	}
	return false
}
