package timeout

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/core-tools/hsu-siat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClient struct {
	name string
}

func TestRun_ReturnsValue(t *testing.T) {
	client := &fakeClient{name: "COMPRAS"}

	result, err := Run(func() (*fakeClient, error) {
		return client, nil
	}, time.Second, MustExist)

	require.NoError(t, err)
	assert.Same(t, client, result)
}

func TestRun_PropagatesCallError(t *testing.T) {
	callErr := fmt.Errorf("dial tcp: connection refused")

	_, err := Run(func() (*fakeClient, error) {
		return nil, callErr
	}, time.Second, MustExist)

	assert.Same(t, callErr, err)
	assert.False(t, errors.IsTimeoutError(err))
	assert.False(t, errors.IsNoResultError(err))
}

func TestRun_EmptyResult(t *testing.T) {
	t.Run("must_exist", func(t *testing.T) {
		_, err := Run(func() (*fakeClient, error) {
			return nil, nil
		}, time.Second, MustExist)

		assert.True(t, errors.IsNoResultError(err))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.False(t, errors.IsTimeoutError(err))
	})

	t.Run("optional", func(t *testing.T) {
		_, err := Run(func() (map[string]string, error) {
			return map[string]string{}, nil
		}, time.Second, Optional)

		assert.True(t, errors.IsNoResultError(err))
		assert.False(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("empty_string", func(t *testing.T) {
		_, err := Run(func() (string, error) {
			return "", nil
		}, time.Second, Optional)

		assert.True(t, errors.IsNoResultError(err))
	})

	t.Run("zero_number_is_a_result", func(t *testing.T) {
		value, err := Run(func() (int, error) {
			return 0, nil
		}, time.Second, Optional)

		assert.NoError(t, err)
		assert.Equal(t, 0, value)
	})
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	timeout := 50 * time.Millisecond
	start := time.Now()
	_, err := Run(func() (*fakeClient, error) {
		<-release
		return &fakeClient{}, nil
	}, timeout, MustExist)
	elapsed := time.Since(start)

	assert.True(t, errors.IsTimeoutError(err))
	assert.False(t, errors.IsNoResultError(err))
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestRun_Panic(t *testing.T) {
	_, err := Run(func() (*fakeClient, error) {
		panic("wsdl parser exploded")
	}, time.Second, MustExist)

	assert.True(t, errors.IsInternalError(err))
}

func TestRunContext_CancelsCallOnTimeout(t *testing.T) {
	observed := make(chan error, 1)

	_, err := RunContext(context.Background(), func(ctx context.Context) (*fakeClient, error) {
		<-ctx.Done()
		observed <- ctx.Err()
		return nil, ctx.Err()
	}, 20*time.Millisecond, MustExist)

	assert.True(t, errors.IsTimeoutError(err))
	select {
	case callErr := <-observed:
		assert.ErrorIs(t, callErr, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("wrapped call never observed cancellation")
	}
}

func TestRunContext_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, func(ctx context.Context) (*fakeClient, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, time.Second, Optional)

	// either branch may win the race, both are cancellation
	assert.True(t, errors.IsCancelledError(err) || errors.Is(err, context.Canceled))
}
