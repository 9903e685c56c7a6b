package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("downstream unavailable")

func newTestBreaker(t *testing.T) (*CircuitBreaker, *time.Time) {
	t.Helper()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New("mail", Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             10 * time.Second,
		HalfOpenMaxRequests: 1,
	})
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func fail() error    { return errDown }
func succeed() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(t)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errDown)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	assert.ErrorIs(t, cb.Execute(fail), errDown)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(t)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(succeed))
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(t)

	var transitions []string
	cb.OnStateChange(func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}
	*clock = clock.Add(11 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.GetState())

	assert.Equal(t, []string{"closed->open", "half_open->closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(t)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}
	*clock = clock.Add(11 * time.Second)

	assert.ErrorIs(t, cb.Execute(fail), errDown)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCallerCancellationIsNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		err := cb.ExecuteContext(ctx, func(ctx context.Context) error { return ctx.Err() })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestReset(t *testing.T) {
	cb, _ := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}
	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(succeed))
}

func TestConfigDefaults(t *testing.T) {
	cb := New("x", Config{})
	assert.Equal(t, DefaultConfig(), cb.config)
}
