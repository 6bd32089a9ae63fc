package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originesmedia/og-prerender/infrastructure/circuitbreaker"
)

var errUpstream = errors.New("upstream failed")

func failing() error { return errUpstream }
func succeeding() error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 3, Timeout: time.Minute})
	ctx := context.Background()

	for range 3 {
		assert.ErrorIs(t, b.Execute(ctx, failing), errUpstream)
	}
	require.Equal(t, circuitbreaker.StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.False(t, called, "open breaker must not run the call")
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	var transitions []string
	b := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		OnStateChange: func(from, to circuitbreaker.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	b.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	require.Equal(t, circuitbreaker.StateOpen, b.State())

	now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, circuitbreaker.StateHalfOpen, b.State())
	require.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, circuitbreaker.StateClosed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreaker_HalfOpenAllowsOneTrialCall(t *testing.T) {
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second})
	now := time.Now()
	b.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	now = now.Add(2 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	called := false
	err := b.Execute(ctx, func() error { called = true; return nil })
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.False(t, called, "second caller must wait for the trial call")
	assert.Equal(t, circuitbreaker.StateHalfOpen, b.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.NoError(t, b.Execute(ctx, succeeding))
}

func TestBreaker_CancelledTrialCallFreesSlot(t *testing.T) {
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Second})
	now := time.Now()
	b.SetClock(func() time.Time { return now })

	_ = b.Execute(context.Background(), failing)
	now = now.Add(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.Execute(ctx, func() error { return ctx.Err() }), context.Canceled)
	require.Equal(t, circuitbreaker.StateHalfOpen, b.State())

	assert.NoError(t, b.Execute(context.Background(), succeeding), "a cancelled trial call must not block the next one")
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, Timeout: time.Second})
	now := time.Now()
	b.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	now = now.Add(2 * time.Second)
	_ = b.Execute(ctx, failing)

	assert.Equal(t, circuitbreaker.StateOpen, b.State())
}

func TestBreaker_IgnoresCallerCancellation(t *testing.T) {
	b := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func() error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	notFound := errors.New("not found")
	b := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, notFound) },
	})

	_ = b.Execute(context.Background(), func() error { return notFound })
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
}
