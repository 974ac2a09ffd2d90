package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker(t *testing.T) {
	boom := errors.New("boom")
	fail := func() error { return boom }
	succeed := func() error { return nil }

	t.Run("closed passes calls through", func(t *testing.T) {
		cb := New("test", Config{})
		require.NoError(t, cb.Execute(context.Background(), succeed))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("consecutive failures open the circuit", func(t *testing.T) {
		cb := New("test", Config{FailureThreshold: 3})

		for i := 0; i < 3; i++ {
			assert.Equal(t, boom, cb.Execute(context.Background(), fail))
		}
		assert.Equal(t, StateOpen, cb.State())

		err := cb.Execute(context.Background(), succeed)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("a success resets the failure streak", func(t *testing.T) {
		cb := New("test", Config{FailureThreshold: 3})

		cb.Execute(context.Background(), fail)
		cb.Execute(context.Background(), fail)
		cb.Execute(context.Background(), succeed)
		cb.Execute(context.Background(), fail)
		cb.Execute(context.Background(), fail)

		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("recovers through half-open after the timeout", func(t *testing.T) {
		cb := New("test", Config{
			FailureThreshold: 1,
			SuccessThreshold: 2,
			MaxRequests:      5,
			Timeout:          10 * time.Millisecond,
		})

		require.Equal(t, boom, cb.Execute(context.Background(), fail))
		require.Equal(t, StateOpen, cb.State())

		time.Sleep(15 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(context.Background(), succeed))
		require.NoError(t, cb.Execute(context.Background(), succeed))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("half-open failure reopens immediately", func(t *testing.T) {
		cb := New("test", Config{
			FailureThreshold: 1,
			Timeout:          10 * time.Millisecond,
		})

		cb.Execute(context.Background(), fail)
		time.Sleep(15 * time.Millisecond)
		require.Equal(t, StateHalfOpen, cb.State())

		cb.Execute(context.Background(), fail)
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("a panicking call counts as a failure and re-panics", func(t *testing.T) {
		cb := New("test", Config{FailureThreshold: 1})

		assert.Panics(t, func() {
			cb.Execute(context.Background(), func() error { panic("bad") })
		})
		assert.Equal(t, StateOpen, cb.State())
	})
}
