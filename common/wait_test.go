package common

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitUntil(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		w := Wait{Op: "counting", Timeout: time.Second, Interval: 10 * time.Millisecond}
		v, err := WaitUntil(t.Context(), w, func() (int32, bool) {
			n := calls.Add(1)
			return n, n == 3
		})
		require.NoError(t, err)
		assert.Equal(t, int32(3), v)
	})
	t.Run("immediate", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		w := Wait{Timeout: time.Second, Interval: time.Second}
		v, err := WaitUntil(t.Context(), w, func() (string, bool) { return "now", true })
		require.NoError(t, err)
		assert.Equal(t, "now", v)
		assert.Less(t, time.Since(start), 500*time.Millisecond, "the first check doesn't sleep")
	})
	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		const timeout = 150 * time.Millisecond
		start := time.Now()
		w := Wait{Op: "waiting for godot", Timeout: timeout, Interval: 20 * time.Millisecond}
		_, err := WaitUntil(t.Context(), w, func() (bool, bool) { return false, false })
		elapsed := time.Since(start)

		require.ErrorIs(t, err, ErrTimedOut)
		var terr *TimeoutError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "waiting for godot", terr.Op)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.Less(t, elapsed, timeout+time.Second)
	})
	t.Run("context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		time.AfterFunc(50*time.Millisecond, cancel)
		_, err := WaitUntil(ctx, Wait{Timeout: 10 * time.Second}, func() (bool, bool) { return false, false })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitUntilErr(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	w := Wait{Timeout: time.Second, Interval: 10 * time.Millisecond}
	_, err := WaitUntilErr(t.Context(), w, func() (int, bool, error) {
		if calls.Add(1) == 2 {
			return 0, false, boom
		}
		return 0, false, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWaitStrict(t *testing.T) {
	t.Parallel()

	t.Run("absent_then_found", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		w := Wait{Timeout: time.Second, Interval: 10 * time.Millisecond}
		v, err := WaitStrict(t.Context(), w, func() (string, error) {
			if calls.Add(1) < 3 {
				return "", &NotFoundError{What: "#late"}
			}
			return "found", nil
		}, IsNotFound)
		require.NoError(t, err)
		assert.Equal(t, "found", v)
	})
	t.Run("other_error_is_immediate", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		w := Wait{Timeout: time.Second, Interval: 10 * time.Millisecond}
		_, err := WaitStrict(t.Context(), w, func() (string, error) {
			calls.Add(1)
			return "", &RemoteError{Code: -32000, Message: "Invalid selector"}
		}, IsNotFound)
		require.ErrorIs(t, err, ErrRemote)
		assert.Equal(t, int32(1), calls.Load())
	})
	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		w := Wait{}.withDefaults()
		assert.Equal(t, DefaultWaitTimeout, w.Timeout)
		assert.Equal(t, DefaultWaitInterval, w.Interval)
		assert.NotEmpty(t, w.Op)
	})
}
