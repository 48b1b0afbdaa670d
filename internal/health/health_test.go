package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWait_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	ok := Wait(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	}, Options{MaxAttempts: 5, Interval: time.Millisecond})

	require.True(t, ok)
	require.Equal(t, 1, calls)
}

func TestWait_SucceedsOnLaterAttempt(t *testing.T) {
	calls := 0
	ok := Wait(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	}, Options{MaxAttempts: 5, Interval: time.Millisecond})

	require.True(t, ok)
	require.Equal(t, 3, calls)
}

func TestWait_ReturnsFalseOnExhaustion(t *testing.T) {
	calls := 0
	ok := Wait(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	}, Options{MaxAttempts: 3, Interval: time.Millisecond})

	require.False(t, ok)
	require.Equal(t, 3, calls)
}

func TestWait_NeverRaisesOnProbeError(t *testing.T) {
	ok := Wait(context.Background(), func(ctx context.Context) (bool, error) {
		return false, errors.New("boom")
	}, Options{MaxAttempts: 2, Interval: time.Millisecond})

	require.False(t, ok)
}

func TestWait_AppliesDefaultsWhenUnset(t *testing.T) {
	start := time.Now()
	calls := 0
	ok := Wait(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	}, Options{})

	require.True(t, ok)
	require.Equal(t, 1, calls)
	require.Less(t, time.Since(start), time.Second)
}

func TestWait_RespectsInitialDelay(t *testing.T) {
	start := time.Now()
	ok := Wait(context.Background(), func(ctx context.Context) (bool, error) {
		return true, nil
	}, Options{MaxAttempts: 1, InitialDelay: 50 * time.Millisecond})

	require.True(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_CancelledContextStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	ok := Wait(ctx, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	}, Options{MaxAttempts: 5, InitialDelay: time.Hour})

	require.False(t, ok)
	require.Equal(t, 0, calls)
}
