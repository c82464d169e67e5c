package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesync/internal/config"
	pkgerrors "cablesync/pkg/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	var retried []int

	err := Do(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func() error {
		calls++
		return pkgerrors.ErrPersistence
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_FatalErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "input error", err: pkgerrors.ErrInput.WithDetail("message", "source is empty")},
		{name: "phase-wrapped input error", err: pkgerrors.NewPhaseError("normalize", pkgerrors.ErrInput)},
		{name: "explicit fatal", err: NewFatalError(errors.New("bad envelope"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastPolicy(5), func() error {
				calls++
				return tt.err
			}, nil)

			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDo_NonFatalCodedErrorsAreRetried(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), fastPolicy(3), func() error {
		calls++
		return pkgerrors.NewPhaseError("write_events", pkgerrors.ErrPersistence.WithCause(errors.New("deadlock")))
	}, nil)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, Policy{MaxAttempts: 10, InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 2}, func() error {
		calls++
		cancel()
		return errors.New("timeout")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFromSettings(t *testing.T) {
	policy := FromSettings(config.RetryConfig{MaxAttempts: 5, Multiplier: 3})
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 3.0, policy.Multiplier)
	assert.Equal(t, DefaultPolicy().InitialInterval, policy.InitialInterval)
	assert.Zero(t, policy.MaxElapsedTime)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(pkgerrors.ErrInput))
	assert.False(t, IsFatal(pkgerrors.ErrPersistence))
	assert.True(t, IsFatal(pkgerrors.ErrPersistence.AsFatal()))
	assert.False(t, IsFatal(errors.New("plain")))
}
