package resilience_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/dcsim/internal/resilience"
)

var errFail = errors.New("fail")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func tripped(cb *resilience.CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(func() error { return errFail })
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	tests := []struct {
		name          string
		config        resilience.CircuitBreakerConfig
		execFunc      func() error
		expectedErr   error
		expectedState resilience.State
	}{
		{
			name: "successful execution stays closed",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Second,
			},
			execFunc:      func() error { return nil },
			expectedErr:   nil,
			expectedState: resilience.StateClosed,
		},
		{
			name: "single failure stays closed",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 3,
				Timeout:     5 * time.Second,
			},
			execFunc:      func() error { return errFail },
			expectedErr:   errFail,
			expectedState: resilience.StateClosed,
		},
		{
			name: "failure at threshold opens",
			config: resilience.CircuitBreakerConfig{
				MaxFailures: 1,
				Timeout:     5 * time.Second,
			},
			execFunc:      func() error { return errFail },
			expectedErr:   errFail,
			expectedState: resilience.StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := resilience.NewCircuitBreaker(tt.config)

			err := cb.Execute(tt.execFunc)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		config        resilience.CircuitBreakerConfig
		setup         func(cb *resilience.CircuitBreaker, clock *fakeClock)
		expectedState resilience.State
	}{
		{
			name:   "transition to open after max failures",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 5 * time.Second},
			setup: func(cb *resilience.CircuitBreaker, _ *fakeClock) {
				tripped(cb, 3)
			},
			expectedState: resilience.StateOpen,
		},
		{
			name:   "transition to half-open after timeout",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 50 * time.Millisecond},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				tripped(cb, 3)
				clock.Advance(100 * time.Millisecond)
				_ = cb.Execute(func() error { return nil })
			},
			expectedState: resilience.StateHalfOpen,
		},
		{
			name:   "transition from half-open to closed on success",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 50 * time.Millisecond, HalfOpenMax: 2},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				tripped(cb, 3)
				clock.Advance(100 * time.Millisecond)
				for i := 0; i < 3; i++ {
					_ = cb.Execute(func() error { return nil })
				}
			},
			expectedState: resilience.StateClosed,
		},
		{
			name:   "half-open failure reopens",
			config: resilience.CircuitBreakerConfig{MaxFailures: 3, Timeout: 50 * time.Millisecond},
			setup: func(cb *resilience.CircuitBreaker, clock *fakeClock) {
				tripped(cb, 3)
				clock.Advance(100 * time.Millisecond)
				tripped(cb, 1)
			},
			expectedState: resilience.StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
			tt.config.Now = clock.Now
			cb := resilience.NewCircuitBreaker(tt.config)

			tt.setup(cb, clock)

			assert.Equal(t, tt.expectedState, cb.State())
		})
	}
}

func TestCircuitBreaker_OpenState_RejectsRequest(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     time.Hour,
	})
	tripped(cb, 3)

	called := false
	err := cb.Execute(func() error { called = true; return nil })

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_ExecuteContextTimeout(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: 1,
		CallTimeout: 10 * time.Millisecond,
	})

	err := cb.ExecuteContext(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, resilience.ErrCircuitTimeout)
	assert.Equal(t, resilience.StateOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	changes := make(chan resilience.State, 4)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "predictor",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to resilience.State) {
			assert.Equal(t, "predictor", name)
			changes <- to
		},
	})

	tripped(cb, 1)

	select {
	case to := <-changes:
		assert.Equal(t, resilience.StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("no state change reported")
	}
}

func TestState_MarshalText(t *testing.T) {
	text, err := resilience.StateHalfOpen.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "half-open", string(text))
}
