package resilience

import (
	"errors"
	"testing"
	"time"

	"nutrichat/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(failures uint, retry time.Duration) *CircuitBreaker {
	cfg := Config{
		Name:             "test",
		FailureThreshold: failures,
		SuccessThreshold: 1,
		RetryTimeout:     retry,
	}
	return New(cfg, logger.New(logger.Config{Level: "error"}))
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := newTestBreaker(1, 10*time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	cb := newTestBreaker(2, time.Minute)

	for i := 0; i < 10; i++ {
		assert.NoError(t, cb.Execute(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.GetState())
}
