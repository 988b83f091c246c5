package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(true, 3, time.Minute, time.Minute, nil)

	assert.False(t, cb.RecordFailure())
	assert.False(t, cb.RecordFailure())
	assert.False(t, cb.IsOpen())

	assert.True(t, cb.RecordFailure())
	assert.True(t, cb.IsOpen())
}

func TestDisabledNeverOpens(t *testing.T) {
	cb := NewCircuitBreaker(false, 1, time.Minute, time.Minute, nil)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	assert.False(t, cb.IsEnabled())
}

func TestResetClosesCircuit(t *testing.T) {
	cb := NewCircuitBreaker(true, 1, time.Minute, time.Minute, nil)

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	cb.Reset()
	assert.False(t, cb.IsOpen())
}

func TestReopensAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(true, 1, time.Minute, 10*time.Millisecond, nil)

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cb.IsOpen())
}

func TestWindowResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(true, 2, 10*time.Millisecond, time.Minute, nil)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	// First failure aged out of the window, so this one starts over.
	assert.False(t, cb.RecordFailure())
	assert.False(t, cb.IsOpen())
}
