package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelaySchedule(t *testing.T) {
	assert.Equal(t, 1*time.Minute, RetryDelayFor(1))
	assert.Equal(t, 5*time.Minute, RetryDelayFor(2))
	assert.Equal(t, 15*time.Minute, RetryDelayFor(3))
	assert.Equal(t, 60*time.Minute, RetryDelayFor(4))
	assert.Equal(t, 240*time.Minute, RetryDelayFor(5))
	assert.Equal(t, 1440*time.Minute, RetryDelayFor(6))
}

func TestRetryDelayCapsAtLastEntry(t *testing.T) {
	assert.Equal(t, 1440*time.Minute, RetryDelayFor(7))
	assert.Equal(t, 1440*time.Minute, RetryDelayFor(100))
	assert.Equal(t, 1*time.Minute, RetryDelayFor(0))
}

func TestRetryDelayMonotonic(t *testing.T) {
	for attempt := 1; attempt < len(retryDelays); attempt++ {
		assert.LessOrEqual(t, RetryDelayFor(attempt), RetryDelayFor(attempt+1))
	}
}

func TestNewQueueRates(t *testing.T) {
	assert.Equal(t, time.Second/8, NewQueue("deliver", 8, nil).rate)
	// A zero or negative rate still yields a working ticker interval.
	assert.Equal(t, time.Second, NewQueue("inbox", 0, nil).rate)
}
