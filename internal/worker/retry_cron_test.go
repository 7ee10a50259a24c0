package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Minute, RetryBackoff(1))
	assert.Equal(t, 2*time.Minute, RetryBackoff(2))
	assert.Equal(t, 4*time.Minute, RetryBackoff(3))
	assert.Equal(t, 16*time.Minute, RetryBackoff(5))

	// Cap at 30 minutes.
	assert.Equal(t, 30*time.Minute, RetryBackoff(6))
	assert.Equal(t, 30*time.Minute, RetryBackoff(40))

	// Out-of-range attempts clamp instead of panicking on a negative shift.
	assert.Equal(t, 1*time.Minute, RetryBackoff(0))
	assert.Equal(t, 1*time.Minute, RetryBackoff(-3))
	assert.Equal(t, 30*time.Minute, RetryBackoff(100))
}
