package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayFollowsSchedule(t *testing.T) {
	assert.Equal(t, 1*time.Second, Delay(0))
	assert.Equal(t, 30*time.Second, Delay(5))
}

func TestDelayClampsBeyondSchedule(t *testing.T) {
	assert.Equal(t, 30*time.Second, Delay(6))
	assert.Equal(t, 30*time.Second, Delay(100))
}

func TestDelayClampsNegativeAttempt(t *testing.T) {
	assert.Equal(t, Delay(0), Delay(-1))
}

func TestExhausted(t *testing.T) {
	assert.False(t, Exhausted(5))
	assert.True(t, Exhausted(6))
}
