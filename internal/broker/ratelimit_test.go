package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterNilPassesEverything(t *testing.T) {
	var rl *RateLimiter
	for i := 0; i < 1000; i++ {
		assert.True(t, rl.Check())
	}
}

func TestNewRateLimiterNonPositiveIsNil(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0))
	assert.Nil(t, NewRateLimiter(-5))
}

func TestRateLimiterAllowsBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(3)

	assert.True(t, rl.Check())
	assert.True(t, rl.Check())
	assert.True(t, rl.Check())
	assert.False(t, rl.Check(), "fourth command within the same burst window must be rejected")
}

func TestRateLimiterRefillsAfterOneSecond(t *testing.T) {
	rl := NewRateLimiter(2)
	assert.True(t, rl.Check())
	assert.True(t, rl.Check())
	assert.False(t, rl.Check())

	time.Sleep(1100 * time.Millisecond)
	assert.True(t, rl.Check(), "at least one token must be available a second later")
}
