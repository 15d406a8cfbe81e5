package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	bucket := NewTokenBucket(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := bucket.Allow()
		assert.True(t, allowed, "token %d should be available", i)
	}

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestRateLimiterIsolatesUsersAndActions(t *testing.T) {
	limiter := NewRateLimiter()

	for i := 0; i < 6; i++ {
		allowed, _ := limiter.Allow("u1", "assistant_turn")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("u1", "assistant_turn")
	assert.False(t, allowed, "u1's assistant bucket is drained")

	allowed, _ = limiter.Allow("u2", "assistant_turn")
	assert.True(t, allowed, "u2 has an independent bucket")

	allowed, _ = limiter.Allow("u1", "send_message")
	assert.True(t, allowed, "actions have independent buckets")
}
