package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	h := &RetryHandler{config: DefaultRetryConfig}

	assert.Equal(t, 30*time.Second, h.BackoffDelay(1))
	assert.Equal(t, 1*time.Minute, h.BackoffDelay(2))
	assert.Equal(t, 2*time.Minute, h.BackoffDelay(3))
	assert.Equal(t, 16*time.Minute, h.BackoffDelay(6))
}

func TestBackoffDelayCapped(t *testing.T) {
	h := &RetryHandler{config: DefaultRetryConfig}

	assert.Equal(t, 6*time.Hour, h.BackoffDelay(40))
}

func TestBackoffDelayCustomConfig(t *testing.T) {
	h := &RetryHandler{config: RetryConfig{
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
		Multiplier:      3,
	}}

	assert.Equal(t, time.Second, h.BackoffDelay(1))
	assert.Equal(t, 3*time.Second, h.BackoffDelay(2))
	assert.Equal(t, 9*time.Second, h.BackoffDelay(3))
	assert.Equal(t, 10*time.Second, h.BackoffDelay(4))
}
