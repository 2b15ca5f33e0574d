package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	kl := New(rate.Every(time.Hour), 2, time.Minute)
	defer kl.Stop()

	assert.True(t, kl.Allow("10.0.0.1"))
	assert.True(t, kl.Allow("10.0.0.1"))
	assert.False(t, kl.Allow("10.0.0.1"))

	// Keys are independent.
	assert.True(t, kl.Allow("10.0.0.2"))
}

func TestAllow_Refills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kl := New(rate.Every(time.Second), 1, time.Minute)
	defer kl.Stop()
	kl.now = func() time.Time { return now }

	assert.True(t, kl.Allow("k"))
	assert.False(t, kl.Allow("k"))

	now = now.Add(time.Second)
	assert.True(t, kl.Allow("k"))
}

func TestSweep_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kl := New(rate.Every(time.Second), 1, time.Minute)
	defer kl.Stop()
	kl.now = func() time.Time { return now }

	kl.Allow("old")
	now = now.Add(50 * time.Second)
	kl.Allow("fresh")
	now = now.Add(20 * time.Second)

	kl.Sweep()
	assert.Equal(t, 1, kl.Len())
}

func TestPerMinute(t *testing.T) {
	kl := PerMinute(3)
	defer kl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, kl.Allow("ip"))
	}
	assert.False(t, kl.Allow("ip"))
}

func TestStop_Idempotent(t *testing.T) {
	kl := PerMinute(1)
	kl.Stop()
	assert.NotPanics(t, kl.Stop)
}
