package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caremont/hospital-api/internal/auth"
)

func TestTimingDelay_Wait_OnFailure(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:    100,
		RandomDelayMs:  50,
		DelayOnSuccess: false,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.Wait(false)

	elapsed := time.Since(startTime)
	// At least the base, bounded by base + random plus scheduling slack
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestTimingDelay_Wait_OnSuccess_NoDelay(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:    100,
		RandomDelayMs:  50,
		DelayOnSuccess: false,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.Wait(true)

	elapsed := time.Since(startTime)
	assert.Less(t, elapsed, 10*time.Millisecond)
}

func TestTimingDelay_Wait_OnSuccess_WithDelay(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:    100,
		RandomDelayMs:  50,
		DelayOnSuccess: true,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	timing.Wait(true)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AdjustsForElapsedTime(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:    100,
		RandomDelayMs:  0,
		DelayOnSuccess: false,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	// Simulate work already done
	time.Sleep(50 * time.Millisecond)

	timing.WaitFrom(startTime, false)

	elapsed := time.Since(startTime)
	// The delay tops elapsed time up to the target, it does not stack on it
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 120*time.Millisecond)
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	config := auth.TimingConfig{
		BaseDelayMs:    50,
		RandomDelayMs:  0,
		DelayOnSuccess: false,
	}

	timing := auth.NewTimingDelay(config)
	startTime := time.Now()

	time.Sleep(60 * time.Millisecond)

	before := time.Now()
	timing.WaitFrom(startTime, false)
	assert.Less(t, time.Since(before), 10*time.Millisecond)
}
