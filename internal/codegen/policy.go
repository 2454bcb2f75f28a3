package codegen

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how transient provider failures are retried.
type RetryPolicy struct {
	MaxAttempts   int           // total attempts, including the first
	InitialDelay  time.Duration // delay before the second attempt
	MaxDelay      time.Duration // cap for any single delay
	BackoffFactor float64       // multiplier between consecutive delays
	Jitter        bool          // spread delays by ±10%
}

// DefaultRetryPolicy is used when settings do not override it.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:   3,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Delay returns how long to wait before the given attempt (1-based). The
// first attempt never waits.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.InitialDelay <= 0 {
		return 0
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	delay := time.Duration(float64(p.InitialDelay) * math.Pow(factor, float64(attempt-2)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter {
		spread := float64(delay) * 0.1
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if delay < 0 {
		delay = p.InitialDelay
	}
	return delay
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
