package genai

import (
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration for generation requests.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per reply.
	MaxAttempts int

	// AttemptTimeout bounds one backend call, independent of the retry loop.
	AttemptTimeout time.Duration

	// RateLimitBase scales the backoff after a rate-limit rejection:
	// RateLimitBase * 2^n plus up to RateLimitJitter, n being the
	// zero-based index of the failed attempt.
	RateLimitBase   time.Duration
	RateLimitJitter time.Duration

	// TransientBase scales the backoff after a transient failure the same way.
	TransientBase   time.Duration
	TransientJitter time.Duration
}

// DefaultRetryConfig returns the production retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		AttemptTimeout:  25 * time.Second,
		RateLimitBase:   2 * time.Second,
		RateLimitJitter: time.Second,
		TransientBase:   1500 * time.Millisecond,
		TransientJitter: 500 * time.Millisecond,
	}
}

// backoff computes the sleep before retrying the attempt with the given
// zero-based index. Jitter prevents synchronized retries across callers.
func (c RetryConfig) backoff(attempt int, base, jitter time.Duration) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	return d + time.Duration(rand.Float64()*float64(jitter))
}

// RateLimitBackoff is the sleep after a rate-limit rejection.
func (c RetryConfig) RateLimitBackoff(attempt int) time.Duration {
	return c.backoff(attempt, c.RateLimitBase, c.RateLimitJitter)
}

// TransientBackoff is the sleep after a transient failure or timeout.
func (c RetryConfig) TransientBackoff(attempt int) time.Duration {
	return c.backoff(attempt, c.TransientBase, c.TransientJitter)
}
