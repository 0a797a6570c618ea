package realtime

import "time"

const (
	baseDelay = time.Second
	maxDelay  = 30 * time.Second

	// DefaultMaxReconnectAttempts is the backoff ceiling when none is
	// configured.
	DefaultMaxReconnectAttempts = 5
)

// DelayFor returns the wait before reconnect number attempt+1:
// min(1s * 2^attempt, 30s).
func DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^5s already exceeds the cap; avoid shifting into overflow.
	if attempt >= 5 {
		return maxDelay
	}
	d := baseDelay << uint(attempt)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
