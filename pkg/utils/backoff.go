package utils

import (
	"math/rand"
	"time"
)

// PollBackoff is the pause after the n-th consecutive read failure: base
// doubled per failure with ±1/8 jitter, capped at max.
func PollBackoff(failures int, base, max time.Duration) time.Duration {
	if failures <= 0 || base <= 0 {
		return 0
	}
	shift := failures - 1
	if shift > 30 {
		return max
	}
	d := base << shift
	if d <= 0 || d >= max {
		return max
	}
	spread := int64(d / 4)
	if spread == 0 {
		return d
	}
	d += time.Duration(rand.Int63n(spread)) - d/8
	return min(d, max)
}
