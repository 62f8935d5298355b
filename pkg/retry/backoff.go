package retry

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

const (
	minBackoff     = 1 * time.Millisecond
	maxBackoffExp  = 16
	jitterLow      = 0.5
	jitterSpan     = 1.0 // jitterHigh (1.5) - jitterLow (0.5)
	jitterDenomRes = 1 << 20
)

// Backoff implements the jitter utility spec.md §4.6 describes for
// per-tool retries (Describe and tool-map integrations), distinct from
// the Retry Orchestrator's own linear schedule:
//
//	backoff(base, attempt) = clamp(base * 2^min(attempt,16) * U, 1ms, maxDuration)
//
// where U is drawn uniformly from [0.5, 1.5]. Jitter is sourced from
// crypto/rand rather than math/rand, the way
// pkg/util/resiliency/client.go draws its own retry jitter from
// crypto/rand.Int.
func Backoff(base time.Duration, attempt uint32) time.Duration {
	exp := attempt
	if exp > maxBackoffExp {
		exp = maxBackoffExp
	}

	multiplier := math.Pow(2, float64(exp))
	scaled := float64(base) * multiplier * jitter()

	if scaled < float64(minBackoff) {
		return minBackoff
	}
	if scaled > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

// jitter draws a uniform float64 in [0.5, 1.5).
func jitter() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(jitterDenomRes))
	if err != nil {
		return 1.0
	}
	frac := float64(n.Int64()) / float64(jitterDenomRes)
	return jitterLow + frac*jitterSpan
}

// saturatingMul multiplies d by n, clamping to the maximum
// representable Duration instead of wrapping on overflow.
func saturatingMul(d time.Duration, n uint32) time.Duration {
	if d <= 0 || n == 0 {
		return 0
	}
	const maxDuration = time.Duration(math.MaxInt64)
	if time.Duration(n) > maxDuration/d {
		return maxDuration
	}
	return d * time.Duration(n)
}
