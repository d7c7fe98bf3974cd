package simulator

import (
	"math/rand"
	"time"
)

// Rand is the random source the store draws from. Calls happen under the store lock.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a deterministic source for the given seed.
// A zero seed is replaced with the current time.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// uniform returns a value in [-spread, spread).
func uniform(r Rand, spread float64) float64 {
	return (r.Float64()*2 - 1) * spread
}

func between(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
