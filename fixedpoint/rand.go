// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"math/rand"

	"github.com/holiman/uint256"
)

// Sampling helpers for the differential-fuzzing harnesses. Nothing in the
// production pricing path uses randomness; these exist so test drivers can
// cover the full 256-bit domain without reaching into the representation.

// Uniform returns a value sampled uniformly over the full 256-bit domain.
func Uniform(rng *rand.Rand) FixedPoint {
	var n uint256.Int
	n[0] = rng.Uint64()
	n[1] = rng.Uint64()
	n[2] = rng.Uint64()
	n[3] = rng.Uint64()
	return FixedPoint{n: n}
}

// UniformRange returns a value sampled uniformly from [low, high]. Fatal when
// low > high.
func UniformRange(rng *rand.Rand, low, high FixedPoint) FixedPoint {
	if low.Gt(high) {
		fatal(ErrUnderflow, "uniform range [%s, %s]", low, high)
	}
	span := high.Sub(low)
	if span.IsZero() {
		return low
	}
	// Sample modulo span+1. The modulo bias is immaterial for fuzzing and
	// keeps the sampler allocation-free.
	var width, sample uint256.Int
	var one uint256.Int
	one.SetOne()
	if _, overflow := width.AddOverflow(&span.n, &one); overflow {
		// Span covers the entire domain.
		return Uniform(rng)
	}
	s := Uniform(rng)
	sample.Mod(&s.n, &width)
	return low.Add(FixedPoint{n: sample})
}
