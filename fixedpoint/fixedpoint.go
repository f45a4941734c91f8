// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint implements the 256-bit fixed-point decimal arithmetic
// that underlies all pool pricing. Values are unsigned 256-bit integers scaled
// by 1e18. Every operator carries its rounding direction in its name so the
// bias at each call site is visible; there is no operator that rounds
// implicitly. A signed companion type exists only for quantities that are
// genuinely signed (net exposure, share adjustments, ln/exp arguments).
package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Decimals is the fixed decimal scale of every value.
const Decimals = 18

var (
	scale    = uint256.NewInt(1e18)
	scaleBig = new(big.Int).SetUint64(1e18)
)

// FixedPoint is an unsigned 256-bit integer scaled by 1e18. The zero value is
// 0.0. It is an immutable value type: every operation returns a new value and
// never mutates its receiver, so copies may be shared freely across
// goroutines.
type FixedPoint struct {
	n uint256.Int
}

// Zero returns 0.0.
func Zero() FixedPoint { return FixedPoint{} }

// One returns 1.0 (1e18 in raw units).
func One() FixedPoint { return FixedPoint{n: *scale} }

// FromRaw returns the fixed-point value with the given raw 1e18-scaled
// magnitude.
func FromRaw(v *uint256.Int) FixedPoint {
	var n uint256.Int
	n.Set(v)
	return FixedPoint{n: n}
}

// FromRawUint64 returns the fixed-point value with raw magnitude v. Note that
// FromRawUint64(1) is 1e-18, not 1.0.
func FromRawUint64(v uint64) FixedPoint {
	var n uint256.Int
	n.SetUint64(v)
	return FixedPoint{n: n}
}

// FromUint64 converts a machine integer to fixed point, i.e. FromUint64(7) is
// 7.0.
func FromUint64(v uint64) FixedPoint {
	var n uint256.Int
	n.SetUint64(v)
	n.Mul(&n, scale)
	return FixedPoint{n: n}
}

// FromBig converts a raw 1e18-scaled big integer. Returns an error when the
// value is negative or exceeds 256 bits.
func FromBig(v *big.Int) (FixedPoint, error) {
	if v.Sign() < 0 {
		return FixedPoint{}, fmt.Errorf("%w: %s", ErrNegativeValue, v)
	}
	n, overflow := uint256.FromBig(v)
	if overflow {
		return FixedPoint{}, fmt.Errorf("%w: %s", ErrOverflow, v)
	}
	return FixedPoint{n: *n}, nil
}

// Raw returns a copy of the raw 1e18-scaled magnitude.
func (x FixedPoint) Raw() *uint256.Int {
	return new(uint256.Int).Set(&x.n)
}

// Big returns the raw 1e18-scaled magnitude as a big integer.
func (x FixedPoint) Big() *big.Int {
	return x.n.ToBig()
}

// =========================================================================
// Comparison
// =========================================================================

// Cmp returns -1, 0, or 1 depending on whether x is less than, equal to, or
// greater than y.
func (x FixedPoint) Cmp(y FixedPoint) int { return x.n.Cmp(&y.n) }

// IsZero returns true if x is exactly zero.
func (x FixedPoint) IsZero() bool { return x.n.IsZero() }

// Eq returns true if x equals y.
func (x FixedPoint) Eq(y FixedPoint) bool { return x.n.Eq(&y.n) }

// Lt returns true if x < y.
func (x FixedPoint) Lt(y FixedPoint) bool { return x.n.Lt(&y.n) }

// Lte returns true if x <= y.
func (x FixedPoint) Lte(y FixedPoint) bool { return !x.n.Gt(&y.n) }

// Gt returns true if x > y.
func (x FixedPoint) Gt(y FixedPoint) bool { return x.n.Gt(&y.n) }

// Gte returns true if x >= y.
func (x FixedPoint) Gte(y FixedPoint) bool { return !x.n.Lt(&y.n) }

// Min returns the smaller of x and y.
func (x FixedPoint) Min(y FixedPoint) FixedPoint {
	if x.Lt(y) {
		return x
	}
	return y
}

// Max returns the larger of x and y.
func (x FixedPoint) Max(y FixedPoint) FixedPoint {
	if x.Gt(y) {
		return x
	}
	return y
}

// =========================================================================
// Arithmetic
// =========================================================================

// Add returns x + y. Fatal on 256-bit overflow.
func (x FixedPoint) Add(y FixedPoint) FixedPoint {
	var z uint256.Int
	if _, overflow := z.AddOverflow(&x.n, &y.n); overflow {
		fatal(ErrOverflow, "%s + %s", x, y)
	}
	return FixedPoint{n: z}
}

// Sub returns x - y. Fatal when the result would be negative.
func (x FixedPoint) Sub(y FixedPoint) FixedPoint {
	var z uint256.Int
	if _, underflow := z.SubOverflow(&x.n, &y.n); underflow {
		fatal(ErrUnderflow, "%s - %s", x, y)
	}
	return FixedPoint{n: z}
}

// MulDivDown returns x * y / d, flooring the result. The product is computed
// in 512 bits, so it cannot overflow before the division narrows it. Fatal on
// zero divisor or when the quotient exceeds 256 bits.
func (x FixedPoint) MulDivDown(y, d FixedPoint) FixedPoint {
	if d.n.IsZero() {
		fatal(ErrDivisionByZero, "%s * %s / 0", x, y)
	}
	var z uint256.Int
	if _, overflow := z.MulDivOverflow(&x.n, &y.n, &d.n); overflow {
		fatal(ErrOverflow, "%s * %s / %s", x, y, d)
	}
	return FixedPoint{n: z}
}

// MulDivUp returns x * y / d, ceiling the result. Fatal on zero divisor or
// 256-bit overflow.
func (x FixedPoint) MulDivUp(y, d FixedPoint) FixedPoint {
	if d.n.IsZero() {
		fatal(ErrDivisionByZero, "%s * %s / 0", x, y)
	}
	var z uint256.Int
	if _, overflow := z.MulDivOverflow(&x.n, &y.n, &d.n); overflow {
		fatal(ErrOverflow, "%s * %s / %s", x, y, d)
	}
	var rem uint256.Int
	rem.MulMod(&x.n, &y.n, &d.n)
	if !rem.IsZero() {
		var one uint256.Int
		one.SetOne()
		if _, overflow := z.AddOverflow(&z, &one); overflow {
			fatal(ErrOverflow, "%s * %s / %s", x, y, d)
		}
	}
	return FixedPoint{n: z}
}

// MulDown returns x * y rounded down.
func (x FixedPoint) MulDown(y FixedPoint) FixedPoint {
	return x.MulDivDown(y, One())
}

// MulUp returns x * y rounded up.
func (x FixedPoint) MulUp(y FixedPoint) FixedPoint {
	return x.MulDivUp(y, One())
}

// DivDown returns x / y rounded down. Fatal on zero divisor.
func (x FixedPoint) DivDown(y FixedPoint) FixedPoint {
	return x.MulDivDown(One(), y)
}

// DivUp returns x / y rounded up. Fatal on zero divisor.
func (x FixedPoint) DivUp(y FixedPoint) FixedPoint {
	return x.MulDivUp(One(), y)
}

// Pow returns x^(y/1e18), computed as exp(y * ln(x) / 1e18). By convention
// x^0 = 1 for all x and 0^y = 0 for y > 0. Fatal when the result exceeds the
// representable range.
func (x FixedPoint) Pow(y FixedPoint) FixedPoint {
	if y.IsZero() {
		return One()
	}
	if x.IsZero() {
		return Zero()
	}
	arg := wadLn(x.Big())
	arg.Mul(arg, y.Big())
	arg.Quo(arg, scaleBig)
	r := wadExp(arg)
	n, overflow := uint256.FromBig(r)
	if overflow {
		fatal(ErrOverflow, "%s ** %s", x, y)
	}
	return FixedPoint{n: *n}
}

// =========================================================================
// Rendering
// =========================================================================

// String renders x with the full 18 decimal places, e.g. FromRawUint64(1) is
// "0.000000000000000001" and FromUint64(1) is "1.000000000000000000".
func (x FixedPoint) String() string {
	var q, r uint256.Int
	q.DivMod(&x.n, scale, &r)
	return fmt.Sprintf("%s.%018s", q.Dec(), r.Dec())
}

// MarshalText renders x as a decimal string so the boundary encoding never
// loses precision.
func (x FixedPoint) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText parses a decimal or scientific-notation literal.
func (x *FixedPoint) UnmarshalText(text []byte) error {
	v, err := FromString(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

// MarshalJSON renders x as a quoted decimal string.
func (x FixedPoint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + x.String() + `"`), nil
}

// UnmarshalJSON parses a quoted decimal or scientific-notation literal.
func (x *FixedPoint) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidLiteral, data)
	}
	return x.UnmarshalText(data[1 : len(data)-1])
}
