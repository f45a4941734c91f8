// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Signed is the signed 256-bit companion of FixedPoint, used only where the
// domain is genuinely signed: net exposure deltas, the share adjustment, and
// ln/exp arguments. It is stored as sign and magnitude and bounded to the
// two's-complement int256 range for parity with the on-chain representation.
type Signed struct {
	neg bool // never set when abs is zero
	abs uint256.Int
}

// int256 magnitude bound: 2^255.
var signedBound = func() *uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), 255)
	return &v
}()

// SignedZero returns signed 0.0.
func SignedZero() Signed { return Signed{} }

// SignedFromFixed converts an unsigned value to its signed representation.
// Fatal when the magnitude exceeds the int256 range.
func SignedFromFixed(x FixedPoint) Signed {
	if x.n.Gt(signedBound) {
		fatal(ErrOverflow, "signed conversion of %s", x)
	}
	return Signed{abs: x.n}
}

// SignedFromBig converts a raw 1e18-scaled big integer. Returns an error when
// the value is outside the int256 range.
func SignedFromBig(v *big.Int) (Signed, error) {
	abs := new(big.Int).Abs(v)
	mag, overflow := uint256.FromBig(abs)
	if overflow || mag.Gt(signedBound) {
		return Signed{}, fmt.Errorf("%w: %s", ErrOverflow, v)
	}
	return Signed{neg: v.Sign() < 0 && !mag.IsZero(), abs: *mag}, nil
}

// SignedSub returns a - b as a signed value, the only subtraction in the
// engine that is allowed to go negative.
func SignedSub(a, b FixedPoint) Signed {
	if a.Gte(b) {
		return SignedFromFixed(a.Sub(b))
	}
	return Signed{neg: true, abs: b.Sub(a).n}
}

// Sign returns -1, 0, or 1.
func (x Signed) Sign() int {
	if x.abs.IsZero() {
		return 0
	}
	if x.neg {
		return -1
	}
	return 1
}

// IsNegative returns true if x < 0.
func (x Signed) IsNegative() bool { return x.neg }

// Neg returns -x.
func (x Signed) Neg() Signed {
	if x.abs.IsZero() {
		return x
	}
	return Signed{neg: !x.neg, abs: x.abs}
}

// Abs returns the magnitude of x as an unsigned value.
func (x Signed) Abs() FixedPoint { return FixedPoint{n: x.abs} }

// Fixed converts x back to the unsigned type. Fatal when x is negative; the
// unsigned type cannot represent it and continuing would corrupt accounting.
func (x Signed) Fixed() FixedPoint {
	if x.neg {
		fatal(ErrNegativeValue, "%s", x)
	}
	return FixedPoint{n: x.abs}
}

// Add returns x + y. Fatal when the result leaves the int256 range.
func (x Signed) Add(y Signed) Signed {
	if x.neg == y.neg {
		sum := x.Abs().Add(y.Abs())
		if sum.n.Gt(signedBound) {
			fatal(ErrOverflow, "%s + %s", x, y)
		}
		return Signed{neg: x.neg && !sum.IsZero(), abs: sum.n}
	}
	if x.neg {
		return SignedSub(y.Abs(), x.Abs())
	}
	return SignedSub(x.Abs(), y.Abs())
}

// Sub returns x - y.
func (x Signed) Sub(y Signed) Signed { return x.Add(y.Neg()) }

// Cmp returns -1, 0, or 1 depending on whether x is less than, equal to, or
// greater than y.
func (x Signed) Cmp(y Signed) int {
	xs, ys := x.Sign(), y.Sign()
	switch {
	case xs < ys:
		return -1
	case xs > ys:
		return 1
	case xs == 0:
		return 0
	case xs > 0:
		return x.abs.Cmp(&y.abs)
	default:
		return y.abs.Cmp(&x.abs)
	}
}

// Big returns the raw 1e18-scaled value as a big integer.
func (x Signed) Big() *big.Int {
	v := x.abs.ToBig()
	if x.neg {
		v.Neg(v)
	}
	return v
}

// Exp returns e^(x/1e18). Values below roughly -42e18 return zero; values at
// or above roughly 135.3e18 are fatal because the true result does not fit in
// 256 bits.
func (x Signed) Exp() Signed {
	r, err := SignedFromBig(wadExp(x.Big()))
	if err != nil {
		fatal(ErrOverflow, "exp(%s)", x)
	}
	return r
}

// Ln returns ln(x/1e18) * 1e18. Fatal for non-positive input.
func (x Signed) Ln() Signed {
	if x.Sign() <= 0 {
		fatal(ErrLnDomain, "ln(%s)", x)
	}
	r, err := SignedFromBig(wadLn(x.Big()))
	if err != nil {
		fatal(ErrOverflow, "ln(%s)", x)
	}
	return r
}

// String renders x with the full 18 decimal places and a leading minus for
// negative values.
func (x Signed) String() string {
	if x.neg {
		return "-" + x.Abs().String()
	}
	return x.Abs().String()
}

// MarshalText renders x as a decimal string.
func (x Signed) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText parses a decimal or scientific-notation literal with an
// optional leading minus.
func (x *Signed) UnmarshalText(text []byte) error {
	v, err := SignedFromString(string(text))
	if err != nil {
		return err
	}
	*x = v
	return nil
}

// MarshalJSON renders x as a quoted decimal string.
func (x Signed) MarshalJSON() ([]byte, error) {
	return []byte(`"` + x.String() + `"`), nil
}

// UnmarshalJSON parses a quoted signed decimal literal.
func (x *Signed) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidLiteral, data)
	}
	return x.UnmarshalText(data[1 : len(data)-1])
}
