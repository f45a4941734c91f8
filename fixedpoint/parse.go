// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// FromString parses a decimal or scientific-notation literal into an unsigned
// fixed-point value. The accepted grammar is digits[.digits][e[-]digits];
// anything else is rejected. Parsing fails when the literal has more
// fractional precision than the effective scale can hold, e.g. "1.5e-18".
func FromString(s string) (FixedPoint, error) {
	v, neg, err := parseLiteral(s, false)
	if err != nil {
		return FixedPoint{}, err
	}
	if neg {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrNegativeValue, s)
	}
	if v.BitLen() > 256 {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrLiteralOverflow, s)
	}
	return FromBig(v)
}

// MustFromString is FromString for literals known good at compile time, used
// to write readable constants in source and tests.
func MustFromString(s string) FixedPoint {
	v, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// SignedFromString parses a literal with an optional leading minus sign.
func SignedFromString(s string) (Signed, error) {
	v, neg, err := parseLiteral(s, true)
	if err != nil {
		return Signed{}, err
	}
	if neg {
		v.Neg(v)
	}
	return SignedFromBig(v)
}

// MustSignedFromString is SignedFromString for known-good literals.
func MustSignedFromString(s string) Signed {
	v, err := SignedFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseLiteral returns the raw 1e18-scaled magnitude of the literal and
// whether it carried a minus sign.
func parseLiteral(s string, allowSign bool) (*big.Int, bool, error) {
	if s == "" {
		return nil, false, fmt.Errorf("%w: empty literal", ErrInvalidLiteral)
	}

	rest := s
	neg := false
	if rest[0] == '-' {
		if !allowSign {
			return nil, false, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
		}
		neg = true
		rest = rest[1:]
	}

	// Split off the exponent first so the mantissa split below only sees
	// digits and a decimal point.
	exp := 0
	if i := strings.IndexAny(rest, "eE"); i >= 0 {
		e, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			return nil, false, fmt.Errorf("%w: bad exponent in %q", ErrInvalidLiteral, s)
		}
		exp = e
		rest = rest[:i]
	}

	intPart := rest
	fracPart := ""
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		intPart, fracPart = rest[:i], rest[i+1:]
	}
	if intPart == "" || !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}

	// The mantissa digits are scaled by 10^(18 + exp - len(frac)). A negative
	// effective scale would drop fractional digits, which is an error rather
	// than a silent truncation.
	effScale := Decimals + exp - len(fracPart)
	if effScale < 0 {
		return nil, false, fmt.Errorf("%w: %q", ErrExponentTooSmall, s)
	}

	mantissa, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(effScale)), nil)
	mantissa.Mul(mantissa, pow)
	return mantissa, neg, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
