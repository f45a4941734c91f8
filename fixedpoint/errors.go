// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixedpoint

import (
	"errors"
	"fmt"
)

// Fatal arithmetic conditions. These indicate a broken numerical model, not
// rejectable user input, and are raised via panic so that money accounting can
// never continue on a silently wrapped value. Callers that need to treat a
// whole computation as fallible can recover at the boundary and inspect the
// wrapped sentinel with errors.Is.
var (
	ErrOverflow       = errors.New("fixed point overflow")
	ErrUnderflow      = errors.New("fixed point underflow")
	ErrDivisionByZero = errors.New("fixed point division by zero")
	ErrNegativeValue  = errors.New("negative value not representable as unsigned fixed point")
	ErrLnDomain       = errors.New("ln undefined for non-positive input")
	ErrExpOverflow    = errors.New("exp input above representable range")
)

// Recoverable parse conditions. Literal parsing is an input-validation path,
// so these are returned, never panicked.
var (
	ErrInvalidLiteral   = errors.New("invalid fixed point literal")
	ErrExponentTooSmall = errors.New("exponent too small for fractional digits")
	ErrLiteralOverflow  = errors.New("fixed point literal exceeds 256 bits")
)

// fatal raises a fatal arithmetic condition wrapping the given sentinel.
func fatal(sentinel error, format string, args ...any) {
	panic(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}
