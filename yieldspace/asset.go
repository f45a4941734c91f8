// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package yieldspace

import (
	"fmt"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

// Kind discriminates the two sides of a trade.
type Kind uint8

const (
	KindShares Kind = iota
	KindBonds
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindShares:
		return "shares"
	case KindBonds:
		return "bonds"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Asset is a closed sum over the two tradeable quantities, letting the
// generic amount-in/amount-out entry points be polymorphic over which side of
// the trade is specified. The discriminant is dispatched once at the API
// boundary.
type Asset struct {
	Kind   Kind
	Amount fixedpoint.FixedPoint
}

// Shares tags an amount as pool shares.
func Shares(amount fixedpoint.FixedPoint) Asset {
	return Asset{Kind: KindShares, Amount: amount}
}

// Bonds tags an amount as bonds.
func Bonds(amount fixedpoint.FixedPoint) Asset {
	return Asset{Kind: KindBonds, Amount: amount}
}

// OutGivenIn prices a trade specified by its input side and returns the
// opposite side's output, rounded down.
func (c Curve) OutGivenIn(in Asset, t fixedpoint.FixedPoint) (Asset, error) {
	switch in.Kind {
	case KindShares:
		out, err := c.BondsOutGivenSharesIn(in.Amount, t)
		return Bonds(out), err
	case KindBonds:
		out, err := c.SharesOutGivenBondsIn(in.Amount, t)
		return Shares(out), err
	default:
		return Asset{}, fmt.Errorf("unknown asset kind %d", in.Kind)
	}
}

// InGivenOut prices a trade specified by its output side and returns the
// opposite side's required input, rounded up.
func (c Curve) InGivenOut(out Asset, t fixedpoint.FixedPoint) (Asset, error) {
	switch out.Kind {
	case KindShares:
		in, err := c.BondsInGivenSharesOut(out.Amount, t)
		return Bonds(in), err
	case KindBonds:
		in, err := c.SharesInGivenBondsOut(out.Amount, t)
		return Shares(in), err
	default:
		return Asset{}, fmt.Errorf("unknown asset kind %d", out.Kind)
	}
}
