// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package yieldspace implements the stateless bonding-curve invariant used to
// price swaps between pool shares and bonds. Every function is a pure
// function of a reserve snapshot and a time-stretch parameter; trades return
// deltas and never mutate the snapshot. Rounding directions are chosen per
// call site so that every trade biases the pool in its own favor: amounts the
// pool pays out round down, amounts the pool requires in round up.
package yieldspace

import (
	"errors"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

var (
	// ErrInsufficientLiquidity is returned when a trade would push the
	// reserves outside the curve's valid domain, e.g. negative share or bond
	// reserves. The curve never saturates silently.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for trade")
)

// Curve is the 4-tuple reserve state the invariant operates on. SharePrice c
// is the current price of a vault share in base; InitialSharePrice mu
// normalizes share reserves to their initial deposit value. The zero value is
// not a valid curve.
type Curve struct {
	ShareReserves     fixedpoint.FixedPoint // z
	BondReserves      fixedpoint.FixedPoint // y
	SharePrice        fixedpoint.FixedPoint // c
	InitialSharePrice fixedpoint.FixedPoint // mu
}

// K computes the conserved invariant
//
//	k(t) = (c/mu) * (mu*z)^(1-t) + y^(1-t)
//
// rounded down.
func (c Curve) K(t fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return c.kDown(t)
}

func (c Curve) kDown(t fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	oneMinusT := fixedpoint.One().Sub(t)
	curveTerm := c.SharePrice.MulDivDown(
		c.InitialSharePrice.MulDown(c.ShareReserves).Pow(oneMinusT),
		c.InitialSharePrice,
	)
	return curveTerm.Add(c.BondReserves.Pow(oneMinusT))
}

func (c Curve) kUp(t fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	oneMinusT := fixedpoint.One().Sub(t)
	curveTerm := c.SharePrice.MulDivUp(
		c.InitialSharePrice.MulUp(c.ShareReserves).Pow(oneMinusT),
		c.InitialSharePrice,
	)
	return curveTerm.Add(c.BondReserves.Pow(oneMinusT))
}

// SpotPrice returns the instantaneous exchange rate implied by the reserves,
//
//	p(t) = (mu*z / y)^t
//
// rounded down.
func (c Curve) SpotPrice(t fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return c.InitialSharePrice.MulDivDown(c.ShareReserves, c.BondReserves).Pow(t)
}

// =========================================================================
// Trades
// =========================================================================

// BondsOutGivenSharesIn prices a shares-in/bonds-out trade: the bonds the
// pool pays out for sharesIn, rounded down.
func (c Curve) BondsOutGivenSharesIn(sharesIn, t fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	oneMinusT := fixedpoint.One().Sub(t)
	k := c.kUp(t)

	// New bond reserves solve k = (c/mu)*(mu*(z+dz))^(1-t) + y'^(1-t).
	// y' is rounded up so the payout y - y' rounds down.
	curveTerm := c.SharePrice.MulDivDown(
		c.InitialSharePrice.MulDown(c.ShareReserves.Add(sharesIn)).Pow(oneMinusT),
		c.InitialSharePrice,
	)
	if k.Lt(curveTerm) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	newBonds := k.Sub(curveTerm).Pow(fixedpoint.One().DivUp(oneMinusT))
	if newBonds.Gt(c.BondReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	return c.BondReserves.Sub(newBonds), nil
}

// SharesOutGivenBondsIn prices a bonds-in/shares-out trade: the shares the
// pool pays out for bondsIn, rounded down.
func (c Curve) SharesOutGivenBondsIn(bondsIn, t fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	newShares, err := c.sharesGivenBonds(c.BondReserves.Add(bondsIn), t, true)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if newShares.Gt(c.ShareReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	return c.ShareReserves.Sub(newShares), nil
}

// SharesOutGivenBondsInUp is the conservative-accounting mirror of
// SharesOutGivenBondsIn: the payout is rounded up instead of down. Used by
// present-value accounting, which must overestimate the value removed by
// closing net long positions.
func (c Curve) SharesOutGivenBondsInUp(bondsIn, t fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	newShares, err := c.sharesGivenBonds(c.BondReserves.Add(bondsIn), t, false)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if newShares.Gt(c.ShareReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	return c.ShareReserves.Sub(newShares), nil
}

// SharesInGivenBondsOut prices a shares-in/bonds-out trade from the output
// side: the shares the pool requires for bondsOut, rounded up.
func (c Curve) SharesInGivenBondsOut(bondsOut, t fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	if bondsOut.Gte(c.BondReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	newShares, err := c.sharesGivenBonds(c.BondReserves.Sub(bondsOut), t, true)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if newShares.Lt(c.ShareReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	return newShares.Sub(c.ShareReserves), nil
}

// SharesInGivenBondsOutDown is the conservative-accounting mirror of
// SharesInGivenBondsOut, rounding the proceeds down. Used by present-value
// accounting, which must underestimate the value received by closing net
// short positions.
func (c Curve) SharesInGivenBondsOutDown(bondsOut, t fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	if bondsOut.Gte(c.BondReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	newShares, err := c.sharesGivenBonds(c.BondReserves.Sub(bondsOut), t, false)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if newShares.Lt(c.ShareReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	return newShares.Sub(c.ShareReserves), nil
}

// sharesGivenBonds solves the invariant for the share reserves implied by the
// given bond reserves:
//
//	z' = (1/mu) * ((k - y'^(1-t)) * (mu/c))^(1/(1-t))
//
// roundUp selects whether z' is biased up (pool-favoring for trades that pay
// shares out or charge shares in) or down (the conservative mirror).
func (c Curve) sharesGivenBonds(newBonds, t fixedpoint.FixedPoint, roundUp bool) (fixedpoint.FixedPoint, error) {
	oneMinusT := fixedpoint.One().Sub(t)
	bondTerm := newBonds.Pow(oneMinusT)
	if roundUp {
		k := c.kUp(t)
		if k.Lt(bondTerm) {
			return fixedpoint.Zero(), ErrInsufficientLiquidity
		}
		inner := k.Sub(bondTerm).MulDivUp(c.InitialSharePrice, c.SharePrice)
		return inner.Pow(fixedpoint.One().DivUp(oneMinusT)).DivUp(c.InitialSharePrice), nil
	}
	k := c.kDown(t)
	if k.Lt(bondTerm) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	inner := k.Sub(bondTerm).MulDivDown(c.InitialSharePrice, c.SharePrice)
	return inner.Pow(fixedpoint.One().DivDown(oneMinusT)).DivDown(c.InitialSharePrice), nil
}

// BondsInGivenSharesOut prices a bonds-in/shares-out trade from the output
// side: the bonds the pool requires for sharesOut, rounded up.
func (c Curve) BondsInGivenSharesOut(sharesOut, t fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	if sharesOut.Gte(c.ShareReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	oneMinusT := fixedpoint.One().Sub(t)
	k := c.kUp(t)
	curveTerm := c.SharePrice.MulDivDown(
		c.InitialSharePrice.MulDown(c.ShareReserves.Sub(sharesOut)).Pow(oneMinusT),
		c.InitialSharePrice,
	)
	if k.Lt(curveTerm) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	newBonds := k.Sub(curveTerm).Pow(fixedpoint.One().DivUp(oneMinusT))
	if newBonds.Lt(c.BondReserves) {
		return fixedpoint.Zero(), ErrInsufficientLiquidity
	}
	return newBonds.Sub(c.BondReserves), nil
}

// MaxBuy returns the trade (sharesIn, bondsOut) that pushes the spot price to
// exactly one, the curve's edge of validity. Beyond it the curve would imply
// negative interest. Both deltas are rounded down; a pool already at the edge
// returns zero deltas.
func (c Curve) MaxBuy(t fixedpoint.FixedPoint) (sharesIn, bondsOut fixedpoint.FixedPoint) {
	oneMinusT := fixedpoint.One().Sub(t)

	// At spot price one, mu*z' = y', so
	// k = (c/mu + 1) * (mu*z')^(1-t).
	k := c.kDown(t)
	priceFactor := c.SharePrice.DivUp(c.InitialSharePrice).Add(fixedpoint.One())
	optimal := k.DivDown(priceFactor).Pow(fixedpoint.One().DivDown(oneMinusT))

	newShares := optimal.DivDown(c.InitialSharePrice)
	if newShares.Gt(c.ShareReserves) {
		sharesIn = newShares.Sub(c.ShareReserves)
	}
	if c.BondReserves.Gt(optimal) {
		bondsOut = c.BondReserves.Sub(optimal)
	}
	return sharesIn, bondsOut
}
