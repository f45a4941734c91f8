// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hyperdrive

import (
	"fmt"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

// ====== Present value ======

// PresentValue is the current worth, in shares, of the liquidity providers'
// capital: the effective share reserves plus the value of unwinding every
// open position, minus the minimum reserve buffer. Long impact rounds up and
// short impact rounds down so the result always underestimates the value
// removable by closing all positions. A negative present value is an
// unbacked liability and panics.
func (s *State) PresentValue(timestamp uint64) fixedpoint.FixedPoint {
	pv := fixedpoint.SignedFromFixed(s.EffectiveShareReserves()).
		Add(s.netCurveTrade(timestamp)).
		Add(s.netFlatTrade(timestamp)).
		Sub(fixedpoint.SignedFromFixed(s.Config.MinimumShareReserves))
	if pv.IsNegative() {
		panic(fmt.Errorf("%w: %s", ErrNegativePresentValue, pv))
	}
	return pv.Fixed()
}

// netCurveTrade values the curve-tradeable slice of the open positions: the
// share flow from closing the net position's unmatured portion against the
// curve. Net longs sell bonds to the pool (shares flow out, overestimated);
// net shorts buy bonds back (shares flow in, underestimated).
func (s *State) netCurveTrade(timestamp uint64) fixedpoint.Signed {
	t := s.Config.TimeStretch
	c := s.Info.VaultSharePrice
	longTime := s.timeRemaining(s.Info.LongAverageMaturityTime, timestamp)
	shortTime := s.timeRemaining(s.Info.ShortAverageMaturityTime, timestamp)

	net := fixedpoint.SignedSub(
		s.Info.LongsOutstanding.MulUp(longTime),
		s.Info.ShortsOutstanding.MulDown(shortTime),
	)
	cv := s.curve()
	switch {
	case net.Sign() > 0:
		out, err := cv.SharesOutGivenBondsInUp(net.Abs(), t)
		if err != nil {
			// The net long position exceeds what the curve can absorb;
			// everything above the reserve floor is removable.
			out = fixedpoint.Zero()
			ze := s.EffectiveShareReserves()
			if ze.Gt(s.Config.MinimumShareReserves) {
				out = ze.Sub(s.Config.MinimumShareReserves)
			}
		}
		return fixedpoint.SignedFromFixed(out).Neg()
	case net.Sign() < 0:
		bonds := net.Abs()
		maxShares, maxBonds := cv.MaxBuy(t)
		if bonds.Lte(maxBonds) {
			in, err := cv.SharesInGivenBondsOutDown(bonds, t)
			if err != nil {
				return fixedpoint.SignedZero()
			}
			return fixedpoint.SignedFromFixed(in)
		}
		// Bonds beyond the curve's maximum close at a price of 1.
		excess := bonds.Sub(maxBonds).DivDown(c)
		return fixedpoint.SignedFromFixed(maxShares.Add(excess))
	default:
		return fixedpoint.SignedZero()
	}
}

// netFlatTrade values the matured slice: each side's positions settle one
// for one in base, prorated by the time already elapsed.
func (s *State) netFlatTrade(timestamp uint64) fixedpoint.Signed {
	c := s.Info.VaultSharePrice
	one := fixedpoint.One()
	longTime := s.timeRemaining(s.Info.LongAverageMaturityTime, timestamp)
	shortTime := s.timeRemaining(s.Info.ShortAverageMaturityTime, timestamp)
	return fixedpoint.SignedSub(
		s.Info.ShortsOutstanding.MulDivDown(one.Sub(shortTime), c),
		s.Info.LongsOutstanding.MulDivUp(one.Sub(longTime), c),
	)
}

// ====== Adding liquidity ======

// AddLiquidity computes the LP shares minted for a base contribution: the
// present-value increase of a hypothetical reserve update, scaled by the
// outstanding LP supply. bounds, when non-nil, rejects the trade if the spot
// APR has slipped outside [Min, Max]. All failures here are recoverable
// validation errors.
func (s *State) AddLiquidity(contribution fixedpoint.FixedPoint, bounds *APRBounds, timestamp uint64) (fixedpoint.FixedPoint, error) {
	if contribution.Lt(s.Config.MinimumTransactionAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s < %s",
			ErrMinimumContribution, contribution, s.Config.MinimumTransactionAmount)
	}
	if bounds != nil {
		apr := s.SpotAPR()
		if apr.Lt(bounds.Min) || apr.Gt(bounds.Max) {
			return fixedpoint.Zero(), fmt.Errorf("%w: apr %s outside [%s, %s]",
				ErrAPRSlippage, apr, bounds.Min, bounds.Max)
		}
	}

	before := s.PresentValue(timestamp)
	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.
		Add(contribution.DivDown(s.Info.VaultSharePrice))
	updated := after.PresentValue(timestamp)
	if updated.Lte(before) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s -> %s", ErrPresentValueDecreased, before, updated)
	}

	lpShares := updated.Sub(before).MulDivDown(s.Info.LPTotalSupply, before)
	if lpShares.Lt(s.Config.MinimumTransactionAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s < %s",
			ErrMinimumMint, lpShares, s.Config.MinimumTransactionAmount)
	}
	return lpShares, nil
}
