// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hyperdrive

import (
	"fmt"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

// ====== Opening longs ======

// OpenLong prices a long: the bonds a trader receives for baseAmount of base
// after the curve fee. It fails when the trade is below the protocol minimum
// or when it would push the spot price above 1.
func (s *State) OpenLong(baseAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	if baseAmount.Lt(s.Config.MinimumTransactionAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s < %s",
			ErrMinimumTransaction, baseAmount, s.Config.MinimumTransactionAmount)
	}
	bondAmount, err := s.longAmount(baseAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if _, err := s.SpotPriceAfterLong(baseAmount); err != nil {
		return fixedpoint.Zero(), err
	}
	return bondAmount, nil
}

// longAmount prices the trade without the minimum-size or price guards; the
// sizing solvers call it on candidate amounts of any size.
func (s *State) longAmount(baseAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	shareAmount := baseAmount.DivDown(s.Info.VaultSharePrice)
	raw, err := s.curve().BondsOutGivenSharesIn(shareAmount, s.Config.TimeStretch)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	fee := s.openLongCurveFee(baseAmount)
	if raw.Lt(fee) {
		return fixedpoint.Zero(), fmt.Errorf("%w: curve fee exceeds proceeds", ErrNegativeInterest)
	}
	return raw.Sub(fee), nil
}

// openLongCurveFee is the bond-denominated fee on a long open,
// phi_c * (1/p - 1) * baseAmount, rounded against the trader.
func (s *State) openLongCurveFee(baseAmount fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	p := s.SpotPrice()
	return s.Config.Fees.Curve.
		MulUp(fixedpoint.One().DivUp(p).Sub(fixedpoint.One())).
		MulUp(baseAmount)
}

// openLongGovernanceFee is the base-denominated governance skim of the curve
// fee, rounded in the pool's favor.
func (s *State) openLongGovernanceFee(baseAmount fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return s.openLongCurveFee(baseAmount).
		MulDown(s.Config.Fees.GovernanceLP).
		MulDown(s.SpotPrice())
}

// SpotPriceAfterLong returns the spot price the pool would quote after the
// long settles. ErrNegativeInterest when the post-trade price would exceed 1.
func (s *State) SpotPriceAfterLong(baseAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	bondAmount, err := s.longAmount(baseAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	c := s.Info.VaultSharePrice
	mu := s.Config.InitialVaultSharePrice
	govShares := s.openLongGovernanceFee(baseAmount).DivDown(c)
	newShares := s.EffectiveShareReserves().Add(baseAmount.DivDown(c)).Sub(govShares)
	if s.Info.BondReserves.Lt(bondAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: bond reserves depleted", ErrInsufficientLiquidity)
	}
	newBonds := s.Info.BondReserves.Sub(bondAmount)
	if mu.MulDown(newShares).Gt(newBonds) {
		return fixedpoint.Zero(), fmt.Errorf("%w: price after long exceeds 1", ErrNegativeInterest)
	}
	after := s.curve()
	after.ShareReserves = newShares
	after.BondReserves = newBonds
	return after.SpotPrice(s.Config.TimeStretch), nil
}

// ====== Sizing ======

// SolvencyAfterLong evaluates the post-trade solvency margin in shares. The
// negative part of checkpointExposure (base-denominated) nets against the
// new long's exposure. A false result means the candidate trade would leave
// the pool insolvent; Newton iteration uses it to find the boundary.
func (s *State) SolvencyAfterLong(baseAmount fixedpoint.FixedPoint, checkpointExposure fixedpoint.Signed) (fixedpoint.FixedPoint, bool) {
	bondAmount, err := s.longAmount(baseAmount)
	if err != nil {
		return fixedpoint.Zero(), false
	}
	c := s.Info.VaultSharePrice
	govShares := s.openLongGovernanceFee(baseAmount).DivDown(c)
	lhs := s.Info.ShareReserves.Add(baseAmount.DivDown(c)).Sub(govShares)
	if checkpointExposure.IsNegative() {
		lhs = lhs.Add(checkpointExposure.Abs().DivDown(c))
	}
	rhs := s.Info.LongExposure.Add(bondAmount).DivDown(c).
		Add(s.Config.MinimumShareReserves)
	if lhs.Lt(rhs) {
		return fixedpoint.Zero(), false
	}
	return lhs.Sub(rhs), true
}

// longSolvencyDerivative is the negated derivative of the solvency margin
// with respect to the base amount, in shares per base. The true derivative
// is negative everywhere the solver iterates, so the negation keeps the
// value representable. False when the candidate leaves the curve's domain or
// the sign assumption fails.
func (s *State) longSolvencyDerivative(baseAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, bool) {
	c := s.Info.VaultSharePrice
	mu := s.Config.InitialVaultSharePrice
	t := s.Config.TimeStretch
	oneMinusT := fixedpoint.One().Sub(t)

	newShares := s.EffectiveShareReserves().Add(baseAmount.DivDown(c))
	cv := s.curve()
	k := cv.K(t)
	curveTerm := c.MulDivDown(mu.MulDown(newShares).Pow(oneMinusT), mu)
	if k.Lte(curveTerm) {
		return fixedpoint.Zero(), false
	}
	// d(raw bonds)/d(base) = (k - (c/mu)(mu z')^(1-t))^(t/(1-t)) / (mu z')^t
	bondDeriv := k.Sub(curveTerm).Pow(t.DivDown(oneMinusT)).
		DivDown(mu.MulDown(newShares).Pow(t))

	p := s.SpotPrice()
	feeDrag := s.Config.Fees.Curve.MulDown(fixedpoint.One().DivDown(p).Sub(fixedpoint.One()))
	govDrag := feeDrag.MulDown(s.Config.Fees.GovernanceLP).MulDown(p)

	inner := bondDeriv.Add(govDrag)
	floor := fixedpoint.One().Add(feeDrag)
	if inner.Lte(floor) {
		return fixedpoint.Zero(), false
	}
	return inner.Sub(floor).DivUp(c), true
}

// maxLongGuess linearizes the solvency margin at the current state to seed
// the Newton iteration. Including the fee in the denominator keeps the guess
// below the true boundary.
func (s *State) maxLongGuess(checkpointExposure fixedpoint.Signed) fixedpoint.FixedPoint {
	lhs := s.Info.ShareReserves
	c := s.Info.VaultSharePrice
	if checkpointExposure.IsNegative() {
		lhs = lhs.Add(checkpointExposure.Abs().DivDown(c))
	}
	rhs := s.Info.LongExposure.DivDown(c).Add(s.Config.MinimumShareReserves)
	if lhs.Lte(rhs) {
		return fixedpoint.Zero()
	}
	margin := lhs.Sub(rhs)

	p := s.SpotPrice()
	denom := fixedpoint.One().DivUp(p).Sub(fixedpoint.One())
	denom = denom.Add(s.Config.Fees.Curve.MulUp(denom))
	if denom.IsZero() {
		return fixedpoint.Zero()
	}
	return margin.MulDivDown(c, denom)
}

// absoluteMaxLong is the curve-only maximum: the trade pushing the spot
// price to exactly 1, ignoring solvency.
func (s *State) absoluteMaxLong() (baseAmount, bondAmount fixedpoint.FixedPoint) {
	sharesIn, bondsOut := s.curve().MaxBuy(s.Config.TimeStretch)
	baseAmount = sharesIn.MulDown(s.Info.VaultSharePrice)
	fee := s.openLongCurveFee(baseAmount)
	if bondsOut.Gt(fee) {
		bondAmount = bondsOut.Sub(fee)
	}
	return baseAmount, bondAmount
}

// MaxLong returns the largest base amount a long can be opened with, bounded
// by the trader's budget and the pool's solvency. When the curve-only
// maximum is already solvent it is the answer; otherwise Newton's method
// walks the solvency margin to its root, keeping the last solvent iterate.
// A result exceeding the budget or failing solvency is a fatal defect, not a
// clamp.
func (s *State) MaxLong(budget fixedpoint.FixedPoint, checkpointExposure fixedpoint.Signed, maxIterations int) (fixedpoint.FixedPoint, error) {
	if budget.Lt(s.Config.MinimumTransactionAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s < %s",
			ErrInsufficientBudget, budget, s.Config.MinimumTransactionAmount)
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	absBase, _ := s.absoluteMaxLong()
	if absBase.IsZero() {
		return fixedpoint.Zero(), nil
	}
	if _, ok := s.SolvencyAfterLong(absBase, checkpointExposure); ok {
		return absBase.Min(budget), nil
	}

	two := fixedpoint.FromUint64(2)
	best := fixedpoint.Zero()
	x := s.maxLongGuess(checkpointExposure).Min(budget)
	for i := 0; i < maxIterations && !x.IsZero(); i++ {
		margin, ok := s.SolvencyAfterLong(x, checkpointExposure)
		if !ok {
			// Overshot the boundary. Halve until back in the solvent
			// region, or stop at the last good iterate.
			if best.IsZero() {
				x = x.DivDown(two)
				continue
			}
			break
		}
		if x.Gt(best) {
			best = x
		}
		deriv, ok := s.longSolvencyDerivative(x)
		if !ok || deriv.IsZero() {
			break
		}
		step := margin.DivDown(deriv)
		if step.IsZero() {
			break
		}
		next := x.Add(step)
		if next.Gte(absBase) {
			break
		}
		next = next.Min(budget)
		if next.Eq(x) {
			break
		}
		x = next
	}
	if best.IsZero() {
		return fixedpoint.Zero(), nil
	}

	if best.Gt(budget) {
		panic(fmt.Errorf("%w: max long %s exceeds budget %s", ErrSolverPostcondition, best, budget))
	}
	if best.Gte(absBase) {
		panic(fmt.Errorf("%w: max long %s at or above curve maximum %s", ErrSolverPostcondition, best, absBase))
	}
	if _, ok := s.SolvencyAfterLong(best, checkpointExposure); !ok {
		panic(fmt.Errorf("%w: max long %s is insolvent", ErrSolverPostcondition, best))
	}
	return best, nil
}
