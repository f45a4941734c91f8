// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hyperdrive

import (
	"fmt"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

// ====== Opening shorts ======

// OpenShort prices a short: the base deposit a trader must post to short
// bondAmount of bonds. openVaultSharePrice is the vault share price at the
// start of the containing checkpoint; zero means the current price.
func (s *State) OpenShort(bondAmount, openVaultSharePrice fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	if bondAmount.Lt(s.Config.MinimumTransactionAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s < %s",
			ErrMinimumTransaction, bondAmount, s.Config.MinimumTransactionAmount)
	}
	deposit, err := s.ShortDeposit(bondAmount, s.SpotPrice(), openVaultSharePrice)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	principal, err := s.shortPrincipal(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if s.EffectiveShareReserves().Lt(principal.Add(s.Config.MinimumShareReserves)) {
		return fixedpoint.Zero(), fmt.Errorf("%w: short drains reserves below minimum", ErrInsufficientLiquidity)
	}
	return deposit, nil
}

// ShortDeposit computes the base a short seller posts: the bond face paid at
// the checkpoint's open price plus the flat and curve fees, minus the
// proceeds of selling the bonds to the pool. Fees are added before the
// proceeds are subtracted so a small deposit cannot transiently underflow.
func (s *State) ShortDeposit(bondAmount, spotPrice, openVaultSharePrice fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	c := s.Info.VaultSharePrice
	if openVaultSharePrice.IsZero() {
		openVaultSharePrice = c
	}
	principal, err := s.shortPrincipal(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	proceeds := principal.MulDown(c)

	deposit := bondAmount.MulDivUp(c, openVaultSharePrice)
	deposit = deposit.Add(s.shortFlatFee(bondAmount))
	deposit = deposit.Add(s.shortCurveFee(bondAmount, spotPrice))
	if deposit.Lt(proceeds) {
		return fixedpoint.Zero(), fmt.Errorf("%w: proceeds exceed deposit", ErrNegativeInterest)
	}
	return deposit.Sub(proceeds), nil
}

// shortPrincipal is the shares the pool pays for the shorted bonds.
func (s *State) shortPrincipal(bondAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	return s.curve().SharesOutGivenBondsIn(bondAmount, s.Config.TimeStretch)
}

// shortPrincipalDerivative is d(principal)/d(bondAmount) in shares per bond,
//
//	(1/c) * ((mu/c)(k - (y+dy)^(1-t)))^(t/(1-t)) * (y+dy)^(-t)
//
// valid while the candidate stays inside the curve's domain.
func (s *State) shortPrincipalDerivative(bondAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	c := s.Info.VaultSharePrice
	mu := s.Config.InitialVaultSharePrice
	t := s.Config.TimeStretch
	oneMinusT := fixedpoint.One().Sub(t)

	newBonds := s.Info.BondReserves.Add(bondAmount)
	bondTerm := newBonds.Pow(oneMinusT)
	k := s.curve().K(t)
	if k.Lt(bondTerm) {
		return fixedpoint.Zero(), fmt.Errorf("%w: short exceeds curve domain", ErrInsufficientLiquidity)
	}
	inner := k.Sub(bondTerm).MulDivDown(mu, c)
	return inner.Pow(t.DivDown(oneMinusT)).
		DivDown(newBonds.Pow(t)).
		DivDown(c), nil
}

// shortFlatFee is the base-denominated fee on the time-decayed portion.
func (s *State) shortFlatFee(bondAmount fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return bondAmount.MulUp(s.Config.Fees.Flat)
}

// shortCurveFee is the base-denominated fee on the price-sensitive portion,
// phi_c * (1 - p) * bondAmount.
func (s *State) shortCurveFee(bondAmount, spotPrice fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return s.Config.Fees.Curve.
		MulUp(fixedpoint.One().Sub(spotPrice)).
		MulUp(bondAmount)
}

// SpotPriceAfterShort returns the spot price the pool would quote after the
// short settles. The pool retains the non-governance slice of the curve fee.
func (s *State) SpotPriceAfterShort(bondAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	newShares, err := s.shareReservesAfterShort(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	after := s.curve()
	after.ShareReserves = newShares
	after.BondReserves = s.Info.BondReserves.Add(bondAmount)
	return after.SpotPrice(s.Config.TimeStretch), nil
}

// shareReservesAfterShort applies a candidate short to the effective share
// reserves, additions before subtractions.
func (s *State) shareReservesAfterShort(bondAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, error) {
	principal, err := s.shortPrincipal(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	c := s.Info.VaultSharePrice
	curveFeeShares := s.shortCurveFee(bondAmount, s.SpotPrice()).DivDown(c)
	govShares := curveFeeShares.MulDown(s.Config.Fees.GovernanceLP)
	newShares := s.EffectiveShareReserves().Add(curveFeeShares)
	out := principal.Add(govShares)
	if newShares.Lt(out) {
		return fixedpoint.Zero(), fmt.Errorf("%w: short drains share reserves", ErrInsufficientLiquidity)
	}
	return newShares.Sub(out), nil
}

// ====== Sizing ======

// effectiveShortExposure nets the positive part of the checkpoint exposure
// (base-denominated) against the pool's long exposure: longs opened in the
// current checkpoint make room for shorts against them.
func (s *State) effectiveShortExposure(checkpointExposure fixedpoint.Signed) fixedpoint.FixedPoint {
	exposure := s.Info.LongExposure
	if checkpointExposure.Sign() > 0 {
		credit := checkpointExposure.Abs()
		if credit.Gte(exposure) {
			return fixedpoint.Zero()
		}
		exposure = exposure.Sub(credit)
	}
	return exposure
}

// SolvencyAfterShort evaluates the post-trade solvency margin in shares, or
// false when the candidate short would leave the pool insolvent.
func (s *State) SolvencyAfterShort(bondAmount fixedpoint.FixedPoint, checkpointExposure fixedpoint.Signed) (fixedpoint.FixedPoint, bool) {
	newShares, err := s.shareReservesAfterShort(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), false
	}
	rhs := s.effectiveShortExposure(checkpointExposure).
		DivDown(s.Info.VaultSharePrice).
		Add(s.Config.MinimumShareReserves)
	if newShares.Lt(rhs) {
		return fixedpoint.Zero(), false
	}
	return newShares.Sub(rhs), true
}

// shortSolvencyDerivative is the negated derivative of the solvency margin
// with respect to the bond amount, in shares per bond. False when the fee
// credit dominates, which flips the sign assumption.
func (s *State) shortSolvencyDerivative(bondAmount fixedpoint.FixedPoint) (fixedpoint.FixedPoint, bool) {
	principalDeriv, err := s.shortPrincipalDerivative(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), false
	}
	p := s.SpotPrice()
	feeCredit := s.Config.Fees.Curve.
		MulDown(fixedpoint.One().Sub(p)).
		MulDown(fixedpoint.One().Sub(s.Config.Fees.GovernanceLP)).
		DivDown(s.Info.VaultSharePrice)
	if principalDeriv.Lte(feeCredit) {
		return fixedpoint.Zero(), false
	}
	return principalDeriv.Sub(feeCredit), true
}

// absoluteMaxShort solves the closed form for the short that drives the
// share reserves exactly to the solvency floor: set the target reserves
// z* = z_min + exposure/c and read the bond reserves off the invariant.
func (s *State) absoluteMaxShort(checkpointExposure fixedpoint.Signed) fixedpoint.FixedPoint {
	c := s.Info.VaultSharePrice
	mu := s.Config.InitialVaultSharePrice
	t := s.Config.TimeStretch
	oneMinusT := fixedpoint.One().Sub(t)

	target := s.Config.MinimumShareReserves.
		Add(s.effectiveShortExposure(checkpointExposure).DivDown(c))
	effTarget := fixedpoint.SignedFromFixed(target).Sub(s.Info.ShareAdjustment)
	if effTarget.IsNegative() {
		return fixedpoint.Zero()
	}
	k := s.curve().K(t)
	curveTerm := c.MulDivDown(mu.MulDown(effTarget.Fixed()).Pow(oneMinusT), mu)
	if k.Lte(curveTerm) {
		return fixedpoint.Zero()
	}
	maxBonds := k.Sub(curveTerm).Pow(fixedpoint.One().DivDown(oneMinusT))
	if maxBonds.Lte(s.Info.BondReserves) {
		return fixedpoint.Zero()
	}
	return maxBonds.Sub(s.Info.BondReserves)
}

// maxShortGuess seeds the budget-phase Newton iteration from a worst-case
// cost per bond: face at the open price plus both fees. A caller-supplied
// conservative price lower bound tightens the guess by crediting the sale
// proceeds the short collects per bond.
func (s *State) maxShortGuess(budget, spotPrice, openVaultSharePrice fixedpoint.FixedPoint, conservativePrice *fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	perBond := s.Info.VaultSharePrice.DivUp(openVaultSharePrice).
		Add(s.Config.Fees.Flat).
		Add(s.Config.Fees.Curve.MulUp(fixedpoint.One().Sub(spotPrice)))
	if conservativePrice != nil && perBond.Gt(*conservativePrice) {
		perBond = perBond.Sub(*conservativePrice)
	}
	if perBond.IsZero() {
		return fixedpoint.Zero()
	}
	return budget.DivDown(perBond)
}

// MaxShort returns the largest bond amount a short can be opened with,
// bounded by the trader's budget and the pool's solvency. Phase one finds
// the solvency-bounded maximum: the closed form when it is solvent, Newton
// on the solvency margin otherwise. Phase two walks the deposit toward the
// budget. Postcondition violations are fatal.
func (s *State) MaxShort(budget, openVaultSharePrice fixedpoint.FixedPoint, checkpointExposure fixedpoint.Signed, conservativePrice *fixedpoint.FixedPoint, maxIterations int) (fixedpoint.FixedPoint, error) {
	if budget.Lt(s.Config.MinimumTransactionAmount) {
		return fixedpoint.Zero(), fmt.Errorf("%w: %s < %s",
			ErrInsufficientBudget, budget, s.Config.MinimumTransactionAmount)
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if openVaultSharePrice.IsZero() {
		openVaultSharePrice = s.Info.VaultSharePrice
	}
	spot := s.SpotPrice()
	two := fixedpoint.FromUint64(2)

	absBonds := s.absoluteMaxShort(checkpointExposure)
	if absBonds.IsZero() {
		return fixedpoint.Zero(), nil
	}
	if _, ok := s.SolvencyAfterShort(absBonds, checkpointExposure); !ok {
		// The closed form ignores the fee retention and carries the pow
		// approximation error, so it can land past the true boundary. Back
		// off geometrically first; when it overshoots only by rounding this
		// recovers a near-maximal solvent seed.
		backoff := fixedpoint.MustFromString("0.999999")
		seed := absBonds
		for i := 0; i < maxIterations; i++ {
			seed = seed.MulDown(backoff)
			if _, ok := s.SolvencyAfterShort(seed, checkpointExposure); ok {
				break
			}
		}
		x := seed
		if _, ok := s.SolvencyAfterShort(x, checkpointExposure); !ok {
			// Genuinely insolvent region: restart Newton from below.
			margin, ok := s.SolvencyAfterShort(fixedpoint.Zero(), checkpointExposure)
			if !ok {
				return fixedpoint.Zero(), nil
			}
			deriv, ok := s.shortSolvencyDerivative(fixedpoint.Zero())
			if !ok || deriv.IsZero() {
				return fixedpoint.Zero(), nil
			}
			x = margin.DivDown(deriv)
		}
		best := fixedpoint.Zero()
		for i := 0; i < maxIterations && !x.IsZero(); i++ {
			margin, ok := s.SolvencyAfterShort(x, checkpointExposure)
			if !ok {
				if best.IsZero() {
					x = x.DivDown(two)
					continue
				}
				break
			}
			if x.Gt(best) {
				best = x
			}
			deriv, ok := s.shortSolvencyDerivative(x)
			if !ok || deriv.IsZero() {
				break
			}
			step := margin.DivDown(deriv)
			if step.IsZero() {
				break
			}
			next := x.Add(step)
			if next.Gte(absBonds) {
				break
			}
			x = next
		}
		if best.IsZero() {
			return fixedpoint.Zero(), nil
		}
		absBonds = best
	}

	// The solvency-bounded maximum may already fit the budget.
	if deposit, err := s.ShortDeposit(absBonds, spot, openVaultSharePrice); err == nil && deposit.Lte(budget) {
		s.assertMaxShort(absBonds, budget, spot, openVaultSharePrice, checkpointExposure)
		return absBonds, nil
	}

	best := fixedpoint.Zero()
	x := s.maxShortGuess(budget, spot, openVaultSharePrice, conservativePrice).Min(absBonds)
	for i := 0; i < maxIterations && !x.IsZero(); i++ {
		deposit, err := s.ShortDeposit(x, spot, openVaultSharePrice)
		if err != nil {
			x = x.DivDown(two)
			continue
		}
		if deposit.Gt(budget) && best.IsZero() {
			// The deposit is convex in the bond amount, so Newton from an
			// overshot guess stays above the budget forever. Halve until an
			// affordable iterate seeds best.
			x = x.DivDown(two)
			continue
		}
		if deposit.Lte(budget) && x.Gt(best) {
			best = x
		}
		deriv, ok := s.shortDepositDerivative(x, spot, openVaultSharePrice)
		if !ok || deriv.IsZero() {
			break
		}
		var next fixedpoint.FixedPoint
		if deposit.Gt(budget) {
			delta := deposit.Sub(budget).DivUp(deriv)
			if delta.Gte(x) {
				break
			}
			next = x.Sub(delta)
		} else {
			next = x.Add(budget.Sub(deposit).DivDown(deriv)).Min(absBonds)
		}
		if next.Eq(x) {
			break
		}
		x = next
	}
	if best.IsZero() {
		return fixedpoint.Zero(), nil
	}
	s.assertMaxShort(best, budget, spot, openVaultSharePrice, checkpointExposure)
	return best, nil
}

// shortDepositDerivative is d(deposit)/d(bondAmount) in base per bond. The
// face and fee terms are constant per bond; only the sale proceeds vary.
// False when the proceeds derivative dominates, which flips the deposit's
// monotonicity assumption.
func (s *State) shortDepositDerivative(bondAmount, spotPrice, openVaultSharePrice fixedpoint.FixedPoint) (fixedpoint.FixedPoint, bool) {
	principalDeriv, err := s.shortPrincipalDerivative(bondAmount)
	if err != nil {
		return fixedpoint.Zero(), false
	}
	c := s.Info.VaultSharePrice
	fixedSide := c.DivUp(openVaultSharePrice).
		Add(s.Config.Fees.Flat).
		Add(s.Config.Fees.Curve.MulUp(fixedpoint.One().Sub(spotPrice)))
	variable := c.MulDown(principalDeriv)
	if fixedSide.Lte(variable) {
		return fixedpoint.Zero(), false
	}
	return fixedSide.Sub(variable), true
}

// assertMaxShort enforces the solver's postconditions; violations mean the
// numerical model is broken and must not be clamped over.
func (s *State) assertMaxShort(result, budget, spotPrice, openVaultSharePrice fixedpoint.FixedPoint, checkpointExposure fixedpoint.Signed) {
	deposit, err := s.ShortDeposit(result, spotPrice, openVaultSharePrice)
	if err != nil {
		panic(fmt.Errorf("%w: max short %s is unpriceable: %v", ErrSolverPostcondition, result, err))
	}
	if deposit.Gt(budget) {
		panic(fmt.Errorf("%w: max short deposit %s exceeds budget %s", ErrSolverPostcondition, deposit, budget))
	}
	if _, ok := s.SolvencyAfterShort(result, checkpointExposure); !ok {
		panic(fmt.Errorf("%w: max short %s is insolvent", ErrSolverPostcondition, result))
	}
}
