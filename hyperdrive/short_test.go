// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hyperdrive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

func TestShortDepositNoFees(t *testing.T) {
	s := testState("1000", "1000")
	dy := fixedpoint.FromUint64(100)

	principal, err := s.shortPrincipal(dy)
	require.NoError(t, err)
	assertRel(t, principal, fixedpoint.MustFromString("95.235392680606187965"))

	// With unit prices and no fees the deposit is the face minus the sale
	// proceeds: the short pays only the fixed-rate discount.
	deposit, err := s.ShortDeposit(dy, s.SpotPrice(), fixedpoint.Zero())
	require.NoError(t, err)
	assertRel(t, deposit, fixedpoint.MustFromString("4.764607319393812034"))
}

func TestShortDepositFees(t *testing.T) {
	s := testState("1000", "1100")
	s.Config.Fees.Flat = fixedpoint.MustFromString("0.01")
	s.Config.Fees.Curve = fixedpoint.MustFromString("0.1")
	dy := fixedpoint.FromUint64(100)

	base, err := testState("1000", "1100").ShortDeposit(dy, s.SpotPrice(), fixedpoint.Zero())
	require.NoError(t, err)
	withFees, err := s.ShortDeposit(dy, s.SpotPrice(), fixedpoint.Zero())
	require.NoError(t, err)

	// flat fee dy*phi_f plus curve fee dy*phi_c*(1-p).
	fees := s.shortFlatFee(dy).Add(s.shortCurveFee(dy, s.SpotPrice()))
	assertRel(t, withFees, base.Add(fees))
	require.True(t, withFees.Gt(base))
}

func TestOpenShortBelowMinimum(t *testing.T) {
	s := testState("1000", "1000")
	_, err := s.OpenShort(fixedpoint.MustFromString("0.0001"), fixedpoint.Zero())
	require.ErrorIs(t, err, ErrMinimumTransaction)
}

func TestOpenShortNegativeInterest(t *testing.T) {
	// A checkpoint open price far above the current vault share price means
	// the pool would pay the short more than it posts.
	s := testState("1000", "1000")
	_, err := s.OpenShort(fixedpoint.FromUint64(10), fixedpoint.FromUint64(2))
	require.ErrorIs(t, err, ErrNegativeInterest)
}

func TestSpotPriceAfterShortMovesDown(t *testing.T) {
	s := testState("1000", "1100")
	before := s.SpotPrice()
	after, err := s.SpotPriceAfterShort(fixedpoint.FromUint64(10))
	require.NoError(t, err)
	require.True(t, after.Lt(before), "after %s >= before %s", after, before)
}

func TestMaxShortAbsolute(t *testing.T) {
	// No exposure: the closed form drives the reserves to the minimum.
	s := testState("1000", "1000")
	budget := fixedpoint.FromUint64(100_000_000)

	max, err := s.MaxShort(budget, fixedpoint.Zero(), fixedpoint.SignedZero(), nil, DefaultMaxIterations)
	require.NoError(t, err)
	// Closed form: y' = (k - sqrt(z_min))^2 puts the maximum at ~2874.5089
	// bonds; allow the solver a whisker of back-off below it.
	require.True(t, max.Lte(fixedpoint.MustFromString("2874.6")),
		"max %s above the closed-form bound", max)
	require.True(t, max.Gte(fixedpoint.MustFromString("2874.4")),
		"max %s far below the closed-form bound", max)
	_, ok := s.SolvencyAfterShort(max, fixedpoint.SignedZero())
	require.True(t, ok, "max short %s is insolvent", max)
}

func TestMaxShortRespectsBudget(t *testing.T) {
	s := testState("1000", "1000")
	budget := fixedpoint.FromUint64(50)

	max, err := s.MaxShort(budget, fixedpoint.Zero(), fixedpoint.SignedZero(), nil, DefaultMaxIterations)
	require.NoError(t, err)
	require.True(t, max.Gt(fixedpoint.Zero()), "solver found no trade")

	deposit, err := s.ShortDeposit(max, s.SpotPrice(), fixedpoint.Zero())
	require.NoError(t, err)
	require.True(t, deposit.Lte(budget), "deposit %s exceeds budget %s", deposit, budget)
}

func TestMaxShortConservativePriceGuess(t *testing.T) {
	// A conservative price credits sale proceeds per bond, which inflates the
	// starting guess well past the budget root (here 500 bonds, whose deposit
	// is roughly double the budget). The solver must still land on a nonzero,
	// affordable short rather than iterate above the budget forever.
	s := testState("1000", "1000")
	budget := fixedpoint.FromUint64(50)
	conservative := fixedpoint.MustFromString("0.9")

	max, err := s.MaxShort(budget, fixedpoint.Zero(), fixedpoint.SignedZero(), &conservative, DefaultMaxIterations)
	require.NoError(t, err)
	require.True(t, max.Gt(fixedpoint.Zero()), "solver found no trade")
	require.True(t, max.Gte(fixedpoint.FromUint64(100)),
		"solver stopped far short of the budget: %s", max)
	deposit, err := s.ShortDeposit(max, s.SpotPrice(), fixedpoint.Zero())
	require.NoError(t, err)
	require.True(t, deposit.Lte(budget), "deposit %s exceeds budget %s", deposit, budget)
}

func TestMaxShortExposureBound(t *testing.T) {
	// Long exposure raises the reserve floor and must shrink the maximum.
	free := testState("1000", "1000")
	bound := testState("1000", "1000")
	bound.Info.LongExposure = fixedpoint.FromUint64(500)
	budget := fixedpoint.FromUint64(100_000_000)

	maxFree, err := free.MaxShort(budget, fixedpoint.Zero(), fixedpoint.SignedZero(), nil, DefaultMaxIterations)
	require.NoError(t, err)
	maxBound, err := bound.MaxShort(budget, fixedpoint.Zero(), fixedpoint.SignedZero(), nil, DefaultMaxIterations)
	require.NoError(t, err)
	require.True(t, maxBound.Lt(maxFree), "exposure did not shrink max short: %s >= %s", maxBound, maxFree)

	// Positive checkpoint exposure nets against it and must recover room.
	credit := fixedpoint.SignedFromFixed(fixedpoint.FromUint64(500))
	maxNetted, err := bound.MaxShort(budget, fixedpoint.Zero(), credit, nil, DefaultMaxIterations)
	require.NoError(t, err)
	require.True(t, maxNetted.Gt(maxBound), "checkpoint netting did not recover room")
}

func TestMaxShortBudgetBelowMinimum(t *testing.T) {
	s := testState("1000", "1000")
	_, err := s.MaxShort(fixedpoint.MustFromString("0.0001"), fixedpoint.Zero(), fixedpoint.SignedZero(), nil, DefaultMaxIterations)
	require.ErrorIs(t, err, ErrInsufficientBudget)
}
