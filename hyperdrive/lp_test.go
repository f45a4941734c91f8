// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hyperdrive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

func TestPresentValueNoPositions(t *testing.T) {
	s := testState("1000", "1000")
	// Nothing to unwind: reserves minus the minimum buffer.
	assertRel(t, s.PresentValue(0), fixedpoint.FromUint64(999))
}

func TestPresentValueNetLong(t *testing.T) {
	s := testState("1000", "1000")
	s.Info.LongsOutstanding = fixedpoint.FromUint64(100)
	s.Info.LongAverageMaturityTime = fixedpoint.FromUint64(SecondsPerYear)

	// Fully unmatured net long position: closing it sells 100 bonds to the
	// pool, removing their curve value from the reserves.
	pv := s.PresentValue(0)
	assertRel(t, pv, fixedpoint.MustFromString("903.764607319393812034"))
	require.True(t, pv.Lt(fixedpoint.FromUint64(999)))
}

func TestPresentValueNetShort(t *testing.T) {
	s := testState("1000", "1100")
	s.Info.ShortsOutstanding = fixedpoint.FromUint64(100)
	s.Info.ShortAverageMaturityTime = fixedpoint.FromUint64(SecondsPerYear)

	// Closing 100 net short bonds exceeds the curve's maximum buy, so the
	// excess settles at a price of one.
	assertRel(t, s.PresentValue(0), fixedpoint.MustFromString("1097.808848170151546991"))

	// Half matured: 50 bonds close on the curve, the rest flat.
	half := s.PresentValue(SecondsPerYear / 2)
	assertRel(t, half, fixedpoint.MustFromString("1097.809017127915713414"))
}

func TestPresentValueMaturityMonotone(t *testing.T) {
	s := testState("1000", "1000")
	s.Info.LongsOutstanding = fixedpoint.FromUint64(100)
	s.Info.LongAverageMaturityTime = fixedpoint.FromUint64(SecondsPerYear)

	// As the long position matures its payoff shifts from the discounted
	// curve price toward face value, so the value owed to longs grows and
	// present value decays with time.
	prev := s.PresentValue(0)
	for _, ts := range []uint64{SecondsPerYear / 4, SecondsPerYear / 2, SecondsPerYear} {
		pv := s.PresentValue(ts)
		require.True(t, pv.Lte(prev), "pv rose from %s to %s at t=%d", prev, pv, ts)
		prev = pv
	}
}

func TestAddLiquidityProportionalMint(t *testing.T) {
	s := testState("1000", "1000")
	// Supply equal to the starting present value makes minted shares track
	// the contribution one for one.
	s.Info.LPTotalSupply = fixedpoint.FromUint64(999)
	contribution := fixedpoint.FromUint64(100)

	before := s.PresentValue(0)
	shares, err := s.AddLiquidity(contribution, nil, 0)
	require.NoError(t, err)
	assertRel(t, shares, contribution)

	after := *s
	after.Info.ShareReserves = s.Info.ShareReserves.Add(contribution)
	require.True(t, after.PresentValue(0).Gte(before), "present value decreased across add")
}

func TestAddLiquidityValidation(t *testing.T) {
	s := testState("1000", "1000")

	_, err := s.AddLiquidity(fixedpoint.MustFromString("0.0001"), nil, 0)
	require.ErrorIs(t, err, ErrMinimumContribution)

	// The reference pool quotes 0% APR, outside a [1%, 2%] window.
	bounds := &APRBounds{
		Min: fixedpoint.MustFromString("0.01"),
		Max: fixedpoint.MustFromString("0.02"),
	}
	_, err = s.AddLiquidity(fixedpoint.FromUint64(100), bounds, 0)
	require.ErrorIs(t, err, ErrAPRSlippage)

	open := &APRBounds{Min: fixedpoint.Zero(), Max: fixedpoint.One()}
	_, err = s.AddLiquidity(fixedpoint.FromUint64(100), open, 0)
	require.NoError(t, err)
}
