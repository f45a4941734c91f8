// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package yieldspace

import (
	"errors"
	"testing"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

var halfTime = fixedpoint.MustFromString("0.5")

// symmetricCurve is the reference state from the protocol documentation:
// equal reserves and unit share prices put the spot price at exactly one.
func symmetricCurve() Curve {
	return Curve{
		ShareReserves:     fixedpoint.FromUint64(1000),
		BondReserves:      fixedpoint.FromUint64(1000),
		SharePrice:        fixedpoint.One(),
		InitialSharePrice: fixedpoint.One(),
	}
}

func skewedCurve() Curve {
	return Curve{
		ShareReserves:     fixedpoint.FromUint64(1000),
		BondReserves:      fixedpoint.FromUint64(1100),
		SharePrice:        fixedpoint.One(),
		InitialSharePrice: fixedpoint.One(),
	}
}

// assertRel fails unless got and want agree to one part in 1e6, loose enough
// to absorb the pow approximation error.
func assertRel(t *testing.T, got, want fixedpoint.FixedPoint) {
	t.Helper()
	diff := got.Max(want).Sub(got.Min(want))
	tol := got.Max(want).DivDown(fixedpoint.FromUint64(1_000_000)).Add(fixedpoint.FromRawUint64(10))
	if diff.Gt(tol) {
		t.Errorf("got %s, want %s (diff %s)", got, want, diff)
	}
}

func TestSpotPriceSymmetric(t *testing.T) {
	p := symmetricCurve().SpotPrice(halfTime)
	assertRel(t, p, fixedpoint.One())
}

func TestSpotPriceSkewed(t *testing.T) {
	p := skewedCurve().SpotPrice(halfTime)
	if p.Gte(fixedpoint.One()) {
		t.Fatalf("spot price %s, want < 1", p)
	}
	// (1000/1100)^0.5
	assertRel(t, p, fixedpoint.MustFromString("0.953462589245592315"))
}

func TestBondsOutGivenSharesIn(t *testing.T) {
	c := symmetricCurve()
	in := fixedpoint.FromUint64(100)
	out, err := c.BondsOutGivenSharesIn(in, halfTime)
	if err != nil {
		t.Fatalf("BondsOutGivenSharesIn: %v", err)
	}
	// At spot price one the unfee'd output must be strictly less than the
	// input: price impact moves against the trader immediately.
	if out.Gte(in) {
		t.Fatalf("bonds out %s >= shares in %s", out, in)
	}
	// Direct substitution into k: (sqrt(1000)+sqrt(1000)-sqrt(1100))^2.
	assertRel(t, out, fixedpoint.MustFromString("95.235392680606187965"))
}

func TestInvariantConservation(t *testing.T) {
	c := symmetricCurve()
	k0 := c.K(halfTime)

	in := fixedpoint.FromUint64(250)
	out, err := c.BondsOutGivenSharesIn(in, halfTime)
	if err != nil {
		t.Fatalf("BondsOutGivenSharesIn: %v", err)
	}
	after := c
	after.ShareReserves = c.ShareReserves.Add(in)
	after.BondReserves = c.BondReserves.Sub(out)
	assertRel(t, after.K(halfTime), k0)

	// The exact reverse trade restores the invariant as well.
	back, err := after.SharesOutGivenBondsIn(out, halfTime)
	if err != nil {
		t.Fatalf("SharesOutGivenBondsIn: %v", err)
	}
	reverted := after
	reverted.ShareReserves = after.ShareReserves.Sub(back)
	reverted.BondReserves = after.BondReserves.Add(out)
	assertRel(t, reverted.K(halfTime), k0)
	assertRel(t, back, in)
}

func TestTradeRoundTrip(t *testing.T) {
	c := skewedCurve()
	deltas := []fixedpoint.FixedPoint{
		fixedpoint.FromUint64(1),
		fixedpoint.FromUint64(10),
		fixedpoint.MustFromString("0.5"),
		fixedpoint.FromUint64(40),
	}
	for _, dz := range deltas {
		out, err := c.BondsOutGivenSharesIn(dz, halfTime)
		if err != nil {
			t.Fatalf("BondsOutGivenSharesIn(%s): %v", dz, err)
		}
		in, err := c.SharesInGivenBondsOut(out, halfTime)
		if err != nil {
			t.Fatalf("SharesInGivenBondsOut(%s): %v", out, err)
		}
		// Rounding always favors the pool, so the recovered input may only
		// exceed the original within tolerance, never undercut it.
		assertRel(t, in, dz)
	}
}

func TestRoundingDirections(t *testing.T) {
	c := skewedCurve()
	dy := fixedpoint.FromUint64(25)

	down, err := c.SharesOutGivenBondsIn(dy, halfTime)
	if err != nil {
		t.Fatalf("SharesOutGivenBondsIn: %v", err)
	}
	up, err := c.SharesOutGivenBondsInUp(dy, halfTime)
	if err != nil {
		t.Fatalf("SharesOutGivenBondsInUp: %v", err)
	}
	if down.Gt(up) {
		t.Errorf("down-rounded payout %s exceeds up-rounded %s", down, up)
	}

	inUp, err := c.SharesInGivenBondsOut(dy, halfTime)
	if err != nil {
		t.Fatalf("SharesInGivenBondsOut: %v", err)
	}
	inDown, err := c.SharesInGivenBondsOutDown(dy, halfTime)
	if err != nil {
		t.Fatalf("SharesInGivenBondsOutDown: %v", err)
	}
	if inDown.Gt(inUp) {
		t.Errorf("down-rounded charge %s exceeds up-rounded %s", inDown, inUp)
	}
}

func TestMaxBuy(t *testing.T) {
	c := skewedCurve()
	dz, dy := c.MaxBuy(halfTime)
	if dz.IsZero() || dy.IsZero() {
		t.Fatalf("max buy = (%s, %s), want nonzero", dz, dy)
	}

	after := c
	after.ShareReserves = c.ShareReserves.Add(dz)
	after.BondReserves = c.BondReserves.Sub(dy)
	assertRel(t, after.SpotPrice(halfTime), fixedpoint.One())
	assertRel(t, after.K(halfTime), c.K(halfTime))
}

func TestMaxBuyAtEdge(t *testing.T) {
	dz, dy := symmetricCurve().MaxBuy(halfTime)
	// Already at spot price one; only rounding slack remains.
	if dz.Gt(fixedpoint.MustFromString("0.001")) || dy.Gt(fixedpoint.MustFromString("0.001")) {
		t.Errorf("max buy at edge = (%s, %s), want ~0", dz, dy)
	}
}

func TestTradeDomainErrors(t *testing.T) {
	c := symmetricCurve()

	// Draining more bonds than exist.
	if _, err := c.SharesInGivenBondsOut(fixedpoint.FromUint64(1000), halfTime); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Errorf("bonds out = reserves: err = %v", err)
	}
	// Selling so many bonds the share reserves would go negative.
	if _, err := c.SharesOutGivenBondsIn(fixedpoint.FromUint64(10_000_000), halfTime); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Errorf("oversized bonds in: err = %v", err)
	}
	// Taking more shares than exist.
	if _, err := c.BondsInGivenSharesOut(fixedpoint.FromUint64(1000), halfTime); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Errorf("shares out = reserves: err = %v", err)
	}
}

func TestAssetDispatch(t *testing.T) {
	c := skewedCurve()
	amount := fixedpoint.FromUint64(10)

	direct, err := c.BondsOutGivenSharesIn(amount, halfTime)
	if err != nil {
		t.Fatalf("BondsOutGivenSharesIn: %v", err)
	}
	generic, err := c.OutGivenIn(Shares(amount), halfTime)
	if err != nil {
		t.Fatalf("OutGivenIn: %v", err)
	}
	if generic.Kind != KindBonds || !generic.Amount.Eq(direct) {
		t.Errorf("OutGivenIn(shares) = %s %s, want bonds %s", generic.Amount, generic.Kind, direct)
	}

	directIn, err := c.SharesInGivenBondsOut(amount, halfTime)
	if err != nil {
		t.Fatalf("SharesInGivenBondsOut: %v", err)
	}
	genericIn, err := c.InGivenOut(Bonds(amount), halfTime)
	if err != nil {
		t.Fatalf("InGivenOut: %v", err)
	}
	if genericIn.Kind != KindShares || !genericIn.Amount.Eq(directIn) {
		t.Errorf("InGivenOut(bonds) = %s %s, want shares %s", genericIn.Amount, genericIn.Kind, directIn)
	}
}
