// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hyperdrive

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
	"github.com/delvtech/hyperdrive-sub000/yieldspace"
)

// ====== Reserve derivations ======

// EffectiveShareReserves returns the share reserves the curve trades
// against, z minus the share adjustment zeta. A negative result means the
// snapshot itself is corrupt, so this panics rather than returning an error.
func (s *State) EffectiveShareReserves() fixedpoint.FixedPoint {
	ze := fixedpoint.SignedFromFixed(s.Info.ShareReserves).Sub(s.Info.ShareAdjustment)
	if ze.IsNegative() {
		panic(fmt.Errorf("%w: z=%s zeta=%s",
			ErrNegativeEffectiveReserves, s.Info.ShareReserves, s.Info.ShareAdjustment))
	}
	return ze.Fixed()
}

// curve builds the yieldspace view of the snapshot.
func (s *State) curve() yieldspace.Curve {
	return yieldspace.Curve{
		ShareReserves:     s.EffectiveShareReserves(),
		BondReserves:      s.Info.BondReserves,
		SharePrice:        s.Info.VaultSharePrice,
		InitialSharePrice: s.Config.InitialVaultSharePrice,
	}
}

// Solvency returns the pool's solvency margin in shares,
//
//	z - longExposure/c - minimumShareReserves
//
// and false when the margin is negative.
func (s *State) Solvency() (fixedpoint.FixedPoint, bool) {
	lhs := s.Info.ShareReserves
	rhs := s.Info.LongExposure.DivDown(s.Info.VaultSharePrice).
		Add(s.Config.MinimumShareReserves)
	if lhs.Lt(rhs) {
		return fixedpoint.Zero(), false
	}
	return lhs.Sub(rhs), true
}

// IdleShareReserves is the capital not backing open positions or the minimum
// reserve buffer: the portion LPs could withdraw without touching exposure.
func (s *State) IdleShareReserves() fixedpoint.FixedPoint {
	idle, ok := s.Solvency()
	if !ok {
		return fixedpoint.Zero()
	}
	return idle
}

// ====== Prices and rates ======

// SpotPrice returns the instantaneous bond price implied by the reserves.
func (s *State) SpotPrice() fixedpoint.FixedPoint {
	return s.curve().SpotPrice(s.Config.TimeStretch)
}

// annualizedDuration is the position duration expressed in years, scaled.
func (s *State) annualizedDuration() fixedpoint.FixedPoint {
	return fixedpoint.FromUint64(s.Config.PositionDuration).
		DivDown(fixedpoint.FromUint64(SecondsPerYear))
}

// SpotAPR converts the spot price into the annualized fixed rate a position
// held to maturity would earn: (1 - p) / (p * t_years).
func (s *State) SpotAPR() fixedpoint.FixedPoint {
	return s.APRGivenPrice(s.SpotPrice())
}

// APRGivenPrice is the annualized rate a pool with this config quotes at an
// arbitrary spot price.
func (s *State) APRGivenPrice(price fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return fixedpoint.One().Sub(price).
		DivDown(price.MulDown(s.annualizedDuration()))
}

// PriceGivenAPR inverts APRGivenPrice: the spot price at which a pool with
// this config quotes the given annualized rate.
func (s *State) PriceGivenAPR(apr fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	return fixedpoint.One().DivDown(
		fixedpoint.One().Add(apr.MulDown(s.annualizedDuration())))
}

// InitialReserves computes the reserves that seed a fresh pool quoting
// targetAPR given a share contribution: z is the contribution itself and y
// solves spot_price(z, y) = priceGivenAPR(targetAPR).
func (s *State) InitialReserves(shareContribution, targetAPR fixedpoint.FixedPoint) (shareReserves, bondReserves fixedpoint.FixedPoint) {
	p := s.PriceGivenAPR(targetAPR)
	mu := s.Config.InitialVaultSharePrice
	invT := fixedpoint.One().DivDown(s.Config.TimeStretch)
	bondReserves = mu.MulDown(shareContribution).DivDown(p.Pow(invT))
	return shareContribution, bondReserves
}

// ====== Checkpoint time ======

// ToCheckpoint rounds a timestamp down to the containing checkpoint boundary.
func (s *State) ToCheckpoint(timestamp uint64) uint64 {
	if s.Config.CheckpointDuration == 0 {
		return timestamp
	}
	return timestamp - timestamp%s.Config.CheckpointDuration
}

// timeRemaining normalizes the distance from now to a scaled average
// maturity timestamp into [0, 1] of the position duration.
func (s *State) timeRemaining(averageMaturityTime fixedpoint.FixedPoint, timestamp uint64) fixedpoint.FixedPoint {
	now := fixedpoint.FromUint64(timestamp)
	if averageMaturityTime.Lte(now) {
		return fixedpoint.Zero()
	}
	duration := fixedpoint.FromUint64(s.Config.PositionDuration)
	remaining := averageMaturityTime.Sub(now).DivDown(duration)
	return remaining.Min(fixedpoint.One())
}

// ====== Fingerprint ======

// ID returns a deterministic fingerprint of the snapshot, suitable for
// keying caches across a process boundary. Two states with the same
// serialized form always share an ID.
func (s *State) ID() common.Hash {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Errorf("%w: marshaling state: %v", ErrInvalidState, err))
	}
	h := blake3.New()
	h.Write(data)
	var id common.Hash
	h.Digest().Read(id[:])
	return id
}
