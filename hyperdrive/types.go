// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hyperdrive prices fixed-rate positions against a yield-bearing
// vault. It layers fees, solvency accounting, and Newton-based sizing solvers
// on top of the yieldspace curve. Every operation is a pure function of a
// State snapshot; nothing here mutates the snapshot or performs I/O, so a
// State may be shared freely across goroutines.
package hyperdrive

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/delvtech/hyperdrive-sub000/fixedpoint"
)

// ====== Validation errors ======
//
// These are expected outcomes of valid-but-rejected input. Callers branch on
// them with errors.Is. Invariant violations (overflow, negative present
// value, solver postcondition breaks) panic instead; see the fatal sentinels
// below.
var (
	ErrMinimumTransaction    = errors.New("amount below minimum transaction")
	ErrNegativeInterest      = errors.New("trade would force negative interest")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for trade")
	ErrMinimumContribution   = errors.New("liquidity contribution below minimum")
	ErrMinimumMint           = errors.New("lp share amount below minimum")
	ErrAPRSlippage           = errors.New("spot apr outside slippage bounds")
	ErrPresentValueDecreased = errors.New("present value would decrease")
	ErrInsufficientBudget    = errors.New("budget below minimum transaction")
	ErrInvalidState          = errors.New("invalid pool state")
)

// ====== Fatal sentinels ======
//
// Wrapped into the panic values raised when the numerical model itself is
// broken for the given input. Masking these would corrupt money accounting.
var (
	ErrNegativePresentValue      = errors.New("present value is negative")
	ErrNegativeEffectiveReserves = errors.New("effective share reserves are negative")
	ErrSolverPostcondition       = errors.New("solver postcondition violated")
)

const (
	// DefaultMaxIterations bounds the Newton loops in MaxLong and MaxShort.
	DefaultMaxIterations = 7

	// SecondsPerYear annualizes position durations for APR math.
	SecondsPerYear uint64 = 31536000
)

// Fees is the protocol fee schedule, all values 1e18-scaled fractions.
// Curve applies to the price-sensitive portion of a trade, Flat to the
// time-decayed portion, and the governance fields skim a share of the
// collected fees for the fee collector.
type Fees struct {
	Curve            fixedpoint.FixedPoint `json:"curve"`
	Flat             fixedpoint.FixedPoint `json:"flat"`
	GovernanceLP     fixedpoint.FixedPoint `json:"governanceLP"`
	GovernanceZombie fixedpoint.FixedPoint `json:"governanceZombie"`
}

// PoolConfig holds the immutable parameters a pool was deployed with.
type PoolConfig struct {
	BaseToken                common.Address        `json:"baseToken"`
	VaultSharesToken         common.Address        `json:"vaultSharesToken"`
	InitialVaultSharePrice   fixedpoint.FixedPoint `json:"initialVaultSharePrice"`
	MinimumShareReserves     fixedpoint.FixedPoint `json:"minimumShareReserves"`
	MinimumTransactionAmount fixedpoint.FixedPoint `json:"minimumTransactionAmount"`
	PositionDuration         uint64                `json:"positionDuration"`
	CheckpointDuration       uint64                `json:"checkpointDuration"`
	TimeStretch              fixedpoint.FixedPoint `json:"timeStretch"`
	Governance               common.Address        `json:"governance"`
	FeeCollector             common.Address        `json:"feeCollector"`
	Fees                     Fees                  `json:"fees"`
}

// PoolInfo is the mutable side of a pool snapshot. ShareAdjustment (zeta) is
// the only signed quantity in the model: a positive adjustment shrinks the
// reserves the curve trades against, a negative one grows them.
type PoolInfo struct {
	ShareReserves                   fixedpoint.FixedPoint `json:"shareReserves"`
	ShareAdjustment                 fixedpoint.Signed     `json:"shareAdjustment"`
	BondReserves                    fixedpoint.FixedPoint `json:"bondReserves"`
	VaultSharePrice                 fixedpoint.FixedPoint `json:"vaultSharePrice"`
	LongsOutstanding                fixedpoint.FixedPoint `json:"longsOutstanding"`
	LongAverageMaturityTime         fixedpoint.FixedPoint `json:"longAverageMaturityTime"`
	ShortsOutstanding               fixedpoint.FixedPoint `json:"shortsOutstanding"`
	ShortAverageMaturityTime        fixedpoint.FixedPoint `json:"shortAverageMaturityTime"`
	LongExposure                    fixedpoint.FixedPoint `json:"longExposure"`
	LPTotalSupply                   fixedpoint.FixedPoint `json:"lpTotalSupply"`
	WithdrawalSharesReadyToWithdraw fixedpoint.FixedPoint `json:"withdrawalSharesReadyToWithdraw"`
	WithdrawalSharesProceeds        fixedpoint.FixedPoint `json:"withdrawalSharesProceeds"`
	LPSharePrice                    fixedpoint.FixedPoint `json:"lpSharePrice"`
}

// State is the unit of input to every pricing operation: one coherent
// snapshot of a pool. Operations never mutate it.
type State struct {
	Config PoolConfig `json:"poolConfig"`
	Info   PoolInfo   `json:"poolInfo"`
}

// APRBounds is an optional slippage guard for AddLiquidity.
type APRBounds struct {
	Min fixedpoint.FixedPoint `json:"min"`
	Max fixedpoint.FixedPoint `json:"max"`
}

// Validate rejects snapshots the pricing math cannot operate on.
func (s *State) Validate() error {
	one := fixedpoint.One()
	if s.Info.VaultSharePrice.IsZero() {
		return fmt.Errorf("%w: vault share price is zero", ErrInvalidState)
	}
	if s.Config.InitialVaultSharePrice.IsZero() {
		return fmt.Errorf("%w: initial vault share price is zero", ErrInvalidState)
	}
	if s.Config.TimeStretch.IsZero() || s.Config.TimeStretch.Gte(one) {
		return fmt.Errorf("%w: time stretch outside (0, 1)", ErrInvalidState)
	}
	if s.Info.BondReserves.IsZero() {
		return fmt.Errorf("%w: bond reserves are zero", ErrInvalidState)
	}
	return nil
}
