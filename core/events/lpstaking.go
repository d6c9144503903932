package events

import (
	"math/big"
	"strconv"

	"arcadia/core/types"
	"arcadia/crypto"
)

const (
	// TypeLPStaked captures an LP deposit credited to an account.
	TypeLPStaked = "lpstaking.staked"
	// TypeLPUnstaked captures an LP withdrawal, voluntary or pool-forced.
	TypeLPUnstaked = "lpstaking.unstaked"
	// TypeBoostUpdated is emitted when a persisted time-boost factor changes.
	TypeBoostUpdated = "lpstaking.boost.updated"
	// TypePoolCheckpointed captures lazy accrual advancing a pool ledger.
	TypePoolCheckpointed = "lpstaking.checkpoint"
	// TypeRewardsClaimed is emitted when owed ARC is minted to a pool.
	TypeRewardsClaimed = "lpstaking.rewards.claimed"
	// TypeShutdown marks the one-way shutdown transition.
	TypeShutdown = "lpstaking.shutdown"
	// TypeModulePaused and TypeModuleResumed track the reversible guard.
	TypeModulePaused  = "lpstaking.paused"
	TypeModuleResumed = "lpstaking.resumed"
	// TypeEmissionRateUpdated captures a scheduled emission reduction.
	TypeEmissionRateUpdated = "emission.rate.updated"
)

// LPStaked captures the balance delta realised by a deposit.
type LPStaked struct {
	Pool           [20]byte
	Account        [20]byte
	Caller         [20]byte
	Amount         *big.Int
	NewUserBalance *big.Int
	NewPoolTotal   *big.Int
}

// EventType satisfies the Event interface.
func (LPStaked) EventType() string { return TypeLPStaked }

// Event converts the structured payload into a broadcastable event.
func (e LPStaked) Event() *types.Event {
	attrs := map[string]string{
		"pool":        addressString(e.Pool),
		"account":     addressString(e.Account),
		"amount":      formatAmount(e.Amount),
		"userBalance": formatAmount(e.NewUserBalance),
		"poolTotal":   formatAmount(e.NewPoolTotal),
	}
	if e.Caller != e.Account && !zeroAddress(e.Caller) {
		attrs["caller"] = addressString(e.Caller)
	}
	return &types.Event{Type: TypeLPStaked, Attributes: attrs}
}

// LPUnstaked captures the balance delta realised by a withdrawal.
type LPUnstaked struct {
	Pool           [20]byte
	Account        [20]byte
	Recipient      [20]byte
	Amount         *big.Int
	NewUserBalance *big.Int
	NewPoolTotal   *big.Int
	Forced         bool
}

// EventType satisfies the Event interface.
func (LPUnstaked) EventType() string { return TypeLPUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e LPUnstaked) Event() *types.Event {
	attrs := map[string]string{
		"pool":        addressString(e.Pool),
		"account":     addressString(e.Account),
		"amount":      formatAmount(e.Amount),
		"userBalance": formatAmount(e.NewUserBalance),
		"poolTotal":   formatAmount(e.NewPoolTotal),
	}
	if e.Recipient != e.Account && !zeroAddress(e.Recipient) {
		attrs["recipient"] = addressString(e.Recipient)
	}
	if e.Forced {
		attrs["forced"] = "true"
	}
	return &types.Event{Type: TypeLPUnstaked, Attributes: attrs}
}

// BoostUpdated captures a persisted time-boost refresh.
type BoostUpdated struct {
	Account         [20]byte
	TimeBoostFactor *big.Int
	UpdatedAt       uint64
}

// EventType satisfies the Event interface.
func (BoostUpdated) EventType() string { return TypeBoostUpdated }

// Event converts the structured payload into a broadcastable event.
func (e BoostUpdated) Event() *types.Event {
	attrs := map[string]string{
		"account":   addressString(e.Account),
		"timeBoost": formatAmount(e.TimeBoostFactor),
		"updatedAt": strconv.FormatUint(e.UpdatedAt, 10),
	}
	return &types.Event{Type: TypeBoostUpdated, Attributes: attrs}
}

// PoolCheckpointed captures one lazy accrual step on a pool ledger.
type PoolCheckpointed struct {
	Pool       [20]byte
	Elapsed    uint64
	Accrued    *big.Int
	SharesOwed *big.Int
}

// EventType satisfies the Event interface.
func (PoolCheckpointed) EventType() string { return TypePoolCheckpointed }

// Event converts the structured payload into a broadcastable event.
func (e PoolCheckpointed) Event() *types.Event {
	attrs := map[string]string{
		"pool":       addressString(e.Pool),
		"elapsed":    strconv.FormatUint(e.Elapsed, 10),
		"accrued":    formatAmount(e.Accrued),
		"sharesOwed": formatAmount(e.SharesOwed),
	}
	return &types.Event{Type: TypePoolCheckpointed, Attributes: attrs}
}

// RewardsClaimed captures an ARC mint settling a pool's owed shares.
type RewardsClaimed struct {
	Pool     [20]byte
	Caller   [20]byte
	Minted   *big.Int
	Internal bool
}

// EventType satisfies the Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	attrs := map[string]string{
		"pool":   addressString(e.Pool),
		"minted": formatAmount(e.Minted),
	}
	if !zeroAddress(e.Caller) {
		attrs["caller"] = addressString(e.Caller)
	}
	if e.Internal {
		attrs["internal"] = "true"
	}
	return &types.Event{Type: TypeRewardsClaimed, Attributes: attrs}
}

// Shutdown marks the irreversible halt, including the final flush total.
type Shutdown struct {
	Authority    [20]byte
	PoolsFlushed uint64
	FlushedTotal *big.Int
	At           uint64
}

// EventType satisfies the Event interface.
func (Shutdown) EventType() string { return TypeShutdown }

// Event converts the structured payload into a broadcastable event.
func (e Shutdown) Event() *types.Event {
	attrs := map[string]string{
		"authority":    addressString(e.Authority),
		"poolsFlushed": strconv.FormatUint(e.PoolsFlushed, 10),
		"flushedTotal": formatAmount(e.FlushedTotal),
		"at":           strconv.FormatUint(e.At, 10),
	}
	return &types.Event{Type: TypeShutdown, Attributes: attrs}
}

// ModulePauseChanged tracks the reversible operational guard.
type ModulePauseChanged struct {
	Module    string
	Authority [20]byte
	Paused    bool
}

// EventType satisfies the Event interface.
func (e ModulePauseChanged) EventType() string {
	if e.Paused {
		return TypeModulePaused
	}
	return TypeModuleResumed
}

// Event converts the structured payload into a broadcastable event.
func (e ModulePauseChanged) Event() *types.Event {
	attrs := map[string]string{
		"module": e.Module,
	}
	if !zeroAddress(e.Authority) {
		attrs["authority"] = addressString(e.Authority)
	}
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

// EmissionRateUpdated captures the schedule advancing across a reduction
// boundary.
type EmissionRateUpdated struct {
	OldRate       *big.Int
	NewRate       *big.Int
	NextReduction uint64
}

// EventType satisfies the Event interface.
func (EmissionRateUpdated) EventType() string { return TypeEmissionRateUpdated }

// Event converts the structured payload into a broadcastable event.
func (e EmissionRateUpdated) Event() *types.Event {
	attrs := map[string]string{
		"oldRate":       formatAmount(e.OldRate),
		"newRate":       formatAmount(e.NewRate),
		"nextReduction": strconv.FormatUint(e.NextReduction, 10),
	}
	return &types.Event{Type: TypeEmissionRateUpdated, Attributes: attrs}
}

func addressString(raw [20]byte) string {
	return crypto.MustNewAddress(crypto.ARCPrefix, raw[:]).String()
}

func zeroAddress(raw [20]byte) bool {
	return raw == [20]byte{}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
