package lpstaking

import (
	"fmt"
	"math/big"

	"arcadia/core/events"
	nativecommon "arcadia/native/common"
)

// refreshBoost commits the account's time-boost as of now. A zero
// currentValue is the cold-start/re-entry path and resets the factor to the
// starting value; a positive addedValue blends the grown factor with the
// starting factor, weighted by how much of the post-update stake is new.
func (e *Engine) refreshBoost(account [20]byte, currentValue, addedValue *big.Int) (*UserBoost, error) {
	now := e.now()
	boost, err := e.state.UserBoost(account)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: load user boost: %w", err)
	}

	currentValue = ensureAmount(currentValue)
	addedValue = ensureAmount(addedValue)

	var factor *big.Int
	switch {
	case currentValue.Sign() == 0:
		factor = new(big.Int).Set(timeStartingFactor)
	default:
		grown := projectTimeBoost(boost, now)
		if addedValue.Sign() == 0 {
			factor = grown
		} else {
			// Weighted blend: newly added value enters at the
			// starting factor and dilutes the aged boost by its
			// share of the new total.
			combined := new(big.Int).Add(currentValue, addedValue)
			aged := new(big.Int).Mul(grown, currentValue)
			fresh := new(big.Int).Mul(timeStartingFactor, addedValue)
			factor = new(big.Int).Add(aged, fresh)
			factor.Quo(factor, combined)
		}
	}

	updated := &UserBoost{Account: account, TimeBoostFactor: factor, LastUpdated: now}
	if err := e.state.PutUserBoost(updated); err != nil {
		return nil, fmt.Errorf("lpstaking: persist user boost: %w", err)
	}
	e.emitter.Emit(events.BoostUpdated{
		Account:         account,
		TimeBoostFactor: new(big.Int).Set(factor),
		UpdatedAt:       now,
	})
	return updated, nil
}

// projectTimeBoost grows the stored factor by the elapsed share of the ramp
// period, capped at one. A missing record projects from the starting factor
// with no accumulated age.
func projectTimeBoost(boost *UserBoost, now uint64) *big.Int {
	if boost == nil || boost.TimeBoostFactor == nil {
		return new(big.Int).Set(timeStartingFactor)
	}
	factor := new(big.Int).Set(boost.TimeBoostFactor)
	if now <= boost.LastUpdated {
		return minWad(factor, wad)
	}
	elapsed := new(big.Int).SetUint64(now - boost.LastUpdated)
	growth := new(big.Int).Sub(wad, timeStartingFactor)
	growth.Mul(growth, elapsed)
	growth.Quo(growth, new(big.Int).SetUint64(increasePeriodSeconds))
	factor.Add(factor, growth)
	return minWad(factor, wad)
}

// Boost returns the account's combined reward multiplier as a read-only
// projection over live time and live valuation. It never mutates UserBoost.
func (e *Engine) Boost(account [20]byte) (*big.Int, error) {
	if err := e.readyForReads(); err != nil {
		return nil, err
	}
	down, err := e.shutdown()
	if err != nil {
		return nil, err
	}
	if down {
		return new(big.Int).Set(minBoost), nil
	}
	userValue, totalValue, err := e.valueUser(account)
	if err != nil {
		return nil, err
	}
	if userValue.Sign() == 0 || totalValue.Sign() == 0 {
		return new(big.Int).Set(minBoost), nil
	}

	stakeBoost := new(big.Int).Add(wad, wadMul(wadDiv(userValue, totalValue), tvlFactor))

	boost, err := e.state.UserBoost(account)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: load user boost: %w", err)
	}
	timeBoost := projectTimeBoost(boost, e.now())

	return clampWad(wadMul(stakeBoost, timeBoost), minBoost, maxBoost), nil
}

// UpdateBoost forces a persisting refresh of the account's time boost, the
// explicit commit counterpart of the read-only Boost projection.
func (e *Engine) UpdateBoost(account [20]byte) (*UserBoost, error) {
	if err := e.readyForReads(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	down, err := e.shutdown()
	if err != nil {
		return nil, err
	}
	if down {
		return nil, ErrShutdown
	}
	userValue, _, err := e.valueUser(account)
	if err != nil {
		return nil, err
	}
	return e.refreshBoost(account, userValue, big.NewInt(0))
}

// CachedBoost returns the last persisted boost record without projection, or
// nil when the account has never interacted with the engine.
func (e *Engine) CachedBoost(account [20]byte) (*UserBoost, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	boost, err := e.state.UserBoost(account)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: load user boost: %w", err)
	}
	return boost.Clone(), nil
}

// TimeToFullBoost reports the seconds remaining until the account's projected
// time boost reaches one. Accounts with no record report the full ramp
// period; fully ramped accounts report zero.
func (e *Engine) TimeToFullBoost(account [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	boost, err := e.state.UserBoost(account)
	if err != nil {
		return 0, fmt.Errorf("lpstaking: load user boost: %w", err)
	}
	if boost == nil || boost.TimeBoostFactor == nil {
		return increasePeriodSeconds, nil
	}
	if boost.TimeBoostFactor.Cmp(wad) >= 0 {
		return 0, nil
	}

	// Seconds the stored factor still needs on the ramp, minus the time
	// already elapsed since it was persisted.
	remaining := new(big.Int).Sub(wad, boost.TimeBoostFactor)
	remaining.Mul(remaining, new(big.Int).SetUint64(increasePeriodSeconds))
	remaining.Quo(remaining, new(big.Int).Sub(wad, timeStartingFactor))

	now := e.now()
	if now > boost.LastUpdated {
		elapsed := new(big.Int).SetUint64(now - boost.LastUpdated)
		remaining.Sub(remaining, elapsed)
	}
	if remaining.Sign() <= 0 {
		return 0, nil
	}
	return remaining.Uint64(), nil
}
