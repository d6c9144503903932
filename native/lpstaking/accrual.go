package lpstaking

import (
	"fmt"
	"math/big"

	"arcadia/core/events"
	nativecommon "arcadia/native/common"
)

// Checkpoint integrates the pool's entitlement over the time elapsed since
// the last checkpoint and returns the total ARC owed. Zero elapsed time is an
// idempotent no-op, so opportunistic callers are safe. Fails after shutdown.
func (e *Engine) Checkpoint(pool [20]byte) (*big.Int, error) {
	if err := e.readyForAccrual(); err != nil {
		return nil, err
	}
	down, err := e.shutdown()
	if err != nil {
		return nil, err
	}
	if down {
		return nil, ErrShutdown
	}
	if err := e.requireRegistered(pool); err != nil {
		return nil, err
	}
	return e.checkpointPool(pool)
}

// checkpointPool is the ungated accrual step shared by the public entry and
// the shutdown flush, which must still integrate before the flag flips.
func (e *Engine) checkpointPool(pool [20]byte) (*big.Int, error) {
	accrual, err := e.loadPoolAccrual(pool)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if now <= accrual.LastUpdated {
		return new(big.Int).Set(accrual.SharesOwed), nil
	}
	elapsed := now - accrual.LastUpdated

	rate, err := e.rates.CurrentRate(pool)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: query inflation rate: %w", err)
	}
	if rate == nil || rate.Sign() < 0 {
		return nil, fmt.Errorf("lpstaking: invalid inflation rate for pool %x", pool)
	}
	accrued := new(big.Int).Mul(rate, new(big.Int).SetUint64(elapsed))
	accrual.SharesOwed = new(big.Int).Add(accrual.SharesOwed, accrued)
	accrual.LastUpdated = now
	if err := e.state.PutPoolAccrual(accrual); err != nil {
		return nil, fmt.Errorf("lpstaking: persist pool accrual: %w", err)
	}

	e.emitter.Emit(events.PoolCheckpointed{
		Pool:       pool,
		Elapsed:    elapsed,
		Accrued:    accrued,
		SharesOwed: new(big.Int).Set(accrual.SharesOwed),
	})
	return new(big.Int).Set(accrual.SharesOwed), nil
}

// Claim settles the pool's owed ARC: checkpoint, mint the owed amount to the
// pool address, notify the rate oracle, zero the ledger. Only the pool's
// registered reward distributor may call it; zero owed is a designed no-op.
func (e *Engine) Claim(caller, pool [20]byte) (*big.Int, error) {
	if err := e.readyForAccrual(); err != nil {
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
	if err := e.requireRegistered(pool); err != nil {
		return nil, err
	}
	distributor, err := e.registry.Distributor(pool)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: query pool distributor: %w", err)
	}
	if caller != distributor {
		return nil, ErrNotDistributor
	}
	return e.claimPool(pool, caller, false)
}

func (e *Engine) claimPool(pool, caller [20]byte, internal bool) (*big.Int, error) {
	owed, err := e.checkpointPool(pool)
	if err != nil {
		return nil, err
	}
	if owed.Sign() == 0 {
		return big.NewInt(0), nil
	}

	if err := e.issuer.Mint(pool, owed); err != nil {
		return nil, fmt.Errorf("lpstaking: mint claimed rewards: %w", err)
	}
	if err := e.rates.NotifyRateUpdate(); err != nil {
		return nil, fmt.Errorf("lpstaking: notify rate oracle: %w", err)
	}

	accrual, err := e.loadPoolAccrual(pool)
	if err != nil {
		return nil, err
	}
	accrual.SharesOwed = big.NewInt(0)
	if err := e.state.PutPoolAccrual(accrual); err != nil {
		return nil, fmt.Errorf("lpstaking: persist pool accrual: %w", err)
	}

	e.emitter.Emit(events.RewardsClaimed{
		Pool:     pool,
		Caller:   caller,
		Minted:   new(big.Int).Set(owed),
		Internal: internal,
	})
	return owed, nil
}

// Claimable previews the ARC a claim would settle right now without touching
// state. Returns zero unconditionally after shutdown.
func (e *Engine) Claimable(pool [20]byte) (*big.Int, error) {
	if err := e.readyForAccrual(); err != nil {
		return nil, err
	}
	down, err := e.shutdown()
	if err != nil {
		return nil, err
	}
	if down {
		return big.NewInt(0), nil
	}
	if err := e.requireRegistered(pool); err != nil {
		return nil, err
	}
	accrual, err := e.loadPoolAccrual(pool)
	if err != nil {
		return nil, err
	}
	owed := new(big.Int).Set(accrual.SharesOwed)
	now := e.now()
	if now <= accrual.LastUpdated {
		return owed, nil
	}
	rate, err := e.rates.CurrentRate(pool)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: query inflation rate: %w", err)
	}
	if rate == nil || rate.Sign() <= 0 {
		return owed, nil
	}
	pending := new(big.Int).Mul(rate, new(big.Int).SetUint64(now-accrual.LastUpdated))
	return owed.Add(owed, pending), nil
}

func (e *Engine) loadPoolAccrual(pool [20]byte) (*PoolAccrual, error) {
	accrual, err := e.state.PoolAccrual(pool)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: load pool accrual: %w", err)
	}
	if accrual == nil {
		// Registration seeds the ledger; a missing record means the
		// pool was never registered with the state manager.
		return nil, ErrUnknownPool
	}
	accrual.SharesOwed = ensureAmount(accrual.SharesOwed)
	return accrual, nil
}
