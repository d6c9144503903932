package lpstaking

import (
	"fmt"
	"math/big"
	"time"

	"arcadia/core/events"
	nativecommon "arcadia/native/common"
)

// engineState is the persistence surface the engine requires. Implementations
// back it with the node state manager; tests back it with maps. Absent records
// come back nil with a nil error.
type engineState interface {
	StakeRecord(pool, account [20]byte) (*StakeRecord, error)
	PutStakeRecord(record *StakeRecord) error
	PoolTotal(pool [20]byte) (*big.Int, error)
	PutPoolTotal(pool [20]byte, total *big.Int) error
	UserBoost(account [20]byte) (*UserBoost, error)
	PutUserBoost(boost *UserBoost) error
	PoolAccrual(pool [20]byte) (*PoolAccrual, error)
	PutPoolAccrual(accrual *PoolAccrual) error
	IsShutdown() (bool, error)
	SetShutdown() error
}

// Engine is the boost/accrual core: it owns the staking ledger, the per-user
// time-boost records, and the per-pool entitlement accumulators, and mutates
// them only through the operations below. Collaborators are wired after
// construction; the zero value is unusable.
type Engine struct {
	state     engineState
	registry  PoolRegistry
	prices    PriceSource
	rates     RateOracle
	rewards   RewardSink
	issuer    TokenIssuer
	vault     AssetVault
	authority [20]byte
	pauses    nativecommon.PauseView
	emitter   events.Emitter
	now       func() uint64
}

// NewEngine constructs an engine with a no-op event emitter and wall-clock
// time. Collaborators must be wired before the first operation.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		now:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry wires the pool registry collaborator.
func (e *Engine) SetRegistry(registry PoolRegistry) {
	if e == nil {
		return
	}
	e.registry = registry
}

// SetPriceSource wires the exchange-rate collaborator.
func (e *Engine) SetPriceSource(prices PriceSource) {
	if e == nil {
		return
	}
	e.prices = prices
}

// SetRateOracle wires the inflation-rate collaborator.
func (e *Engine) SetRateOracle(rates RateOracle) {
	if e == nil {
		return
	}
	e.rates = rates
}

// SetRewardSink wires the external per-account reward bookkeeper.
func (e *Engine) SetRewardSink(rewards RewardSink) {
	if e == nil {
		return
	}
	e.rewards = rewards
}

// SetTokenIssuer wires the ARC mint collaborator.
func (e *Engine) SetTokenIssuer(issuer TokenIssuer) {
	if e == nil {
		return
	}
	e.issuer = issuer
}

// SetAssetVault wires the LP custody collaborator.
func (e *Engine) SetAssetVault(vault AssetVault) {
	if e == nil {
		return
	}
	e.vault = vault
}

// SetAuthority configures the emergency identity allowed to trigger shutdown.
func (e *Engine) SetAuthority(authority [20]byte) {
	if e == nil {
		return
	}
	e.authority = authority
}

// SetPauses wires the reversible module pause guard.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter wires the event emitter. Nil restores the no-op default.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the engine clock. Tests use it to drive elapsed time
// deterministically.
func (e *Engine) SetNowFunc(now func() uint64) {
	if e == nil || now == nil {
		return
	}
	e.now = now
}

func (e *Engine) readyForReads() error {
	switch {
	case e == nil || e.state == nil:
		return errNilState
	case e.registry == nil:
		return errNilRegistry
	case e.prices == nil:
		return errNilPriceSource
	}
	return nil
}

func (e *Engine) readyForAccrual() error {
	if err := e.readyForReads(); err != nil {
		return err
	}
	switch {
	case e.rates == nil:
		return errNilRateOracle
	case e.issuer == nil:
		return errNilIssuer
	}
	return nil
}

func (e *Engine) readyForStaking() error {
	if err := e.readyForReads(); err != nil {
		return err
	}
	switch {
	case e.rewards == nil:
		return errNilRewardSink
	case e.vault == nil:
		return errNilVault
	}
	return nil
}

func (e *Engine) requireRegistered(pool [20]byte) error {
	registered, err := e.registry.IsRegistered(pool)
	if err != nil {
		return fmt.Errorf("lpstaking: query pool registry: %w", err)
	}
	if !registered {
		return ErrUnknownPool
	}
	return nil
}

func (e *Engine) shutdown() (bool, error) {
	down, err := e.state.IsShutdown()
	if err != nil {
		return false, fmt.Errorf("lpstaking: read shutdown flag: %w", err)
	}
	return down, nil
}

// IsShutdown reports whether the one-way shutdown transition has happened.
func (e *Engine) IsShutdown() (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.shutdown()
}

// Stake deposits the caller's LP tokens into the pool, crediting the caller.
func (e *Engine) Stake(caller, pool [20]byte, amount *big.Int) error {
	return e.StakeFor(caller, caller, pool, amount)
}

// StakeFor deposits LP tokens pulled from caller while crediting beneficiary.
// The beneficiary's boost is refreshed with the newly added value blended in
// before the balances move.
func (e *Engine) StakeFor(caller, beneficiary, pool [20]byte, amount *big.Int) error {
	if err := e.readyForStaking(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	down, err := e.shutdown()
	if err != nil {
		return err
	}
	if down {
		return ErrShutdown
	}
	if err := e.requireRegistered(pool); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	if err := e.rewards.CheckpointAccount(pool, beneficiary); err != nil {
		return fmt.Errorf("lpstaking: checkpoint account rewards: %w", err)
	}

	// Value the beneficiary before the deposit lands so the blend treats
	// the incoming amount as entirely fresh.
	userValue, _, err := e.valueUser(beneficiary)
	if err != nil {
		return err
	}
	addedValue, err := e.poolValue(pool, amount)
	if err != nil {
		return err
	}
	if _, err := e.refreshBoost(beneficiary, userValue, addedValue); err != nil {
		return err
	}

	if err := e.vault.TransferIn(pool, caller, amount); err != nil {
		return fmt.Errorf("lpstaking: transfer stake into custody: %w", err)
	}

	record, err := e.loadStakeRecord(pool, beneficiary)
	if err != nil {
		return err
	}
	total, err := e.loadPoolTotal(pool)
	if err != nil {
		return err
	}
	record.Amount = new(big.Int).Add(record.Amount, amount)
	total = new(big.Int).Add(total, amount)
	if err := e.state.PutStakeRecord(record); err != nil {
		return fmt.Errorf("lpstaking: persist stake record: %w", err)
	}
	if err := e.state.PutPoolTotal(pool, total); err != nil {
		return fmt.Errorf("lpstaking: persist pool total: %w", err)
	}

	e.emitter.Emit(events.LPStaked{
		Pool:           pool,
		Account:        beneficiary,
		Caller:         caller,
		Amount:         new(big.Int).Set(amount),
		NewUserBalance: new(big.Int).Set(record.Amount),
		NewPoolTotal:   total,
	})
	return nil
}

// Unstake withdraws the caller's LP tokens from the pool, paying the caller.
func (e *Engine) Unstake(caller, pool [20]byte, amount *big.Int) error {
	return e.UnstakeFor(caller, pool, amount, caller)
}

// UnstakeFor withdraws the caller's LP tokens, paying recipient. Withdrawal
// stays available after shutdown; the boost refresh and reward checkpoint are
// skipped in that mode.
func (e *Engine) UnstakeFor(caller, pool [20]byte, amount *big.Int, recipient [20]byte) error {
	return e.unstake(caller, pool, amount, recipient, false)
}

// UnstakeFrom force-unstakes account's position on the pool's own authority.
// The caller identity must be the pool itself; the released LP tokens are
// paid to the pool, which settles with its depositor out of band.
func (e *Engine) UnstakeFrom(caller, pool, account [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != pool {
		return ErrNotPool
	}
	return e.unstake(account, pool, amount, pool, true)
}

func (e *Engine) unstake(account, pool [20]byte, amount *big.Int, recipient [20]byte, forced bool) error {
	if err := e.readyForStaking(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireRegistered(pool); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	record, err := e.loadStakeRecord(pool, account)
	if err != nil {
		return err
	}
	if record.Amount.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}

	down, err := e.shutdown()
	if err != nil {
		return err
	}
	if !down {
		if err := e.rewards.CheckpointAccount(pool, account); err != nil {
			return fmt.Errorf("lpstaking: checkpoint account rewards: %w", err)
		}
		userValue, _, err := e.valueUser(account)
		if err != nil {
			return err
		}
		if _, err := e.refreshBoost(account, userValue, big.NewInt(0)); err != nil {
			return err
		}
	}

	total, err := e.loadPoolTotal(pool)
	if err != nil {
		return err
	}
	record.Amount = new(big.Int).Sub(record.Amount, amount)
	total = new(big.Int).Sub(total, amount)
	if total.Sign() < 0 {
		return fmt.Errorf("lpstaking: pool total underflow for %x", pool)
	}
	if err := e.state.PutStakeRecord(record); err != nil {
		return fmt.Errorf("lpstaking: persist stake record: %w", err)
	}
	if err := e.state.PutPoolTotal(pool, total); err != nil {
		return fmt.Errorf("lpstaking: persist pool total: %w", err)
	}

	if err := e.vault.TransferOut(pool, recipient, amount); err != nil {
		return fmt.Errorf("lpstaking: release stake from custody: %w", err)
	}

	e.emitter.Emit(events.LPUnstaked{
		Pool:           pool,
		Account:        account,
		Recipient:      recipient,
		Amount:         new(big.Int).Set(amount),
		NewUserBalance: new(big.Int).Set(record.Amount),
		NewPoolTotal:   total,
		Forced:         forced,
	})
	return nil
}

// UserBalance returns the account's staked LP amount in the pool.
func (e *Engine) UserBalance(account, pool [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, err := e.loadStakeRecord(pool, account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(record.Amount), nil
}

// PoolBalance returns the pool's total staked LP amount.
func (e *Engine) PoolBalance(pool [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadPoolTotal(pool)
}

// Shutdown performs the one-way halt: every registered pool's outstanding
// entitlement is flushed through the internal claim path, then the persisted
// flag flips. Only the configured emergency authority may call it; a second
// call fails.
func (e *Engine) Shutdown(caller [20]byte) error {
	if err := e.readyForAccrual(); err != nil {
		return err
	}
	if caller != e.authority || e.authority == ([20]byte{}) {
		return ErrNotAuthority
	}
	down, err := e.shutdown()
	if err != nil {
		return err
	}
	if down {
		return ErrAlreadyShutdown
	}

	pools, err := e.registry.Pools()
	if err != nil {
		return fmt.Errorf("lpstaking: list pools: %w", err)
	}
	flushed := new(big.Int)
	for _, pool := range pools {
		minted, err := e.claimPool(pool, caller, true)
		if err != nil {
			return err
		}
		flushed.Add(flushed, minted)
	}
	if err := e.state.SetShutdown(); err != nil {
		return fmt.Errorf("lpstaking: persist shutdown flag: %w", err)
	}

	e.emitter.Emit(events.Shutdown{
		Authority:    caller,
		PoolsFlushed: uint64(len(pools)),
		FlushedTotal: flushed,
		At:           e.now(),
	})
	return nil
}

func (e *Engine) loadStakeRecord(pool, account [20]byte) (*StakeRecord, error) {
	record, err := e.state.StakeRecord(pool, account)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: load stake record: %w", err)
	}
	if record == nil {
		record = &StakeRecord{Pool: pool, Account: account}
	}
	record.Amount = ensureAmount(record.Amount)
	return record, nil
}

func (e *Engine) loadPoolTotal(pool [20]byte) (*big.Int, error) {
	total, err := e.state.PoolTotal(pool)
	if err != nil {
		return nil, fmt.Errorf("lpstaking: load pool total: %w", err)
	}
	if total == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(total), nil
}
