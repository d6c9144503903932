package core

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"arcadia/core/events"
	"arcadia/core/state"
	"arcadia/native/emission"
	"arcadia/native/lpstaking"
	"arcadia/native/pricing"
	"arcadia/storage"
)

// PoolConfig describes one staking pool registered at boot.
type PoolConfig struct {
	Pool        [20]byte
	LPToken     [20]byte
	Decimals    uint8
	Distributor [20]byte
	WeightBps   uint64
	PriceFeed   string
}

// Config wires a node: the authorities, the pool set, and the emission
// schedule parameters.
type Config struct {
	// Authority may trigger the irreversible shutdown.
	Authority [20]byte
	// PauseAuthority may engage and release the reversible module pause.
	PauseAuthority [20]byte
	Pools          []PoolConfig
	Emission       emission.Config
	// Now supplies the clock in Unix seconds; nil means wall clock. It is
	// consulted during construction too, so pool registration and the
	// emission genesis are stamped by the same clock that later drives
	// accrual.
	Now func() uint64
}

// Node owns the state manager, the staking engine, and the collaborator
// implementations, and serializes every public operation behind one mutex.
// Mutations run on a state overlay committed on success and discarded on
// error, so each operation is atomic; buffered events flush only after the
// commit lands.
type Node struct {
	mu       sync.Mutex
	db       storage.Database
	state    *state.Manager
	engine   *lpstaking.Engine
	emission *emission.Schedule
	config   Config

	buffer      *eventBuffer
	subscribers *events.MultiEmitter
}

// NewNode builds a node over the database, registers the configured pools
// (idempotent across restarts), seeds the emission schedule, and wires the
// engine's collaborators.
func NewNode(db storage.Database, cfg Config, prices *pricing.Aggregator) (*Node, error) {
	manager := state.NewManager(db)
	node := &Node{
		db:          db,
		state:       manager,
		config:      cfg,
		buffer:      &eventBuffer{},
		subscribers: events.NewMultiEmitter(),
	}
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}

	genesis := now()
	for _, pool := range cfg.Pools {
		meta := state.PoolMeta{
			Pool:         pool.Pool,
			LPToken:      pool.LPToken,
			Decimals:     pool.Decimals,
			Distributor:  pool.Distributor,
			WeightBps:    pool.WeightBps,
			PriceFeed:    pool.PriceFeed,
			RegisteredAt: genesis,
		}
		if err := manager.RegisterPool(meta); err != nil {
			return nil, fmt.Errorf("core: register pool %x: %w", pool.Pool, err)
		}
	}

	schedule := emission.NewSchedule(&emissionStore{manager: manager}, &poolWeights{manager: manager}, cfg.Emission)
	schedule.SetNowFunc(now)
	schedule.SetEmitter(node.buffer)
	if err := schedule.Initialize(genesis); err != nil {
		return nil, fmt.Errorf("core: initialise emission schedule: %w", err)
	}
	node.emission = schedule

	engine := lpstaking.NewEngine()
	engine.SetNowFunc(now)
	engine.SetState(manager)
	engine.SetRegistry(manager)
	engine.SetPriceSource(pricing.NewService(&poolBindings{manager: manager}, prices))
	engine.SetRateOracle(schedule)
	engine.SetRewardSink(noopRewardSink{})
	engine.SetTokenIssuer(&arcIssuer{manager: manager})
	engine.SetAssetVault(&custodyVault{manager: manager})
	engine.SetAuthority(cfg.Authority)
	engine.SetPauses(manager)
	engine.SetEmitter(node.buffer)
	node.engine = engine

	return node, nil
}

// SetRewardSink replaces the default no-op reward bookkeeper with an external
// distributor integration.
func (n *Node) SetRewardSink(sink lpstaking.RewardSink) {
	if n == nil || sink == nil {
		return
	}
	n.engine.SetRewardSink(sink)
}

// Subscribe registers an event consumer. Subscribers observe events only
// after the emitting operation has committed.
func (n *Node) Subscribe(emitter events.Emitter) {
	if n == nil || emitter == nil {
		return
	}
	n.mu.Lock()
	n.subscribers.Add(emitter)
	n.mu.Unlock()
}

// withMutation runs fn inside the operation mutex and a state overlay:
// commit on success, discard on error, events flushed only after commit.
func (n *Node) withMutation(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buffer.reset()
	n.state.Begin()
	if err := fn(); err != nil {
		n.state.Discard()
		n.buffer.reset()
		return err
	}
	if err := n.state.Commit(); err != nil {
		n.buffer.reset()
		return err
	}
	for _, evt := range n.buffer.drain() {
		n.subscribers.Emit(evt)
	}
	return nil
}

func (n *Node) withView(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// --- staking ledger ---

// Stake deposits caller's LP tokens into the pool for their own account.
func (n *Node) Stake(caller, pool [20]byte, amount *big.Int) error {
	return n.withMutation(func() error { return n.engine.Stake(caller, pool, amount) })
}

// StakeFor deposits caller-funded LP tokens crediting beneficiary.
func (n *Node) StakeFor(caller, beneficiary, pool [20]byte, amount *big.Int) error {
	return n.withMutation(func() error { return n.engine.StakeFor(caller, beneficiary, pool, amount) })
}

// Unstake withdraws caller's stake back to the caller.
func (n *Node) Unstake(caller, pool [20]byte, amount *big.Int) error {
	return n.withMutation(func() error { return n.engine.Unstake(caller, pool, amount) })
}

// UnstakeFor withdraws caller's stake, paying recipient.
func (n *Node) UnstakeFor(caller, pool [20]byte, amount *big.Int, recipient [20]byte) error {
	return n.withMutation(func() error { return n.engine.UnstakeFor(caller, pool, amount, recipient) })
}

// UnstakeFrom force-unstakes account on the pool's own authority.
func (n *Node) UnstakeFrom(caller, pool, account [20]byte, amount *big.Int) error {
	return n.withMutation(func() error { return n.engine.UnstakeFrom(caller, pool, account, amount) })
}

// UserBalance returns the account's staked amount in the pool.
func (n *Node) UserBalance(account, pool [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.withView(func() (err error) {
		balance, err = n.engine.UserBalance(account, pool)
		return err
	})
	return balance, err
}

// PoolBalance returns the pool's total staked amount.
func (n *Node) PoolBalance(pool [20]byte) (*big.Int, error) {
	var total *big.Int
	err := n.withView(func() (err error) {
		total, err = n.engine.PoolBalance(pool)
		return err
	})
	return total, err
}

// --- boost ---

// Boost returns the account's projected multiplier.
func (n *Node) Boost(account [20]byte) (*big.Int, error) {
	var boost *big.Int
	err := n.withView(func() (err error) {
		boost, err = n.engine.Boost(account)
		return err
	})
	return boost, err
}

// CachedBoost returns the last persisted boost record, nil if none exists.
func (n *Node) CachedBoost(account [20]byte) (*lpstaking.UserBoost, error) {
	var boost *lpstaking.UserBoost
	err := n.withView(func() (err error) {
		boost, err = n.engine.CachedBoost(account)
		return err
	})
	return boost, err
}

// TimeToFullBoost returns the seconds until the account's time boost ramps
// fully.
func (n *Node) TimeToFullBoost(account [20]byte) (uint64, error) {
	var remaining uint64
	err := n.withView(func() (err error) {
		remaining, err = n.engine.TimeToFullBoost(account)
		return err
	})
	return remaining, err
}

// UpdateBoost persists a fresh boost for the account.
func (n *Node) UpdateBoost(account [20]byte) (*lpstaking.UserBoost, error) {
	var boost *lpstaking.UserBoost
	err := n.withMutation(func() (err error) {
		boost, err = n.engine.UpdateBoost(account)
		return err
	})
	return boost, err
}

// --- accrual ---

// Checkpoint advances the pool's entitlement ledger.
func (n *Node) Checkpoint(pool [20]byte) (*big.Int, error) {
	var owed *big.Int
	err := n.withMutation(func() (err error) {
		owed, err = n.engine.Checkpoint(pool)
		return err
	})
	return owed, err
}

// Claimable previews the pool's claimable ARC.
func (n *Node) Claimable(pool [20]byte) (*big.Int, error) {
	var owed *big.Int
	err := n.withView(func() (err error) {
		owed, err = n.engine.Claimable(pool)
		return err
	})
	return owed, err
}

// Claim settles the pool's owed ARC on behalf of its distributor.
func (n *Node) Claim(caller, pool [20]byte) (*big.Int, error) {
	var minted *big.Int
	err := n.withMutation(func() (err error) {
		minted, err = n.engine.Claim(caller, pool)
		return err
	})
	return minted, err
}

// --- shutdown and pause ---

// Shutdown performs the irreversible halt.
func (n *Node) Shutdown(caller [20]byte) error {
	return n.withMutation(func() error { return n.engine.Shutdown(caller) })
}

// IsShutdown reports the persisted shutdown flag.
func (n *Node) IsShutdown() (bool, error) {
	var down bool
	err := n.withView(func() (err error) {
		down, err = n.engine.IsShutdown()
		return err
	})
	return down, err
}

// Pause engages the reversible module pause.
func (n *Node) Pause(caller [20]byte, module string) error {
	return n.setPaused(caller, module, true)
}

// Resume releases the reversible module pause.
func (n *Node) Resume(caller [20]byte, module string) error {
	return n.setPaused(caller, module, false)
}

func (n *Node) setPaused(caller [20]byte, module string, paused bool) error {
	return n.withMutation(func() error {
		if caller != n.config.PauseAuthority || n.config.PauseAuthority == ([20]byte{}) {
			return lpstaking.ErrNotAuthority
		}
		if module == "" {
			return fmt.Errorf("core: module name required")
		}
		if err := n.state.SetPaused(module, paused); err != nil {
			return err
		}
		n.buffer.Emit(events.ModulePauseChanged{Module: module, Authority: caller, Paused: paused})
		return nil
	})
}

// --- registry and emission reads ---

// ListPools returns the registration metadata of every pool, in registration
// order.
func (n *Node) ListPools() ([]state.PoolMeta, error) {
	var metas []state.PoolMeta
	err := n.withView(func() error {
		pools, err := n.state.Pools()
		if err != nil {
			return err
		}
		metas = make([]state.PoolMeta, 0, len(pools))
		for _, pool := range pools {
			meta, err := n.state.PoolMeta(pool)
			if err != nil {
				return err
			}
			if meta != nil {
				metas = append(metas, *meta)
			}
		}
		return nil
	})
	return metas, err
}

// EmissionState returns the persisted emission schedule state.
func (n *Node) EmissionState() (*emission.Snapshot, error) {
	var snapshot *emission.Snapshot
	err := n.withView(func() (err error) {
		snapshot, err = n.emission.Active()
		return err
	})
	return snapshot, err
}

// Account returns the address's ARC balance (reward mints land here for pool
// addresses).
func (n *Node) Account(addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.withView(func() error {
		account, err := n.state.Account(addr)
		if err != nil {
			return err
		}
		balance = account.BalanceARC
		return nil
	})
	return balance, err
}

// TokenBalance returns the LP custody balance for (token, holder).
func (n *Node) TokenBalance(token, holder [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.withView(func() (err error) {
		balance, err = n.state.TokenBalance(token, holder)
		return err
	})
	return balance, err
}

// CreditToken mints LP custody balance to a holder. Deposits in a real
// deployment arrive through the bridge; dev nodes use this faucet.
func (n *Node) CreditToken(token, holder [20]byte, amount *big.Int) error {
	return n.withMutation(func() error {
		if amount == nil || amount.Sign() <= 0 {
			return lpstaking.ErrInvalidAmount
		}
		balance, err := n.state.TokenBalance(token, holder)
		if err != nil {
			return err
		}
		return n.state.SetTokenBalance(token, holder, new(big.Int).Add(balance, amount))
	})
}

// eventBuffer collects events during one operation so subscribers only see
// them after the overlay commits.
type eventBuffer struct {
	pending []events.Event
}

func (b *eventBuffer) Emit(evt events.Event) {
	b.pending = append(b.pending, evt)
}

func (b *eventBuffer) reset() { b.pending = nil }

func (b *eventBuffer) drain() []events.Event {
	drained := b.pending
	b.pending = nil
	return drained
}
