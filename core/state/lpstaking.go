package state

import (
	"math/big"

	"arcadia/native/lpstaking"
)

// Namespaces for the records the staking engine owns. The engine never
// touches these directly; it goes through the typed accessors below, which
// satisfy its state interface.
var (
	stakeRecordPrefix = []byte("lpstaking/stake/")
	poolTotalPrefix   = []byte("lpstaking/total/")
	userBoostPrefix   = []byte("lpstaking/boost/")
	poolAccrualPrefix = []byte("lpstaking/accrual/")
	shutdownKeyBytes  = []byte("lpstaking/shutdown")
)

type storedStake struct {
	Amount *big.Int
}

type storedBoost struct {
	TimeBoostFactor *big.Int
	LastUpdated     uint64
}

type storedAccrual struct {
	SharesOwed  *big.Int
	LastUpdated uint64
}

// StakeRecord loads one account's deposit in one pool, nil when absent.
func (m *Manager) StakeRecord(pool, account [20]byte) (*lpstaking.StakeRecord, error) {
	var stored storedStake
	ok, err := m.read(hashKey(stakeRecordPrefix, pool[:], account[:]), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &lpstaking.StakeRecord{Pool: pool, Account: account, Amount: stored.Amount}, nil
}

// PutStakeRecord persists one account's deposit in one pool.
func (m *Manager) PutStakeRecord(record *lpstaking.StakeRecord) error {
	amount := record.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	key := hashKey(stakeRecordPrefix, record.Pool[:], record.Account[:])
	return m.write(key, &storedStake{Amount: amount})
}

// PoolTotal loads a pool's aggregate staked amount, nil when absent.
func (m *Manager) PoolTotal(pool [20]byte) (*big.Int, error) {
	var stored storedStake
	ok, err := m.read(hashKey(poolTotalPrefix, pool[:]), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return stored.Amount, nil
}

// PutPoolTotal persists a pool's aggregate staked amount.
func (m *Manager) PutPoolTotal(pool [20]byte, total *big.Int) error {
	if total == nil {
		total = big.NewInt(0)
	}
	return m.write(hashKey(poolTotalPrefix, pool[:]), &storedStake{Amount: total})
}

// UserBoost loads an account's persisted time-boost record, nil when absent.
func (m *Manager) UserBoost(account [20]byte) (*lpstaking.UserBoost, error) {
	var stored storedBoost
	ok, err := m.read(hashKey(userBoostPrefix, account[:]), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &lpstaking.UserBoost{
		Account:         account,
		TimeBoostFactor: stored.TimeBoostFactor,
		LastUpdated:     stored.LastUpdated,
	}, nil
}

// PutUserBoost persists an account's time-boost record.
func (m *Manager) PutUserBoost(boost *lpstaking.UserBoost) error {
	factor := boost.TimeBoostFactor
	if factor == nil {
		factor = big.NewInt(0)
	}
	key := hashKey(userBoostPrefix, boost.Account[:])
	return m.write(key, &storedBoost{TimeBoostFactor: factor, LastUpdated: boost.LastUpdated})
}

// PoolAccrual loads a pool's entitlement ledger, nil when absent.
func (m *Manager) PoolAccrual(pool [20]byte) (*lpstaking.PoolAccrual, error) {
	var stored storedAccrual
	ok, err := m.read(hashKey(poolAccrualPrefix, pool[:]), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &lpstaking.PoolAccrual{
		Pool:        pool,
		SharesOwed:  stored.SharesOwed,
		LastUpdated: stored.LastUpdated,
	}, nil
}

// PutPoolAccrual persists a pool's entitlement ledger.
func (m *Manager) PutPoolAccrual(accrual *lpstaking.PoolAccrual) error {
	owed := accrual.SharesOwed
	if owed == nil {
		owed = big.NewInt(0)
	}
	key := hashKey(poolAccrualPrefix, accrual.Pool[:])
	return m.write(key, &storedAccrual{SharesOwed: owed, LastUpdated: accrual.LastUpdated})
}

// IsShutdown reports the persisted one-way shutdown flag.
func (m *Manager) IsShutdown() (bool, error) {
	var down bool
	ok, err := m.read(hashKey(shutdownKeyBytes), &down)
	if err != nil || !ok {
		return false, err
	}
	return down, nil
}

// SetShutdown persists the one-way shutdown flag. There is deliberately no
// way to clear it.
func (m *Manager) SetShutdown() error {
	return m.write(hashKey(shutdownKeyBytes), true)
}
