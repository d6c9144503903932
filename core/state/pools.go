package state

import (
	"fmt"
	"math/big"

	"arcadia/native/lpstaking"
)

var (
	poolListKeyBytes = []byte("lpstaking/pools")
	poolMetaPrefix   = []byte("lpstaking/pool/")
)

// PoolMeta is the registration record for one staking pool. Written once when
// the pool is registered; the registry snapshot preserves registration order.
type PoolMeta struct {
	Pool         [20]byte
	LPToken      [20]byte
	Decimals     uint8
	Distributor  [20]byte
	WeightBps    uint64
	PriceFeed    string
	RegisteredAt uint64
}

// RegisterPool records the pool metadata, appends it to the ordered registry
// snapshot, and seeds the pool's accrual ledger at the registration time.
// Re-registering an existing pool is a no-op so node restarts stay idempotent.
func (m *Manager) RegisterPool(meta PoolMeta) error {
	if meta.Pool == ([20]byte{}) {
		return fmt.Errorf("state: pool address must not be zero")
	}
	existing, err := m.PoolMeta(meta.Pool)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := m.write(hashKey(poolMetaPrefix, meta.Pool[:]), &meta); err != nil {
		return err
	}

	pools, err := m.Pools()
	if err != nil {
		return err
	}
	pools = append(pools, meta.Pool)
	if err := m.write(hashKey(poolListKeyBytes), pools); err != nil {
		return err
	}

	return m.PutPoolAccrual(&lpstaking.PoolAccrual{
		Pool:        meta.Pool,
		SharesOwed:  big.NewInt(0),
		LastUpdated: meta.RegisteredAt,
	})
}

// PoolMeta loads a pool's registration record, nil when unregistered.
func (m *Manager) PoolMeta(pool [20]byte) (*PoolMeta, error) {
	meta := new(PoolMeta)
	ok, err := m.read(hashKey(poolMetaPrefix, pool[:]), meta)
	if err != nil || !ok {
		return nil, err
	}
	return meta, nil
}

// Pools returns the ordered registry snapshot.
func (m *Manager) Pools() ([][20]byte, error) {
	var pools [][20]byte
	if _, err := m.read(hashKey(poolListKeyBytes), &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// IsRegistered reports whether the pool has a registration record.
func (m *Manager) IsRegistered(pool [20]byte) (bool, error) {
	meta, err := m.PoolMeta(pool)
	if err != nil {
		return false, err
	}
	return meta != nil, nil
}

// Distributor returns the reward-distribution identity registered for the
// pool, the zero address when the pool is unknown.
func (m *Manager) Distributor(pool [20]byte) ([20]byte, error) {
	meta, err := m.PoolMeta(pool)
	if err != nil || meta == nil {
		return [20]byte{}, err
	}
	return meta.Distributor, nil
}
