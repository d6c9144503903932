package core

import (
	"fmt"
	"math/big"

	"arcadia/core/state"
	"arcadia/native/emission"
	"arcadia/native/pricing"
)

// emissionStore adapts the state manager's persisted emission singleton to the
// schedule's store interface.
type emissionStore struct {
	manager *state.Manager
}

func (s *emissionStore) EmissionState() (*emission.Snapshot, error) {
	stored, err := s.manager.Emission()
	if err != nil || stored == nil {
		return nil, err
	}
	return &emission.Snapshot{
		ActiveRate:    new(big.Int).Set(stored.ActiveRate),
		NextReduction: stored.NextReduction,
	}, nil
}

func (s *emissionStore) PutEmissionState(snapshot *emission.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("core: emission snapshot must not be nil")
	}
	return s.manager.PutEmission(&state.EmissionState{
		ActiveRate:    snapshot.ActiveRate,
		NextReduction: snapshot.NextReduction,
	})
}

// poolWeights answers the emission schedule's weight queries from the pool
// registry. Unregistered pools weigh zero.
type poolWeights struct {
	manager *state.Manager
}

func (w *poolWeights) WeightBps(pool [20]byte) (uint64, error) {
	meta, err := w.manager.PoolMeta(pool)
	if err != nil || meta == nil {
		return 0, err
	}
	return meta.WeightBps, nil
}

// poolBindings resolves each pool's price-feed binding from its registration
// record.
type poolBindings struct {
	manager *state.Manager
}

func (b *poolBindings) Binding(pool [20]byte) (pricing.Binding, error) {
	meta, err := b.manager.PoolMeta(pool)
	if err != nil {
		return pricing.Binding{}, err
	}
	if meta == nil {
		return pricing.Binding{}, fmt.Errorf("core: pool %x not registered", pool)
	}
	return pricing.Binding{Feed: meta.PriceFeed, Decimals: meta.Decimals}, nil
}

// noopRewardSink is the default reward bookkeeper: standalone nodes have no
// external distributor, so checkpoints are acknowledged without effect.
type noopRewardSink struct{}

func (noopRewardSink) CheckpointAccount([20]byte, [20]byte) error { return nil }

// arcIssuer mints ARC into the recipient's ledger account.
type arcIssuer struct {
	manager *state.Manager
}

func (i *arcIssuer) Mint(recipient [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("core: mint amount must not be negative")
	}
	account, err := i.manager.Account(recipient)
	if err != nil {
		return err
	}
	account.BalanceARC = new(big.Int).Add(account.BalanceARC, amount)
	return i.manager.PutAccount(recipient, account)
}

// custodyVault moves LP tokens between holder custody balances and pool
// custody. The pool's registration record names the LP token being moved.
type custodyVault struct {
	manager *state.Manager
}

func (v *custodyVault) token(pool [20]byte) ([20]byte, error) {
	meta, err := v.manager.PoolMeta(pool)
	if err != nil {
		return [20]byte{}, err
	}
	if meta == nil {
		return [20]byte{}, fmt.Errorf("core: pool %x not registered", pool)
	}
	return meta.LPToken, nil
}

func (v *custodyVault) TransferIn(pool, from [20]byte, amount *big.Int) error {
	token, err := v.token(pool)
	if err != nil {
		return err
	}
	balance, err := v.manager.TokenBalance(token, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("core: insufficient %x balance for %x: have %s, need %s", token, from, balance, amount)
	}
	if err := v.manager.SetTokenBalance(token, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	held, err := v.manager.TokenBalance(token, pool)
	if err != nil {
		return err
	}
	return v.manager.SetTokenBalance(token, pool, new(big.Int).Add(held, amount))
}

func (v *custodyVault) TransferOut(pool, to [20]byte, amount *big.Int) error {
	token, err := v.token(pool)
	if err != nil {
		return err
	}
	held, err := v.manager.TokenBalance(token, pool)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("core: pool %x custody underflow: have %s, need %s", pool, held, amount)
	}
	if err := v.manager.SetTokenBalance(token, pool, new(big.Int).Sub(held, amount)); err != nil {
		return err
	}
	balance, err := v.manager.TokenBalance(token, to)
	if err != nil {
		return err
	}
	return v.manager.SetTokenBalance(token, to, new(big.Int).Add(balance, amount))
}
