package lpstaking

import "math/big"

// StakeRecord tracks one account's LP deposit in one pool, in the LP token's
// native decimals. Zero is a valid resting state; records are never deleted.
type StakeRecord struct {
	Pool    [20]byte
	Account [20]byte
	Amount  *big.Int
}

// Clone returns a deep copy of the record.
func (r *StakeRecord) Clone() *StakeRecord {
	if r == nil {
		return nil
	}
	dup := &StakeRecord{Pool: r.Pool, Account: r.Account}
	if r.Amount != nil {
		dup.Amount = new(big.Int).Set(r.Amount)
	}
	return dup
}

// UserBoost is the persisted time-boost state for one account. The factor is
// a wad in [timeStartingFactor, wad] and only moves through refreshes.
type UserBoost struct {
	Account         [20]byte
	TimeBoostFactor *big.Int
	LastUpdated     uint64
}

// Clone returns a deep copy of the boost record.
func (b *UserBoost) Clone() *UserBoost {
	if b == nil {
		return nil
	}
	dup := &UserBoost{Account: b.Account, LastUpdated: b.LastUpdated}
	if b.TimeBoostFactor != nil {
		dup.TimeBoostFactor = new(big.Int).Set(b.TimeBoostFactor)
	}
	return dup
}

// PoolAccrual is the lazy entitlement accumulator for one pool: ARC owed but
// not yet minted, plus the timestamp accrual has been integrated up to.
type PoolAccrual struct {
	Pool        [20]byte
	SharesOwed  *big.Int
	LastUpdated uint64
}

// Clone returns a deep copy of the accrual ledger entry.
func (a *PoolAccrual) Clone() *PoolAccrual {
	if a == nil {
		return nil
	}
	dup := &PoolAccrual{Pool: a.Pool, LastUpdated: a.LastUpdated}
	if a.SharesOwed != nil {
		dup.SharesOwed = new(big.Int).Set(a.SharesOwed)
	}
	return dup
}
