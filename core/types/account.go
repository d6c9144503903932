package types

import "math/big"

// Account is the ledger-side view of an address: the ARC balance credited by
// reward claims plus a nonce reserved for future signed-operation replay
// protection. LP-token custody balances live in their own state namespace,
// keyed per (token, holder), and are not part of this record.
type Account struct {
	Nonce      uint64   `json:"nonce"`
	BalanceARC *big.Int `json:"balanceARC"`
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	if a == nil {
		return nil
	}
	dup := &Account{Nonce: a.Nonce}
	if a.BalanceARC != nil {
		dup.BalanceARC = new(big.Int).Set(a.BalanceARC)
	}
	return dup
}
