package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"arcadia/core/types"
)

var (
	accountPrefix = []byte("account/")
	custodyPrefix = []byte("custody/")
)

// Account loads the ledger record for an address. Absent addresses come back
// as a fresh zero-balance account so callers never see nil.
func (m *Manager) Account(addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	ok, err := m.read(hashKey(accountPrefix, addr[:]), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{BalanceARC: big.NewInt(0)}, nil
	}
	if account.BalanceARC == nil {
		account.BalanceARC = big.NewInt(0)
	}
	return account, nil
}

// PutAccount persists the ledger record, rejecting balances that do not fit
// in 256 bits.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: account must not be nil")
	}
	if err := checkWidth(account.BalanceARC); err != nil {
		return fmt.Errorf("state: ARC balance for %x: %w", addr, err)
	}
	return m.write(hashKey(accountPrefix, addr[:]), account)
}

// TokenBalance loads the LP-token custody balance for (token, holder).
func (m *Manager) TokenBalance(token, holder [20]byte) (*big.Int, error) {
	var stored storedStake
	ok, err := m.read(hashKey(custodyPrefix, token[:], holder[:]), &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored.Amount == nil {
		return big.NewInt(0), nil
	}
	return stored.Amount, nil
}

// SetTokenBalance persists the LP-token custody balance for (token, holder).
func (m *Manager) SetTokenBalance(token, holder [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: token balance must not be negative")
	}
	if err := checkWidth(amount); err != nil {
		return fmt.Errorf("state: token balance for %x/%x: %w", token, holder, err)
	}
	return m.write(hashKey(custodyPrefix, token[:], holder[:]), &storedStake{Amount: amount})
}

// checkWidth rejects values outside the 256-bit range every balance is
// bounded by.
func checkWidth(v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative value")
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return fmt.Errorf("value exceeds 256 bits")
	}
	return nil
}
