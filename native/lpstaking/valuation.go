package lpstaking

import (
	"fmt"
	"math/big"
)

// valueUser sweeps every registered pool and converts the account's stake and
// the pool's total into the common wad USD denomination. Pure read; linear in
// the pool count. The registry snapshot keeps the sweep order stable.
func (e *Engine) valueUser(account [20]byte) (userValue, totalValue *big.Int, err error) {
	pools, err := e.registry.Pools()
	if err != nil {
		return nil, nil, fmt.Errorf("lpstaking: list pools: %w", err)
	}
	userValue = new(big.Int)
	totalValue = new(big.Int)
	for _, pool := range pools {
		total, err := e.loadPoolTotal(pool)
		if err != nil {
			return nil, nil, err
		}
		if total.Sign() == 0 {
			continue
		}
		rate, decimals, err := e.poolPricing(pool)
		if err != nil {
			return nil, nil, err
		}
		totalValue.Add(totalValue, wadMul(scaleToWad(total, decimals), rate))

		record, err := e.loadStakeRecord(pool, account)
		if err != nil {
			return nil, nil, err
		}
		if record.Amount.Sign() == 0 {
			continue
		}
		userValue.Add(userValue, wadMul(scaleToWad(record.Amount, decimals), rate))
	}
	return userValue, totalValue, nil
}

// poolValue converts a raw LP amount into wad USD at the pool's live rate.
func (e *Engine) poolValue(pool [20]byte, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	rate, decimals, err := e.poolPricing(pool)
	if err != nil {
		return nil, err
	}
	return wadMul(scaleToWad(amount, decimals), rate), nil
}

func (e *Engine) poolPricing(pool [20]byte) (*big.Int, uint8, error) {
	rate, err := e.prices.ExchangeRate(pool)
	if err != nil {
		return nil, 0, fmt.Errorf("lpstaking: query exchange rate: %w", err)
	}
	if rate == nil || rate.Sign() < 0 {
		return nil, 0, fmt.Errorf("lpstaking: invalid exchange rate for pool %x", pool)
	}
	decimals, err := e.prices.LPTokenDecimals(pool)
	if err != nil {
		return nil, 0, fmt.Errorf("lpstaking: query token decimals: %w", err)
	}
	return rate, decimals, nil
}
