package lpstaking

import "math/big"

// PoolRegistry enumerates the pools the engine accounts for. The snapshot
// order returned by Pools is stable so valuation sweeps are deterministic.
type PoolRegistry interface {
	IsRegistered(pool [20]byte) (bool, error)
	Pools() ([][20]byte, error)
	// Distributor returns the reward-distribution address registered for the
	// pool. Only this identity may trigger the public claim path.
	Distributor(pool [20]byte) ([20]byte, error)
}

// PriceSource converts a pool's LP token into the common 18-decimal USD
// denomination: a wad exchange rate per whole token, plus the token's native
// decimals.
type PriceSource interface {
	ExchangeRate(pool [20]byte) (*big.Int, error)
	LPTokenDecimals(pool [20]byte) (uint8, error)
}

// RateOracle supplies the per-pool inflation entitlement in ARC base units
// per second. NotifyRateUpdate is invoked after every reward mint so the
// oracle can roll scheduled rate changes forward.
type RateOracle interface {
	CurrentRate(pool [20]byte) (*big.Int, error)
	NotifyRateUpdate() error
}

// RewardSink is the external per-account reward bookkeeper. It is
// checkpointed before every stake or unstake that will shift the account's
// boost, so downstream reward accounting observes the pre-change weights.
type RewardSink interface {
	CheckpointAccount(pool, account [20]byte) error
}

// TokenIssuer mints ARC. Authorization is the issuer's concern; the engine
// only ever mints what the accrual ledger owes.
type TokenIssuer interface {
	Mint(recipient [20]byte, amount *big.Int) error
}

// AssetVault is the LP custody primitive. TransferIn pulls tokens from the
// funding account into pool custody; TransferOut releases them. Both either
// fully succeed or fail the surrounding operation.
type AssetVault interface {
	TransferIn(pool, from [20]byte, amount *big.Int) error
	TransferOut(pool, to [20]byte, amount *big.Int) error
}
