package lpstaking

import "math/big"

const moduleName = "lpstaking"

// increasePeriodSeconds is the ramp length over which a sustained stake
// grows from the starting time-boost factor to the full factor.
const increasePeriodSeconds uint64 = 30 * 24 * 60 * 60

var (
	// wad is the common 1e18 fixed-point scale shared by boost factors,
	// exchange rates, and USD valuations.
	wad = big.NewInt(1_000_000_000_000_000_000)

	// timeStartingFactor (0.1) is the boost floor assigned to fresh stake.
	timeStartingFactor = big.NewInt(100_000_000_000_000_000)

	// minBoost (1.0) and maxBoost (10.0) clamp the combined multiplier.
	minBoost = new(big.Int).Set(wad)
	maxBoost = new(big.Int).Mul(big.NewInt(10), wad)

	// tvlFactor (50.0) scales the stake-share component: a holder of the
	// entire system value earns tvlFactor extra on top of the base 1.0.
	tvlFactor = new(big.Int).Mul(big.NewInt(50), wad)
)
