package config

// Pool declares one staking pool registered at node start. Addresses are
// bech32 "arc" strings; the feed string follows the pricing binding syntax
// (fixed:<wad>, manual:<SYM>, http:<SYM>, or a bare symbol).
type Pool struct {
	Name        string `toml:"Name"`
	Address     string `toml:"Address"`
	LPToken     string `toml:"LPToken"`
	Decimals    uint8  `toml:"Decimals"`
	Distributor string `toml:"Distributor"`
	WeightBps   uint64 `toml:"WeightBps"`
	PriceFeed   string `toml:"PriceFeed"`
}

// Emission shapes the inflation schedule. Rates are decimal strings so
// operators never write 18-decimal integers by hand.
type Emission struct {
	// InitialRate is the genesis global emission in ARC base units per second.
	InitialRate string `toml:"InitialRate"`
	// ReductionFactor is the decimal multiplier applied at every boundary,
	// e.g. "0.6" for a 40% cut.
	ReductionFactor string `toml:"ReductionFactor"`
	// ReductionPeriodSecs spaces the boundaries; zero defaults to one year.
	ReductionPeriodSecs uint64 `toml:"ReductionPeriodSecs"`
}

// Oracle configures the price aggregator.
type Oracle struct {
	// Priority orders the registered sources for bare-symbol sweeps.
	Priority []string `toml:"Priority"`
	// MaxAgeSecs bounds quote staleness; zero disables the check.
	MaxAgeSecs uint64 `toml:"MaxAgeSecs"`
	// HTTPEndpoint enables the HTTP source when set.
	HTTPEndpoint string `toml:"HTTPEndpoint"`
	// HTTPAPIKeyEnv names the environment variable holding the API key.
	HTTPAPIKeyEnv string `toml:"HTTPAPIKeyEnv"`
}
