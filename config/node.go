package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"arcadia/core"
	"arcadia/native/emission"
	"arcadia/native/pricing"
)

var wad = big.NewInt(1_000_000_000_000_000_000)

// parse resolves the emission section into runtime values.
func (e Emission) parse() (*big.Int, *big.Int, error) {
	rate := big.NewInt(0)
	if trimmed := strings.TrimSpace(e.InitialRate); trimmed != "" {
		parsed, ok := new(big.Int).SetString(trimmed, 10)
		if !ok || parsed.Sign() < 0 {
			return nil, nil, fmt.Errorf("emission: invalid InitialRate %q", e.InitialRate)
		}
		rate = parsed
	}
	factor := new(big.Int).Set(wad)
	if trimmed := strings.TrimSpace(e.ReductionFactor); trimmed != "" {
		parsed, err := pricing.ParseDecimalWad(trimmed)
		if err != nil {
			return nil, nil, fmt.Errorf("emission: invalid ReductionFactor %q: %v", e.ReductionFactor, err)
		}
		if parsed.Cmp(wad) > 0 {
			return nil, nil, fmt.Errorf("emission: ReductionFactor %q must not exceed 1.0", e.ReductionFactor)
		}
		factor = parsed
	}
	return rate, factor, nil
}

// NodeConfig resolves the file configuration into the node's runtime wiring.
// ValidateConfig must pass before calling it.
func (c *Config) NodeConfig() (core.Config, error) {
	authority, err := parseAddress(c.AuthorityAddress)
	if err != nil {
		return core.Config{}, fmt.Errorf("AuthorityAddress: %w", err)
	}
	pauser, err := parseAddress(c.PauseAuthorityAddress)
	if err != nil {
		return core.Config{}, fmt.Errorf("PauseAuthorityAddress: %w", err)
	}

	pools := make([]core.PoolConfig, 0, len(c.Pools))
	for _, pool := range c.Pools {
		addr, err := parseAddress(pool.Address)
		if err != nil {
			return core.Config{}, fmt.Errorf("pool %s: Address: %w", pool.Name, err)
		}
		token, err := parseAddress(pool.LPToken)
		if err != nil {
			return core.Config{}, fmt.Errorf("pool %s: LPToken: %w", pool.Name, err)
		}
		distributor, err := parseAddress(pool.Distributor)
		if err != nil {
			return core.Config{}, fmt.Errorf("pool %s: Distributor: %w", pool.Name, err)
		}
		pools = append(pools, core.PoolConfig{
			Pool:        addr,
			LPToken:     token,
			Decimals:    pool.Decimals,
			Distributor: distributor,
			WeightBps:   pool.WeightBps,
			PriceFeed:   pool.PriceFeed,
		})
	}

	rate, factor, err := c.Emission.parse()
	if err != nil {
		return core.Config{}, err
	}

	return core.Config{
		Authority:      authority,
		PauseAuthority: pauser,
		Pools:          pools,
		Emission: emission.Config{
			InitialRate:     rate,
			ReductionFactor: factor,
			ReductionPeriod: c.Emission.ReductionPeriodSecs,
		},
	}, nil
}

// BuildOracle assembles the price aggregator from the oracle section. The
// manual source is always registered (and returned so admin surfaces can push
// overrides); the HTTP source joins when an endpoint is configured.
func (c *Config) BuildOracle() (*pricing.Aggregator, *pricing.Manual) {
	oracle := c.Oracle
	aggregator := pricing.NewAggregator(oracle.Priority, time.Duration(oracle.MaxAgeSecs)*time.Second)
	manual := pricing.NewManual()
	aggregator.Register("manual", manual)
	if strings.TrimSpace(oracle.HTTPEndpoint) != "" {
		apiKey := ""
		if oracle.HTTPAPIKeyEnv != "" {
			apiKey = os.Getenv(oracle.HTTPAPIKeyEnv)
		}
		aggregator.Register("http", pricing.NewHTTP(nil, oracle.HTTPEndpoint, apiKey))
	}
	return aggregator, manual
}
