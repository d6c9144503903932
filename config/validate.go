package config

import (
	"fmt"
	"strings"

	"arcadia/crypto"
)

const maxWeightBps = 10_000

// ValidateConfig rejects configurations the node could not run with: bad
// addresses, duplicate pools, over-allocated weights, or unparsable emission
// parameters.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if _, err := parseAddress(cfg.AuthorityAddress); err != nil {
		return fmt.Errorf("AuthorityAddress: %w", err)
	}
	if _, err := parseAddress(cfg.PauseAuthorityAddress); err != nil {
		return fmt.Errorf("PauseAuthorityAddress: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Pools))
	var totalWeight uint64
	for i, pool := range cfg.Pools {
		label := pool.Name
		if label == "" {
			label = fmt.Sprintf("pool[%d]", i)
		}
		if _, err := parseAddress(pool.Address); err != nil {
			return fmt.Errorf("%s: Address: %w", label, err)
		}
		if _, err := parseAddress(pool.LPToken); err != nil {
			return fmt.Errorf("%s: LPToken: %w", label, err)
		}
		if _, err := parseAddress(pool.Distributor); err != nil {
			return fmt.Errorf("%s: Distributor: %w", label, err)
		}
		if _, dup := seen[pool.Address]; dup {
			return fmt.Errorf("%s: duplicate pool address %s", label, pool.Address)
		}
		seen[pool.Address] = struct{}{}
		if pool.Decimals > 36 {
			return fmt.Errorf("%s: Decimals %d out of range", label, pool.Decimals)
		}
		if pool.WeightBps > maxWeightBps {
			return fmt.Errorf("%s: WeightBps %d exceeds %d", label, pool.WeightBps, maxWeightBps)
		}
		totalWeight += pool.WeightBps
		if strings.TrimSpace(pool.PriceFeed) == "" {
			return fmt.Errorf("%s: PriceFeed must not be empty", label)
		}
	}
	if totalWeight > maxWeightBps {
		return fmt.Errorf("pool weights sum to %d bps, exceeding %d", totalWeight, maxWeightBps)
	}

	if _, _, err := cfg.Emission.parse(); err != nil {
		return err
	}
	return nil
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, fmt.Errorf("address must not be empty")
	}
	decoded, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	if decoded.Prefix() != crypto.ARCPrefix {
		return [20]byte{}, fmt.Errorf("unexpected address prefix %q", decoded.Prefix())
	}
	var raw [20]byte
	copy(raw[:], decoded.Bytes())
	return raw, nil
}
