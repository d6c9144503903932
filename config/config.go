package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"arcadia/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress            string   `toml:"RPCAddress"`
	DataDir               string   `toml:"DataDir"`
	NetworkName           string   `toml:"NetworkName"`
	OperatorKeystorePath  string   `toml:"OperatorKeystorePath"`
	AuthorityAddress      string   `toml:"AuthorityAddress"`
	PauseAuthorityAddress string   `toml:"PauseAuthorityAddress"`
	PausedModules         []string `toml:"PausedModules,omitempty"`

	Oracle   Oracle   `toml:"oracle"`
	Emission Emission `toml:"emission"`
	Pools    []Pool   `toml:"pool"`
}

// Load loads the configuration from the given path, creating a default file
// with a fresh operator keystore when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}

	for _, undecoded := range meta.Undecoded() {
		if len(undecoded) == 1 && undecoded[0] == "OperatorKey" {
			return nil, fmt.Errorf("config file %s uses deprecated OperatorKey field; re-import the key with arcadia-cli keys import", path)
		}
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "arc-local"
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}

	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.OperatorKeystorePath != keystorePath {
		cfg.OperatorKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	operator := key.PubKey().Address().String()
	cfg := &Config{
		RPCAddress:            ":8080",
		DataDir:               "./arc-data",
		NetworkName:           "arc-local",
		AuthorityAddress:      operator,
		PauseAuthorityAddress: operator,
		PausedModules:         []string{},
		Oracle: Oracle{
			Priority:   []string{"manual"},
			MaxAgeSecs: 300,
		},
		Emission: Emission{
			InitialRate:         "0",
			ReductionFactor:     "1.0",
			ReductionPeriodSecs: 0,
		},
	}
	cfg.OperatorKeystorePath = keystorePath

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
