package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig points the gateway at the staking node's JSON-RPC endpoint.
// The bearer token for privileged node methods is read from the environment
// variable named by TokenEnv so the secret never lives in the YAML file.
type NodeConfig struct {
	Endpoint string        `yaml:"endpoint"`
	TokenEnv string        `yaml:"tokenEnv"`
	Timeout  time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	ID                string  `yaml:"id"`
	RequestsPerMinute float64 `yaml:"requestsPerMinute"`
	RatePerSecond     float64 `yaml:"ratePerSecond"`
	Burst             int     `yaml:"burst"`
}

type ObservabilityConfig struct {
	ServiceName   string `yaml:"serviceName"`
	Metrics       bool   `yaml:"metrics"`
	Tracing       bool   `yaml:"tracing"`
	LogRequests   bool   `yaml:"logRequests"`
	MetricsPrefix string `yaml:"metricsPrefix"`
}

// AuthConfig describes JWT bearer verification for mutating routes. The HMAC
// secret may be inlined or, preferably, pulled from the environment variable
// named by SecretEnv.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	HMACSecret string        `yaml:"hmacSecret"`
	SecretEnv  string        `yaml:"secretEnv"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	ScopeClaim string        `yaml:"scopeClaim"`
	ClockSkew  time.Duration `yaml:"clockSkew"`

	enabledSet bool `yaml:"-"`
}

func (a *AuthConfig) UnmarshalYAML(node *yaml.Node) error {
	type rawAuthConfig struct {
		Enabled    *bool         `yaml:"enabled"`
		HMACSecret string        `yaml:"hmacSecret"`
		SecretEnv  string        `yaml:"secretEnv"`
		Issuer     string        `yaml:"issuer"`
		Audience   string        `yaml:"audience"`
		ScopeClaim string        `yaml:"scopeClaim"`
		ClockSkew  time.Duration `yaml:"clockSkew"`
	}
	var raw rawAuthConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Enabled != nil {
		a.Enabled = *raw.Enabled
		a.enabledSet = true
	}
	a.HMACSecret = raw.HMACSecret
	a.SecretEnv = raw.SecretEnv
	a.Issuer = raw.Issuer
	a.Audience = raw.Audience
	a.ScopeClaim = raw.ScopeClaim
	a.ClockSkew = raw.ClockSkew
	return nil
}

// Secret resolves the effective HMAC secret, preferring the environment.
func (a AuthConfig) Secret() string {
	if env := strings.TrimSpace(a.SecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	AllowedMethods []string `yaml:"allowedMethods"`
	AllowedHeaders []string `yaml:"allowedHeaders"`
}

type Config struct {
	ListenAddress string              `yaml:"listen"`
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	Node          NodeConfig          `yaml:"node"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	Observability ObservabilityConfig `yaml:"observability"`
	Auth          AuthConfig          `yaml:"auth"`
	CORS          CORSConfig          `yaml:"cors"`
}

// Load reads the YAML configuration from path, or returns secure defaults
// when path is empty.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":8081",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   120 * time.Second,
		Node: NodeConfig{
			Endpoint: "http://127.0.0.1:8080",
			TokenEnv: "ARCADIA_RPC_TOKEN",
			Timeout:  10 * time.Second,
		},
		Observability: ObservabilityConfig{
			ServiceName:   "arcadia-gateway",
			Metrics:       true,
			Tracing:       true,
			LogRequests:   true,
			MetricsPrefix: "gateway",
		},
		Auth: AuthConfig{
			Enabled:    true,
			SecretEnv:  "ARCADIA_GATEWAY_JWT_SECRET",
			ScopeClaim: "scope",
			ClockSkew:  2 * time.Minute,
			enabledSet: true,
		},
	}
	if path == "" {
		cfg.applyDefaults()
		if err := cfg.Validate(); err != nil {
			return Config{}, fmt.Errorf("validate config: %w", err)
		}
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg == nil {
		return
	}
	if !cfg.Auth.enabledSet {
		cfg.Auth.Enabled = true
		cfg.Auth.enabledSet = true
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if cfg.Auth.ScopeClaim == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if strings.TrimSpace(cfg.Auth.SecretEnv) == "" {
		cfg.Auth.SecretEnv = "ARCADIA_GATEWAY_JWT_SECRET"
	}
	if strings.TrimSpace(cfg.Node.TokenEnv) == "" {
		cfg.Node.TokenEnv = "ARCADIA_RPC_TOKEN"
	}
	if cfg.Node.Timeout <= 0 {
		cfg.Node.Timeout = 10 * time.Second
	}
}

func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen address is required")
	}
	if strings.TrimSpace(cfg.Node.Endpoint) == "" {
		return fmt.Errorf("node.endpoint is required")
	}
	if !strings.HasPrefix(cfg.Node.Endpoint, "http://") && !strings.HasPrefix(cfg.Node.Endpoint, "https://") {
		return fmt.Errorf("node.endpoint must be an http or https URL")
	}
	if cfg.Auth.Enabled && cfg.Auth.Secret() == "" {
		return fmt.Errorf("auth is enabled but no HMAC secret is configured (set auth.hmacSecret or auth.secretEnv)")
	}
	seen := make(map[string]bool, len(cfg.RateLimits))
	for i, entry := range cfg.RateLimits {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return fmt.Errorf("rateLimits[%d].id cannot be empty", i)
		}
		if seen[id] {
			return fmt.Errorf("rateLimits[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
		if entry.RatePerSecond < 0 || entry.RequestsPerMinute < 0 {
			return fmt.Errorf("rateLimits[%d]: rates cannot be negative", i)
		}
	}
	return nil
}
