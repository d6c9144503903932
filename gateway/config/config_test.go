package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsRequireSecretWhenAuthEnabled(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected default load to fail without an auth secret")
	}
	t.Setenv("ARCADIA_GATEWAY_JWT_SECRET", "s3cret")
	path := writeConfig(t, "auth:\n  secretEnv: ARCADIA_GATEWAY_JWT_SECRET\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Auth.Enabled {
		t.Fatalf("expected auth.enabled to default to true")
	}
	if cfg.Auth.Secret() != "s3cret" {
		t.Fatalf("expected secret from environment, got %q", cfg.Auth.Secret())
	}
}

func TestLoadParsesFullConfig(t *testing.T) {
	yaml := strings.Join([]string{
		"listen: ':9090'",
		"readTimeout: 15s",
		"node:",
		"  endpoint: http://10.0.0.5:8080",
		"  tokenEnv: NODE_TOKEN",
		"  timeout: 5s",
		"auth:",
		"  enabled: true",
		"  hmacSecret: inline-secret",
		"  issuer: arcadia",
		"  audience: arcadia-gateway",
		"rateLimits:",
		"  - id: staking-write",
		"    ratePerSecond: 2",
		"    burst: 10",
		"  - id: admin",
		"    requestsPerMinute: 30",
		"    burst: 5",
		"cors:",
		"  allowedOrigins: ['https://app.example.com']",
	}, "\n")
	path := writeConfig(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":9090" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.ReadTimeout)
	}
	if cfg.Node.Endpoint != "http://10.0.0.5:8080" || cfg.Node.TokenEnv != "NODE_TOKEN" {
		t.Fatalf("unexpected node config %+v", cfg.Node)
	}
	if cfg.Node.Timeout != 5*time.Second {
		t.Fatalf("unexpected node timeout %s", cfg.Node.Timeout)
	}
	if len(cfg.RateLimits) != 2 || cfg.RateLimits[0].ID != "staking-write" {
		t.Fatalf("unexpected rate limits %+v", cfg.RateLimits)
	}
	if cfg.Auth.Issuer != "arcadia" || cfg.Auth.Secret() != "inline-secret" {
		t.Fatalf("unexpected auth config %+v", cfg.Auth)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Fatalf("unexpected cors config %+v", cfg.CORS)
	}
	if cfg.Observability.ServiceName != "arcadia-gateway" {
		t.Fatalf("expected default service name, got %q", cfg.Observability.ServiceName)
	}
}

func TestLoadAllowsDisablingAuthExplicitly(t *testing.T) {
	path := writeConfig(t, "auth:\n  enabled: false\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Auth.Enabled {
		t.Fatalf("expected auth disabled")
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty listen", "listen: ' '\nauth:\n  enabled: false\n"},
		{"bad node endpoint", "node:\n  endpoint: 'ftp://node'\nauth:\n  enabled: false\n"},
		{"blank rate limit id", "auth:\n  enabled: false\nrateLimits:\n  - id: ''\n"},
		{"duplicate rate limit id", "auth:\n  enabled: false\nrateLimits:\n  - id: a\n  - id: a\n"},
		{"negative rate", "auth:\n  enabled: false\nrateLimits:\n  - id: a\n    ratePerSecond: -1\n"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.yaml)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected load to fail", tc.name)
		}
	}
}

func TestApplyDefaultsFillsNodeSettings(t *testing.T) {
	path := writeConfig(t, "auth:\n  enabled: false\nnode:\n  endpoint: http://127.0.0.1:8080\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Node.TokenEnv != "ARCADIA_RPC_TOKEN" {
		t.Fatalf("expected default token env, got %q", cfg.Node.TokenEnv)
	}
	if cfg.Node.Timeout != 10*time.Second {
		t.Fatalf("expected default node timeout, got %s", cfg.Node.Timeout)
	}
	if cfg.Auth.ScopeClaim != "scope" || cfg.Auth.ClockSkew != 2*time.Minute {
		t.Fatalf("expected auth defaults, got %+v", cfg.Auth)
	}
}
