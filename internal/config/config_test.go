package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != DefaultChainID {
		t.Fatalf("chain id: %d", cfg.ChainID)
	}
	if cfg.DefaultSlippage != "0.5" || cfg.MaxPriceImpact != "5" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenSource != TokenSourceAPI {
		t.Fatalf("token source: %s", cfg.TokenSource)
	}
	if cfg.DeadlineTTL != 30*time.Minute {
		t.Fatalf("deadline ttl: %s", cfg.DeadlineTTL)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "txbuilder.yaml")
	content := "rpc: http://file-rpc\nlisten: \":9000\"\ntoken-source: POSTGRES\npg-dsn: postgres://localhost/tokens\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TXBUILDER_LISTEN", ":9100")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.String("listen", ":3000", "")
	if err := flags.Parse([]string{"--rpc", "http://flag-rpc"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://flag-rpc" {
		t.Fatalf("flag should win, got %s", cfg.RPCURL)
	}
	if cfg.Listen != ":9100" {
		t.Fatalf("env should beat file and unset flag, got %s", cfg.Listen)
	}
	if cfg.TokenSource != TokenSourcePostgres {
		t.Fatalf("token source: %s", cfg.TokenSource)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.RPCURL = "" }},
		{"postgres without dsn", func(c *Config) { c.TokenSource = TokenSourcePostgres }},
		{"unknown token source", func(c *Config) { c.TokenSource = "redis" }},
		{"bad router", func(c *Config) { c.V3Router = "0x12" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.RPCURL = "http://rpc"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestContracts(t *testing.T) {
	cfg := Config{
		V2Vault:           "0xBA12222222228d8Ba445958a75a0704d566BF2C8",
		V2Queries:         "0x4B29DB997Ec0efDFEF13bAeE2a2D7783bCf67f17",
		V3Router:          "0x6077b9801b5627a65a5eee70697c793751d1a71c",
		V3BatchRouter:     "0x7761659F9e9834ad367e4d25E0306ba7A4968DAf",
		V3CompositeRouter: "0xE42FFA682A26EF8F25891db4882932711D42e467",
		Permit2:           "0x000000000022D473030F116dDEE9F6B43aC78BA3",
		StakingContract:   " 0xE5DA20F15420aD15DE0fa650600aFc998bbE3955 ",
		StakingPool:       "0xD5F7FC8ba92756a34693bAA386Edcc8Dd5B3F141",
	}
	contracts, err := cfg.Contracts()
	if err != nil {
		t.Fatalf("contracts: %v", err)
	}
	if contracts.V3Router != common.HexToAddress("0x6077b9801B5627a65A5eeE70697C793751D1a71c") {
		t.Fatalf("router: %s", contracts.V3Router.Hex())
	}
	if contracts.StakingContract != common.HexToAddress("0xE5DA20F15420aD15DE0fa650600aFc998bbE3955") {
		t.Fatalf("staking: %s", contracts.StakingContract.Hex())
	}
	if contracts.StakingPool != common.HexToAddress("0xD5F7FC8ba92756a34693bAA386Edcc8Dd5B3F141") {
		t.Fatalf("staking pool: %s", contracts.StakingPool.Hex())
	}
}

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0x0000000000000000000000000000000000000001", "", "0x0000000000000000000000000000000000000002"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got))
	}
	if _, err := ParseAddresses([]string{"nope"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
