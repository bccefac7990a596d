package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Sonic defaults.
const (
	DefaultChainID = 146
	DefaultAPIURL  = "https://backend-v3.beets-ftm-node.com"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Listen   string
	RPCURL   string
	ChainID  int64
	APIURL   string
	APIChain string

	SignerKey   string
	DeadlineTTL time.Duration

	V2Vault           string
	V2Queries         string
	V3Router          string
	V3BatchRouter     string
	V3CompositeRouter string
	Permit2           string
	StakingContract   string
	StakingPool       string

	MaxPriceImpact  string
	DefaultSlippage string

	TokenSource string
	PGDSN       string

	RateLimitRPM   int
	RateLimitBurst int
	AuthJWTSecret  string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	MaxRetries   int
	RetryBackoff time.Duration

	LogLevel string
	LogFile  string
}

// Token sources.
const (
	TokenSourceAPI      = "api"
	TokenSourcePostgres = "postgres"
)

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TXBUILDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":3000")
	v.SetDefault("chain-id", DefaultChainID)
	v.SetDefault("api-url", DefaultAPIURL)
	v.SetDefault("api-chain", "SONIC")
	v.SetDefault("deadline-ttl", 30*time.Minute)
	v.SetDefault("v2-vault", "0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	v.SetDefault("v2-queries", "0x4B29DB997Ec0efDFEF13bAeE2a2D7783bCf67f17")
	v.SetDefault("v3-router", "0x6077b9801B5627a65A5eeE70697C793751D1a71c")
	v.SetDefault("v3-batch-router", "0x7761659F9e9834ad367e4d25E0306ba7A4968DAf")
	v.SetDefault("v3-composite-router", "0xE42FFA682A26EF8F25891db4882932711D42e467")
	v.SetDefault("permit2", "0x000000000022D473030F116dDEE9F6B43aC78BA3")
	v.SetDefault("staking-contract", "0xE5DA20F15420aD15DE0fa650600aFc998bbE3955")
	v.SetDefault("staking-pool", "0xD5F7FC8ba92756a34693bAA386Edcc8Dd5B3F141")
	v.SetDefault("max-price-impact", "5")
	v.SetDefault("default-slippage", "0.5")
	v.SetDefault("token-source", TokenSourceAPI)
	v.SetDefault("rate-limit-rpm", 600)
	v.SetDefault("rate-limit-burst", 50)
	v.SetDefault("read-timeout", 15*time.Second)
	v.SetDefault("write-timeout", 30*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Listen:            v.GetString("listen"),
		RPCURL:            v.GetString("rpc"),
		ChainID:           v.GetInt64("chain-id"),
		APIURL:            v.GetString("api-url"),
		APIChain:          v.GetString("api-chain"),
		SignerKey:         v.GetString("signer-key"),
		DeadlineTTL:       v.GetDuration("deadline-ttl"),
		V2Vault:           v.GetString("v2-vault"),
		V2Queries:         v.GetString("v2-queries"),
		V3Router:          v.GetString("v3-router"),
		V3BatchRouter:     v.GetString("v3-batch-router"),
		V3CompositeRouter: v.GetString("v3-composite-router"),
		Permit2:           v.GetString("permit2"),
		StakingContract:   v.GetString("staking-contract"),
		StakingPool:       v.GetString("staking-pool"),
		MaxPriceImpact:    v.GetString("max-price-impact"),
		DefaultSlippage:   v.GetString("default-slippage"),
		TokenSource:       strings.ToLower(v.GetString("token-source")),
		PGDSN:             v.GetString("pg-dsn"),
		RateLimitRPM:      v.GetInt("rate-limit-rpm"),
		RateLimitBurst:    v.GetInt("rate-limit-burst"),
		AuthJWTSecret:     v.GetString("auth-jwt-secret"),
		ReadTimeout:       v.GetDuration("read-timeout"),
		WriteTimeout:      v.GetDuration("write-timeout"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
		LogFile:           v.GetString("log-file"),
	}

	return cfg, nil
}

// Validate checks the values the server cannot start without.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive")
	}
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	switch c.TokenSource {
	case TokenSourceAPI:
	case TokenSourcePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for token-source %s", TokenSourcePostgres)
		}
	default:
		return fmt.Errorf("unknown token-source %q", c.TokenSource)
	}
	if _, err := c.Contracts(); err != nil {
		return err
	}
	return nil
}
