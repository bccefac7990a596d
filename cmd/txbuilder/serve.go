package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityBuilder/internal/balancer"
	"liquidityBuilder/internal/chain"
	"liquidityBuilder/internal/config"
	"liquidityBuilder/internal/pipeline"
	"liquidityBuilder/internal/server"
	"liquidityBuilder/internal/signer"
	"liquidityBuilder/internal/storage/postgres"
	"liquidityBuilder/internal/tokens"
)

const apiTimeout = 20 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	contracts, err := cfg.Contracts()
	if err != nil {
		return err
	}
	maxImpact, err := decimal.NewFromString(cfg.MaxPriceImpact)
	if err != nil {
		return fmt.Errorf("max-price-impact: %w", err)
	}
	swapSlippage, err := decimal.NewFromString(cfg.DefaultSlippage)
	if err != nil {
		return fmt.Errorf("default-slippage: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if chainID.Cmp(big.NewInt(cfg.ChainID)) != 0 {
		return fmt.Errorf("rpc chain id %s does not match configured %d", chainID, cfg.ChainID)
	}

	addrs := balancer.Addresses{
		V2Vault:           contracts.V2Vault,
		V2Queries:         contracts.V2Queries,
		V3Router:          contracts.V3Router,
		V3BatchRouter:     contracts.V3BatchRouter,
		V3CompositeRouter: contracts.V3CompositeRouter,
		Permit2:           contracts.Permit2,
	}
	api := balancer.NewAPIClient(cfg.APIURL, cfg.APIChain, &http.Client{Timeout: apiTimeout})

	var tokenResolver pipeline.TokenResolver = tokens.NewAPIResolver(api)
	if cfg.TokenSource == config.TokenSourcePostgres {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.ChainID)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		tokenResolver = tokens.NewCatalogResolver(store)
	}

	deps := pipeline.Deps{
		Balances: chainClient,
		Pools:    balancer.NewResolver(api, chainClient, addrs, logger.Named("resolver")),
		Tokens:   tokenResolver,
		Swaps:    api,
		Encoder:  balancer.NewEncoder(addrs),
		Staking:  chain.StakingEncoder{},
		Nonces:   chainClient,
		Logger:   logger.Named("pipeline"),
	}
	if cfg.SignerKey != "" {
		keySigner, err := signer.NewKeySigner(cfg.SignerKey)
		if err != nil {
			return err
		}
		deps.Signer = keySigner
		logger.Info("permit signer loaded", zap.String("address", keySigner.Address().Hex()))
	} else {
		logger.Warn("no signer key configured, v3 permit operations will fail")
	}

	builder := pipeline.New(pipeline.Config{
		ChainID:         chainID,
		MaxPriceImpact:  maxImpact,
		Permit2:         contracts.Permit2,
		StakingContract: contracts.StakingContract,
		StakingPool:     contracts.StakingPool,
		DeadlineTTL:     cfg.DeadlineTTL,
	}, deps)

	srv := server.New(builder, server.Options{
		SwapSlippage:   swapSlippage,
		RateLimitRPM:   cfg.RateLimitRPM,
		RateLimitBurst: cfg.RateLimitBurst,
		JWTSecret:      cfg.AuthJWTSecret,
		Logger:         logger.Named("http"),
	})

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("txbuilder start",
		zap.String("listen", cfg.Listen),
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("api", cfg.APIURL),
		zap.String("token_source", cfg.TokenSource),
		zap.Bool("auth_enabled", cfg.AuthJWTSecret != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
