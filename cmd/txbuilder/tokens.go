package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityBuilder/internal/balancer"
	"liquidityBuilder/internal/chain"
	"liquidityBuilder/internal/config"
	"liquidityBuilder/internal/model"
	"liquidityBuilder/internal/storage"
	"liquidityBuilder/internal/storage/postgres"
	"liquidityBuilder/internal/tokens"
)

const tokenSyncState = "tokens"

func runTokenSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	if out == "" && cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn or out is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var meta tokens.MetaReader
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		metaLogger := logger.Named("meta")
		meta = func(ctx context.Context, token common.Address) (model.Token, error) {
			return chain.FetchTokenMeta(ctx, chainClient, token, metaLogger)
		}
	} else {
		logger.Warn("no rpc configured, tokens with missing metadata will be stored as listed")
	}

	var (
		sink  storage.Sink
		store *postgres.Store
	)
	if out != "" {
		sink = storage.NewJsonlStorage(out)
	} else {
		store, err = postgres.NewStore(ctx, cfg.PGDSN, cfg.ChainID)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if last, ok, err := store.LoadSyncState(ctx, tokenSyncState); err != nil {
			return err
		} else if ok {
			logger.Info("previous token sync", zap.Time("at", last))
		}
		sink = store
	}

	api := balancer.NewAPIClient(cfg.APIURL, cfg.APIChain, &http.Client{Timeout: apiTimeout})
	syncer := tokens.NewSyncer(api, meta, sink, tokens.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBackoff,
	}, logger.Named("sync"))

	logger.Info("token sync start",
		zap.String("api", cfg.APIURL),
		zap.String("chain", cfg.APIChain),
		zap.Bool("postgres", store != nil),
		zap.String("out", out),
	)

	written, err := syncer.Run(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.SaveSyncState(ctx, tokenSyncState, time.Now().UTC()); err != nil {
			return err
		}
	}
	logger.Info("token sync complete", zap.Int("written", written))
	return nil
}
