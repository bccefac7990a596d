package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "txbuilder",
		Short:        "Balancer liquidity transaction builder for Sonic",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transaction builder HTTP API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":3000", "HTTP listen address")
	serveCmd.Flags().String("rpc", "", "Sonic RPC URL")
	serveCmd.Flags().Int64("chain-id", 146, "expected chain id")
	serveCmd.Flags().String("api-url", "", "Balancer API GraphQL endpoint")
	serveCmd.Flags().String("api-chain", "SONIC", "Balancer API chain name")
	serveCmd.Flags().String("signer-key", "", "hex private key that signs v3 permits")
	serveCmd.Flags().Duration("deadline-ttl", 30*time.Minute, "validity of built calls and permits")
	serveCmd.Flags().String("max-price-impact", "5", "price impact ceiling in percent")
	serveCmd.Flags().String("default-slippage", "0.5", "swap slippage in percent when the request has none")
	serveCmd.Flags().String("token-source", "api", "token resolution source (api, postgres)")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for the token catalog")
	serveCmd.Flags().Int("rate-limit-rpm", 600, "requests per minute per client, 0 disables")
	serveCmd.Flags().Int("rate-limit-burst", 50, "rate limit burst")
	serveCmd.Flags().String("auth-jwt-secret", "", "HS256 secret guarding permit-signing routes")
	serveCmd.Flags().Duration("read-timeout", 15*time.Second, "HTTP read timeout")
	serveCmd.Flags().Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().String("log-file", "", "optional rotating log file")

	root.AddCommand(serveCmd)

	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Token catalog maintenance",
	}
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the API token list into the token catalog",
		RunE:  runTokenSync,
	}

	syncCmd.Flags().String("rpc", "", "Sonic RPC URL used to fill missing metadata")
	syncCmd.Flags().Int64("chain-id", 146, "chain id the catalog rows belong to")
	syncCmd.Flags().String("api-url", "", "Balancer API GraphQL endpoint")
	syncCmd.Flags().String("api-chain", "SONIC", "Balancer API chain name")
	syncCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	syncCmd.Flags().String("out", "", "write JSONL to this path instead of Postgres")
	syncCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	syncCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	syncCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	syncCmd.Flags().String("log-file", "", "optional rotating log file")

	tokensCmd.AddCommand(syncCmd)
	root.AddCommand(tokensCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
