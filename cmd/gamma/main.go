package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "gamma",
		Short:        "Simulate swaps against a constant-product pool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	addPoolFlags(root.PersistentFlags())

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a single swap without moving balances",
		RunE:  runQuote,
	}
	addTradeFlags(quoteCmd.Flags())
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute swaps against an in-memory ledger",
		RunE:  runSwap,
	}
	addTradeFlags(swapCmd.Flags())
	swapCmd.Flags().Int("count", 1, "number of identical swaps to run")
	swapCmd.Flags().Uint64("interval", 15, "seconds between swaps when --timestamp is fixed")
	swapCmd.Flags().Bool("program-log", false, "print events as program log lines")
	root.AddCommand(swapCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPoolFlags(fs *pflag.FlagSet) {
	fs.String("rpc", "", "Solana RPC URL used to fetch mints and the current epoch")
	fs.String("pg-dsn", "", "Postgres DSN for swap events")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")

	fs.Uint64("trade-fee-rate", 2_500, "trade fee rate over 1e6")
	fs.Uint64("protocol-fee-rate", 120_000, "protocol share of the trade fee over 1e6")
	fs.Uint64("fund-fee-rate", 40_000, "fund share of the trade fee over 1e6")

	fs.String("pool", "", "pool address (random when empty)")
	fs.Uint64("reserve0", 1_000_000_000, "token0 reserve")
	fs.Uint64("reserve1", 1_000_000_000, "token1 reserve")
	fs.Uint64("open-time", 0, "unix time the pool opens")
	for side, decimals := range map[string]uint8{"token0": 9, "token1": 6} {
		fs.String(side+"-mint", "", side+" mint address (random when empty)")
		fs.Uint8(side+"-decimals", decimals, side+" decimals")
		fs.Bool(side+"-token2022", false, side+" is a Token-2022 mint")
		fs.Uint16(side+"-transfer-fee-bps", 0, side+" transfer fee in basis points")
		fs.Uint64(side+"-transfer-fee-max", 0, side+" maximum transfer fee")
	}

	fs.Uint64("twap-window", 300, "seconds of oracle history used by the volatility fee")
	fs.Uint64("volatility-factor", 0, "fee rate added per unit of relative price drift")
	fs.Uint64("max-fee-rate", 0, "cap on the dynamic fee rate (0: none)")
	fs.Uint64("segmenter-discount-bps", 0, "discount for trusted segmenters")

	fs.Uint64("epoch", 0, "epoch used for transfer fee schedules")
	fs.Uint64("timestamp", 0, "fixed unix time for the clock (0: wall clock)")
}

func addTradeFlags(fs *pflag.FlagSet) {
	fs.String("direction", "0to1", "trade direction (0to1, 1to0)")
	fs.Bool("exact-out", false, "treat --amount as the amount to receive")
	fs.Uint64("amount", 0, "amount in, or amount out with --exact-out")
	fs.Uint64("bound", 0, "minimum out, or maximum in with --exact-out (0: unbounded)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
