package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/krazyTry/gamma-go/config"
	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/gamma/swap"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

func parseTrade(cmd *cobra.Command) (trade, error) {
	direction, _ := cmd.Flags().GetString("direction")
	oneForZero, err := parseDirection(direction)
	if err != nil {
		return trade{}, err
	}
	t := trade{oneForZero: oneForZero}
	t.exactOut, _ = cmd.Flags().GetBool("exact-out")
	t.amount, _ = cmd.Flags().GetUint64("amount")
	t.bound, _ = cmd.Flags().GetUint64("bound")
	if t.amount == 0 {
		return trade{}, fmt.Errorf("--amount is required")
	}
	return t, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	t, err := parseTrade(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sim, err := newSimulation(ctx, cfg, logger)
	if err != nil {
		return err
	}

	recorder := ledger.NewInstructionRecorder(sim.mints.Program)
	swapper := swap.NewSwapper(recorder, sim.mints,
		swap.WithLogger(logger),
		swap.WithFeePolicy(sim.policy),
		swap.WithClock(sim.clock),
	)
	r, err := execute(ctx, swapper, sim.accounts, sim, t)
	if err != nil {
		return err
	}

	printReceipt(cmd.OutOrStdout(), sim.accounts.Pool, r)
	for _, batch := range recorder.Batches() {
		fmt.Fprintf(cmd.OutOrStdout(), "instructions:     %d\n", len(batch))
	}
	return nil
}

func printReceipt(w io.Writer, pool *state.PoolState, r *swap.Receipt) {
	_, _, inDecimals, outDecimals := pool.Mints(r.Direction)
	fmt.Fprintf(w, "direction:        %s\n", r.Direction)
	fmt.Fprintf(w, "amount in:        %s\n", uiAmount(r.AmountIn, inDecimals))
	fmt.Fprintf(w, "amount out:       %s\n", uiAmount(r.AmountOut, outDecimals))
	fmt.Fprintf(w, "trade fee:        %s (rate %d)\n", uiAmount(r.DynamicFee, inDecimals), r.DynamicFeeRate)
	fmt.Fprintf(w, "protocol fee:     %s\n", uiAmount(r.ProtocolFee, inDecimals))
	fmt.Fprintf(w, "fund fee:         %s\n", uiAmount(r.FundFee, inDecimals))
	if r.InputTransferFee > 0 || r.OutputTransferFee > 0 {
		fmt.Fprintf(w, "transfer fees:    %s in, %s out\n",
			uiAmount(r.InputTransferFee, inDecimals), uiAmount(r.OutputTransferFee, outDecimals))
	}
}
