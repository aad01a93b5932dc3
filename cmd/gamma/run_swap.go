package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krazyTry/gamma-go/gamma/events"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/gamma/swap"
	"github.com/krazyTry/gamma-go/storage/postgres"
)

func runSwap(cmd *cobra.Command, _ []string) error {
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
	count, _ := cmd.Flags().GetInt("count")
	interval, _ := cmd.Flags().GetUint64("interval")
	programLog, _ := cmd.Flags().GetBool("program-log")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, err := newSimulation(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sinks := events.Multi{events.ZapSink{Logger: logger}}
	if programLog {
		sinks = append(sinks, events.NewProgramLogSink(cmd.OutOrStdout()))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	book := sim.newLedger()
	engine := swap.NewEngine(swap.NewSwapper(book, sim.mints,
		swap.WithLogger(logger),
		swap.WithFeePolicy(sim.policy),
		swap.WithClock(sim.clock),
		swap.WithSink(sinks),
	))
	if err := engine.Register(sim.accounts); err != nil {
		return err
	}

	poolID := sim.accounts.PoolID
	out := cmd.OutOrStdout()
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var r *swap.Receipt
		if t.exactOut {
			r, err = engine.SwapBaseOutput(ctx, poolID, sim.baseOutput(t))
		} else {
			r, err = engine.SwapBaseInput(ctx, poolID, sim.baseInput(t))
		}
		if err != nil {
			return fmt.Errorf("swap %d: %w", i, err)
		}
		pool, _, err := engine.Snapshot(poolID)
		if err != nil {
			return err
		}
		printReceipt(out, &pool, r)
		sim.clock.advance(interval)
	}

	pool, obs, err := engine.Snapshot(poolID)
	if err != nil {
		return err
	}
	return printPool(out, logger, &pool, &obs, cfg.TwapWindow)
}

func printPool(w io.Writer, logger *zap.Logger, pool *state.PoolState, obs *state.ObservationState, window uint64) error {
	price0, price1, err := pool.UIPrices()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "reserves:         %s / %s\n",
		uiAmount(pool.Token0VaultAmount, pool.Mint0Decimals), uiAmount(pool.Token1VaultAmount, pool.Mint1Decimals))
	fmt.Fprintf(w, "price:            %s token1 per token0, %s token0 per token1\n", price0, price1)
	fmt.Fprintf(w, "accrued fees:     protocol %d / %d, fund %d / %d\n",
		pool.ProtocolFeesToken0, pool.ProtocolFeesToken1, pool.FundFeesToken0, pool.FundFeesToken1)

	twap0, twap1, ok := obs.TWAP(window)
	if !ok {
		logger.Debug("twap unavailable", zap.Uint64("window", window))
		return nil
	}
	fmt.Fprintf(w, "twap:             %s / %s\n",
		state.PriceX32ToDecimal(twap0, pool.Mint0Decimals, pool.Mint1Decimals),
		state.PriceX32ToDecimal(twap1, pool.Mint1Decimals, pool.Mint0Decimals))
	return nil
}
