package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/krazyTry/gamma-go/config"
	"github.com/krazyTry/gamma-go/gamma/curve"
	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/gamma/swap"
	tokenutil "github.com/krazyTry/gamma-go/solana"
	"github.com/krazyTry/gamma-go/solana/token2022"
)

// traderFunds is the balance the simulated trader starts with on each side.
const traderFunds = uint64(1) << 62

type simulation struct {
	accounts swap.Accounts
	mints    *token2022.Registry
	policy   curve.FeePolicy
	clock    *simClock
	trader   solana.PublicKey
	// trader token accounts for token0 and token1
	traderATA [2]solana.PublicKey
}

// simClock is either the wall clock or a fixed time the swap command
// advances between swaps.
type simClock struct {
	fixed uint64
	epoch uint64
}

func (c *simClock) Now() swap.Instant {
	if c.fixed != 0 {
		return swap.Instant{UnixTimestamp: c.fixed, Epoch: c.epoch}
	}
	return swap.Instant{UnixTimestamp: uint64(time.Now().Unix()), Epoch: c.epoch}
}

func (c *simClock) advance(seconds uint64) {
	if c.fixed != 0 {
		c.fixed += seconds
	}
}

func newSimulation(ctx context.Context, cfg config.Config, logger *zap.Logger) (*simulation, error) {
	var rpcClient *rpc.Client
	if cfg.RPCURL != "" {
		rpcClient = rpc.New(cfg.RPCURL)
	}

	mint0, err := resolveMint(ctx, rpcClient, cfg.Token0)
	if err != nil {
		return nil, fmt.Errorf("token0: %w", err)
	}
	mint1, err := resolveMint(ctx, rpcClient, cfg.Token1)
	if err != nil {
		return nil, fmt.Errorf("token1: %w", err)
	}

	epoch := cfg.Epoch
	if epoch == 0 && rpcClient != nil {
		if epoch, err = token2022.GetCurrentEpoch(ctx, rpcClient); err != nil {
			return nil, err
		}
	}

	poolID, err := pubkeyOrNew(cfg.PoolID)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	referralProject := solana.PublicKey{}
	if cfg.ReferralProject != "" {
		if referralProject, err = solana.PublicKeyFromBase58(cfg.ReferralProject); err != nil {
			return nil, fmt.Errorf("referral project: %w", err)
		}
	}
	authority := solana.NewWallet().PublicKey()
	vault0, err := tokenutil.AssociatedTokenAddress(authority, mint0.Address, mint0.Program)
	if err != nil {
		return nil, err
	}
	vault1, err := tokenutil.AssociatedTokenAddress(authority, mint1.Address, mint1.Program)
	if err != nil {
		return nil, err
	}

	amm := &state.AmmConfig{
		TradeFeeRate:    cfg.TradeFeeRate,
		ProtocolFeeRate: cfg.ProtocolFeeRate,
		FundFeeRate:     cfg.FundFeeRate,
		ReferralProject: referralProject,
	}
	if err := amm.Validate(); err != nil {
		return nil, err
	}

	sim := &simulation{
		accounts: swap.Accounts{
			PoolID:    poolID,
			Authority: authority,
			Config:    amm,
			Pool: &state.PoolState{
				Token0Vault:       vault0,
				Token1Vault:       vault1,
				Token0Mint:        mint0.Address,
				Token1Mint:        mint1.Address,
				Token0Program:     mint0.Program,
				Token1Program:     mint1.Program,
				Mint0Decimals:     mint0.Decimals,
				Mint1Decimals:     mint1.Decimals,
				Token0VaultAmount: cfg.Reserve0,
				Token1VaultAmount: cfg.Reserve1,
				OpenTime:          cfg.OpenTime,
				RecentEpoch:       epoch,
			},
			Observation: &state.ObservationState{PoolID: poolID},
		},
		mints:  token2022.NewRegistry(mint0, mint1),
		policy: curve.DefaultPolicy(cfg.TwapWindow, cfg.VolatilityFactor, cfg.MaxFeeRate, cfg.SegmenterDiscountBps),
		clock:  &simClock{fixed: cfg.Timestamp, epoch: epoch},
		trader: solana.NewWallet().PublicKey(),
	}
	for i, m := range []*token2022.Mint{mint0, mint1} {
		if sim.traderATA[i], err = tokenutil.AssociatedTokenAddress(sim.trader, m.Address, m.Program); err != nil {
			return nil, err
		}
	}

	logger.Info("pool ready",
		zap.String("pool", poolID.String()),
		zap.String("token0", mint0.Address.String()),
		zap.String("token1", mint1.Address.String()),
		zap.Uint64("reserve0", cfg.Reserve0),
		zap.Uint64("reserve1", cfg.Reserve1),
		zap.Uint64("epoch", epoch),
	)
	return sim, nil
}

// resolveMint fetches the mint when an RPC endpoint and address are given and
// otherwise builds it from config.
func resolveMint(ctx context.Context, rpcClient *rpc.Client, mc config.MintConfig) (*token2022.Mint, error) {
	if rpcClient != nil && mc.Address != "" {
		address, err := solana.PublicKeyFromBase58(mc.Address)
		if err != nil {
			return nil, err
		}
		return token2022.FetchMint(ctx, rpcClient, address)
	}

	address, err := pubkeyOrNew(mc.Address)
	if err != nil {
		return nil, err
	}
	m := &token2022.Mint{Address: address, Program: solana.TokenProgramID, Decimals: mc.Decimals}
	if mc.Token2022 {
		m.Program = solana.Token2022ProgramID
	}
	if mc.TransferFeeBps > 0 {
		fee := token2022.TransferFee{BasisPoints: mc.TransferFeeBps, MaximumFee: mc.TransferFeeMax}
		m.TransferFee = &token2022.TransferFeeConfig{OlderTransferFee: fee, NewerTransferFee: fee}
	}
	return m, nil
}

func pubkeyOrNew(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.NewWallet().PublicKey(), nil
	}
	return solana.PublicKeyFromBase58(s)
}

// newLedger funds the vaults with the pool reserves and the trader with
// traderFunds on both sides.
func (s *simulation) newLedger() *ledger.Ledger {
	l := ledger.New(s.mints)
	l.SetEpoch(s.clock.epoch)
	pool := s.accounts.Pool
	l.Open(ledger.Account{Address: pool.Token0Vault, Mint: pool.Token0Mint, Owner: s.accounts.Authority, Amount: pool.Token0VaultAmount})
	l.Open(ledger.Account{Address: pool.Token1Vault, Mint: pool.Token1Mint, Owner: s.accounts.Authority, Amount: pool.Token1VaultAmount})
	l.Open(ledger.Account{Address: s.traderATA[0], Mint: pool.Token0Mint, Owner: s.trader, Amount: traderFunds})
	l.Open(ledger.Account{Address: s.traderATA[1], Mint: pool.Token1Mint, Owner: s.trader, Amount: traderFunds})
	return l
}

type trade struct {
	oneForZero bool
	exactOut   bool
	amount     uint64
	bound      uint64
}

func parseDirection(s string) (bool, error) {
	switch s {
	case "0to1":
		return false, nil
	case "1to0":
		return true, nil
	}
	return false, fmt.Errorf("unknown direction %q", s)
}

func (s *simulation) baseInput(t trade) swap.SwapBaseInputRequest {
	in, out := 0, 1
	inVault, outVault := s.accounts.Pool.Token0Vault, s.accounts.Pool.Token1Vault
	if t.oneForZero {
		in, out = 1, 0
		inVault, outVault = outVault, inVault
	}
	return swap.SwapBaseInputRequest{
		Payer:              s.trader,
		InputTokenAccount:  s.traderATA[in],
		OutputTokenAccount: s.traderATA[out],
		InputVault:         inVault,
		OutputVault:        outVault,
		AmountIn:           t.amount,
		MinimumAmountOut:   t.bound,
	}
}

func (s *simulation) baseOutput(t trade) swap.SwapBaseOutputRequest {
	r := s.baseInput(t)
	maxIn := t.bound
	if maxIn == 0 {
		maxIn = traderFunds
	}
	return swap.SwapBaseOutputRequest{
		Payer:              r.Payer,
		InputTokenAccount:  r.InputTokenAccount,
		OutputTokenAccount: r.OutputTokenAccount,
		InputVault:         r.InputVault,
		OutputVault:        r.OutputVault,
		MaxAmountIn:        maxIn,
		AmountOut:          t.amount,
	}
}

// execute runs t through the matching entry point.
func execute(ctx context.Context, s *swap.Swapper, acc swap.Accounts, sim *simulation, t trade) (*swap.Receipt, error) {
	if t.exactOut {
		return s.SwapBaseOutput(ctx, acc, sim.baseOutput(t))
	}
	return s.SwapBaseInput(ctx, acc, sim.baseInput(t))
}

// uiAmount renders a raw token amount with its decimals.
func uiAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}
