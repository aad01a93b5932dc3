package swap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krazyTry/gamma-go/gamma/curve"
	"github.com/krazyTry/gamma-go/gamma/events"
	"github.com/krazyTry/gamma-go/gamma/fees"
	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/referral"
	"github.com/krazyTry/gamma-go/gamma/segmenter"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
	tokenutil "github.com/krazyTry/gamma-go/solana"
	"github.com/krazyTry/gamma-go/solana/token2022"
	"github.com/krazyTry/gamma-go/u128"
)

type harness struct {
	acc     Accounts
	mints   *token2022.Registry
	mint0   *token2022.Mint
	mint1   *token2022.Mint
	ledger  *ledger.Ledger
	sink    *events.MemorySink
	now     Instant
	trader  solana.PublicKey
	trader0 solana.PublicKey
	trader1 solana.PublicKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		mint0:   &token2022.Mint{Address: solana.NewWallet().PublicKey(), Program: solana.TokenProgramID, Decimals: 6},
		mint1:   &token2022.Mint{Address: solana.NewWallet().PublicKey(), Program: solana.TokenProgramID, Decimals: 9},
		sink:    &events.MemorySink{},
		now:     Instant{UnixTimestamp: 1_000, Epoch: 5},
		trader:  solana.NewWallet().PublicKey(),
		trader0: solana.NewWallet().PublicKey(),
		trader1: solana.NewWallet().PublicKey(),
	}
	h.mints = token2022.NewRegistry(h.mint0, h.mint1)
	h.ledger = ledger.New(h.mints)

	pool := &state.PoolState{
		Token0Vault:       solana.NewWallet().PublicKey(),
		Token1Vault:       solana.NewWallet().PublicKey(),
		Token0Mint:        h.mint0.Address,
		Token1Mint:        h.mint1.Address,
		Token0Program:     solana.TokenProgramID,
		Token1Program:     solana.TokenProgramID,
		Mint0Decimals:     6,
		Mint1Decimals:     9,
		Token0VaultAmount: 1_000_000,
		Token1VaultAmount: 1_000_000,
		LpSupply:          1_000_000,
		OpenTime:          500,
	}
	h.acc = Accounts{
		PoolID:    solana.NewWallet().PublicKey(),
		Authority: solana.NewWallet().PublicKey(),
		Config: &state.AmmConfig{
			TradeFeeRate:    2_500,
			ProtocolFeeRate: 120_000,
			FundFeeRate:     40_000,
		},
		Pool:        pool,
		Observation: &state.ObservationState{},
	}

	h.ledger.Open(ledger.Account{Address: pool.Token0Vault, Mint: h.mint0.Address, Owner: h.acc.Authority, Amount: 1_000_000})
	h.ledger.Open(ledger.Account{Address: pool.Token1Vault, Mint: h.mint1.Address, Owner: h.acc.Authority, Amount: 1_000_000})
	h.ledger.Open(ledger.Account{Address: h.trader0, Mint: h.mint0.Address, Owner: h.trader, Amount: 2_000_000})
	h.ledger.Open(ledger.Account{Address: h.trader1, Mint: h.mint1.Address, Owner: h.trader, Amount: 2_000_000})
	return h
}

func (h *harness) swapper(opts ...Option) *Swapper {
	base := []Option{
		WithSink(h.sink),
		WithClock(ClockFunc(func() Instant { return h.now })),
	}
	return NewSwapper(h.ledger, h.mints, append(base, opts...)...)
}

func (h *harness) sellToken0(amountIn, minOut uint64) SwapBaseInputRequest {
	return SwapBaseInputRequest{
		Payer:              h.trader,
		InputTokenAccount:  h.trader0,
		OutputTokenAccount: h.trader1,
		InputVault:         h.acc.Pool.Token0Vault,
		OutputVault:        h.acc.Pool.Token1Vault,
		AmountIn:           amountIn,
		MinimumAmountOut:   minOut,
	}
}

func (h *harness) buyToken1(amountOut, maxIn uint64) SwapBaseOutputRequest {
	return SwapBaseOutputRequest{
		Payer:              h.trader,
		InputTokenAccount:  h.trader0,
		OutputTokenAccount: h.trader1,
		InputVault:         h.acc.Pool.Token0Vault,
		OutputVault:        h.acc.Pool.Token1Vault,
		MaxAmountIn:        maxIn,
		AmountOut:          amountOut,
	}
}

type snapshot struct {
	pool     state.PoolState
	obs      state.ObservationState
	balances map[solana.PublicKey]uint64
}

func (h *harness) snapshot() snapshot {
	s := snapshot{pool: *h.acc.Pool, obs: *h.acc.Observation, balances: map[solana.PublicKey]uint64{}}
	for _, a := range []solana.PublicKey{h.acc.Pool.Token0Vault, h.acc.Pool.Token1Vault, h.trader0, h.trader1} {
		s.balances[a] = h.ledger.Balance(a)
	}
	return s
}

func (h *harness) requireUnchanged(t *testing.T, before snapshot) {
	t.Helper()
	require.Equal(t, before, h.snapshot())
	require.Empty(t, h.sink.Events())
}

func TestSwapBaseInput(t *testing.T) {
	h := newHarness(t)
	r, err := h.swapper().SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 9_000))
	require.NoError(t, err)

	require.Equal(t, shared.TradeDirectionZeroForOne, r.Direction)
	require.Equal(t, uint64(10_000), r.AmountIn)
	require.Equal(t, uint64(9_876), r.AmountOut)
	require.Equal(t, uint64(25), r.DynamicFee)
	require.Equal(t, uint64(2_500), r.DynamicFeeRate)
	require.Equal(t, uint64(3), r.ProtocolFee)
	require.Equal(t, uint64(1), r.FundFee)
	require.Len(t, r.Transfers, 2)

	pool := h.acc.Pool
	require.Equal(t, uint64(1_009_996), pool.Token0VaultAmount)
	require.Equal(t, uint64(990_124), pool.Token1VaultAmount)
	require.Equal(t, uint64(3), pool.ProtocolFeesToken0)
	require.Equal(t, uint64(1), pool.FundFeesToken0)
	require.True(t, pool.CumulativeTradeFeesToken0.Equals(u128.From64(25)))
	require.True(t, pool.CumulativeVolumeToken0.Equals(u128.From64(10_000)))
	require.Equal(t, uint64(2_500), pool.LatestDynamicFeeRate)
	require.Equal(t, uint64(5), pool.RecentEpoch)

	require.Equal(t, uint64(1_990_000), h.ledger.Balance(h.trader0))
	require.Equal(t, uint64(2_009_876), h.ledger.Balance(h.trader1))
	require.Equal(t, uint64(1_010_000), h.ledger.Balance(pool.Token0Vault))
	require.Equal(t, uint64(990_124), h.ledger.Balance(pool.Token1Vault))

	require.True(t, h.acc.Observation.Initialized)
	latest, ok := h.acc.Observation.Latest()
	require.True(t, ok)
	require.Equal(t, uint64(1_000), latest.BlockTimestamp)

	evs := h.sink.Events()
	require.Len(t, evs, 1)
	require.Equal(t, state.SwapEvent{
		PoolID:            h.acc.PoolID,
		InputVaultBefore:  1_000_000,
		OutputVaultBefore: 1_000_000,
		InputAmount:       10_000,
		OutputAmount:      9_876,
		BaseInput:         true,
		DynamicFee:        u128.From64(25),
	}, evs[0])
}

func TestSwapBaseOutput(t *testing.T) {
	h := newHarness(t)
	r, err := h.swapper().SwapBaseOutput(context.Background(), h.acc, h.buyToken1(9_876, 10_000))
	require.NoError(t, err)

	require.Equal(t, uint64(10_000), r.AmountIn)
	require.Equal(t, uint64(9_876), r.AmountOut)
	require.Equal(t, uint64(25), r.DynamicFee)
	require.Equal(t, uint64(1_009_996), h.acc.Pool.Token0VaultAmount)
	require.Equal(t, uint64(990_124), h.acc.Pool.Token1VaultAmount)
	require.Equal(t, uint64(2_009_876), h.ledger.Balance(h.trader1))

	evs := h.sink.Events()
	require.Len(t, evs, 1)
	require.False(t, evs[0].BaseInput)
}

func TestSwapOneForZero(t *testing.T) {
	h := newHarness(t)
	req := h.sellToken0(10_000, 1)
	req.InputTokenAccount, req.OutputTokenAccount = h.trader1, h.trader0
	req.InputVault, req.OutputVault = h.acc.Pool.Token1Vault, h.acc.Pool.Token0Vault

	r, err := h.swapper().SwapBaseInput(context.Background(), h.acc, req)
	require.NoError(t, err)
	require.Equal(t, shared.TradeDirectionOneForZero, r.Direction)
	require.Equal(t, uint64(3), h.acc.Pool.ProtocolFeesToken1)
	require.Zero(t, h.acc.Pool.ProtocolFeesToken0)
	require.Equal(t, uint64(1_009_996), h.acc.Pool.Token1VaultAmount)
	require.Equal(t, uint64(990_124), h.acc.Pool.Token0VaultAmount)
}

func TestSwapRejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(h *harness)
		run     func(h *harness, s *Swapper) error
		wantErr error
	}{
		{
			name: "minimum out not met",
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 9_877))
				return err
			},
			wantErr: shared.ErrExceededSlippage,
		},
		{
			name: "maximum in exceeded",
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseOutput(context.Background(), h.acc, h.buyToken1(9_876, 9_999))
				return err
			},
			wantErr: shared.ErrExceededSlippage,
		},
		{
			name: "output beyond reserve",
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseOutput(context.Background(), h.acc, h.buyToken1(1_000_000, 1<<62))
				return err
			},
			wantErr: shared.ErrZeroTradingTokens,
		},
		{
			name: "same vault twice",
			run: func(h *harness, s *Swapper) error {
				req := h.sellToken0(10_000, 0)
				req.OutputVault = req.InputVault
				_, err := s.SwapBaseInput(context.Background(), h.acc, req)
				return err
			},
			wantErr: shared.ErrInvalidVault,
		},
		{
			name: "protocol and fund share above the trade fee",
			setup: func(h *harness) {
				h.acc.Config.ProtocolFeeRate = 900_000
				h.acc.Config.FundFeeRate = 200_000
			},
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(1_000_000, 0))
				return err
			},
			wantErr: shared.ErrInvalidConfig,
		},
		{
			name: "invalid config on exact output",
			setup: func(h *harness) {
				h.acc.Config.TradeFeeRate = shared.FeeRateDenominator
			},
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseOutput(context.Background(), h.acc, h.buyToken1(9_876, 1<<40))
				return err
			},
			wantErr: shared.ErrInvalidConfig,
		},
		{
			name:  "swaps disabled",
			setup: func(h *harness) { h.acc.Pool.SetStatusByBit(shared.PoolStatusBitSwap, shared.PoolStatusDisable) },
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
				return err
			},
			wantErr: shared.ErrNotApproved,
		},
		{
			name:  "pool not open yet",
			setup: func(h *harness) { h.now.UnixTimestamp = 499 },
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseOutput(context.Background(), h.acc, h.buyToken1(100, 1_000))
				return err
			},
			wantErr: shared.ErrNotApproved,
		},
		{
			name: "input too small to trade",
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(1, 0))
				return err
			},
			wantErr: shared.ErrZeroTradingTokens,
		},
		{
			name: "settlement fails",
			setup: func(h *harness) {
				acct, _ := h.ledger.Account(h.trader0)
				acct.Amount = 5_000
				h.ledger.Open(acct)
			},
			run: func(h *harness, s *Swapper) error {
				_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
				return err
			},
			wantErr: ledger.ErrInsufficientFunds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h)
			}
			before := h.snapshot()
			err := tt.run(h, h.swapper())
			require.ErrorIs(t, err, tt.wantErr)
			h.requireUnchanged(t, before)
		})
	}
}

func TestSwapUpdatesOracle(t *testing.T) {
	h := newHarness(t)
	s := h.swapper()
	_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
	require.NoError(t, err)

	// same second: no new observation
	_, err = s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
	require.NoError(t, err)
	require.Equal(t, uint16(0), h.acc.Observation.ObservationIndex)

	price0, price1, err := h.acc.Pool.TokenPriceX32()
	require.NoError(t, err)
	h.now.UnixTimestamp += 10
	_, err = s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
	require.NoError(t, err)

	latest, ok := h.acc.Observation.Latest()
	require.True(t, ok)
	require.Equal(t, uint16(1), h.acc.Observation.ObservationIndex)
	want0, _ := price0.CheckedMul64(10)
	want1, _ := price1.CheckedMul64(10)
	require.True(t, latest.CumulativeToken0PriceX32.Equals(want0))
	require.True(t, latest.CumulativeToken1PriceX32.Equals(want1))
}

func TestSwapWithTransferFeeMint(t *testing.T) {
	h := newHarness(t)
	h.mint1.TransferFee = &token2022.TransferFeeConfig{
		NewerTransferFee: token2022.TransferFee{MaximumFee: 1_000_000, BasisPoints: 100},
	}
	s := h.swapper()

	r, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 9_777))
	require.NoError(t, err)
	require.Equal(t, uint64(99), r.OutputTransferFee)
	require.Equal(t, uint64(9_777), r.AmountOut)
	require.Equal(t, uint64(2_009_777), h.ledger.Balance(h.trader1))
	require.Equal(t, uint64(99), h.sink.Events()[0].OutputTransferFee)

	h2 := newHarness(t)
	h2.mint1.TransferFee = h.mint1.TransferFee
	r, err = h2.swapper().SwapBaseOutput(context.Background(), h2.acc, h2.buyToken1(9_777, 10_000))
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), r.AmountIn)
	require.Equal(t, uint64(99), r.OutputTransferFee)
	require.Equal(t, uint64(2_009_777), h2.ledger.Balance(h2.trader1))
}

func TestSwapMinimumOutCountsOutputTransferFee(t *testing.T) {
	h := newHarness(t)
	h.mint1.TransferFee = &token2022.TransferFeeConfig{
		NewerTransferFee: token2022.TransferFee{MaximumFee: 1_000_000, BasisPoints: 100},
	}
	before := h.snapshot()
	_, err := h.swapper().SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 9_778))
	require.ErrorIs(t, err, shared.ErrExceededSlippage)
	h.requireUnchanged(t, before)
}

func TestSwapPaysReferral(t *testing.T) {
	h := newHarness(t)
	project := solana.NewWallet().PublicKey()
	h.acc.Config.ReferralProject = project
	rec := referral.Record{
		Address:  solana.NewWallet().PublicKey(),
		Project:  project,
		Referrer: solana.NewWallet().PublicKey(),
		ShareBps: 2_000,
		Active:   true,
	}
	ata, err := tokenutil.AssociatedTokenAddress(rec.Referrer, h.mint0.Address, solana.TokenProgramID)
	require.NoError(t, err)
	h.ledger.Open(ledger.Account{Address: ata, Mint: h.mint0.Address, Owner: rec.Referrer})

	s := h.swapper(WithReferrals(referral.NewMemoryRegistry(rec)))
	req := h.sellToken0(1_000_000, 1)
	req.Referral = &referral.Accounts{Referral: rec.Address, TokenAccount: ata}

	r, err := s.SwapBaseInput(context.Background(), h.acc, req)
	require.NoError(t, err)

	// fee 2_500: protocol 300, fund 100, lp 2_100, referral 20% of lp
	require.Equal(t, uint64(420), r.ReferralAmount)
	require.Equal(t, uint64(2_080), r.DynamicFee)
	require.Equal(t, uint64(1_000_000), r.AmountIn)
	require.Len(t, r.Transfers, 3)
	require.Equal(t, uint64(999_580), r.Transfers[0].Amount)
	require.Equal(t, ata, r.Transfers[1].To)

	require.Equal(t, uint64(420), h.ledger.Balance(ata))
	require.Equal(t, uint64(1_000_000), h.ledger.Balance(h.trader0))
	require.True(t, h.acc.Pool.CumulativeTradeFeesToken0.Equals(u128.From64(2_080)))
	require.True(t, h.acc.Pool.CumulativeVolumeToken0.Equals(u128.From64(999_580)))
	require.Equal(t, uint64(1_000_000+999_580-400), h.acc.Pool.Token0VaultAmount)

	// the event reports the curve's figures
	ev := h.sink.Events()[0]
	require.Equal(t, uint64(1_000_000), ev.InputAmount)
	require.True(t, ev.DynamicFee.Equals(u128.From64(2_500)))
}

func TestSwapTrustedSegmenter(t *testing.T) {
	h := newHarness(t)
	key := solana.NewWallet().PrivateKey
	s := h.swapper(
		WithSegmenters(segmenter.NewRegistry(key.PublicKey())),
		WithFeePolicy(curve.SegmenterDiscount{DiscountBps: 5_000}),
	)

	req := h.sellToken0(10_000, 0)
	proof, err := segmenter.Sign(key, segmenter.SwapMessage(h.acc.PoolID, h.trader, true, req.AmountIn, req.MinimumAmountOut))
	require.NoError(t, err)
	req.Proof = proof

	r, err := s.SwapBaseInput(context.Background(), h.acc, req)
	require.NoError(t, err)
	require.True(t, r.Trusted)
	require.Equal(t, uint64(1_250), r.DynamicFeeRate)
	require.Equal(t, uint64(1_250), h.acc.Pool.LatestDynamicFeeRate)

	// a proof for a different request is ignored
	req.MinimumAmountOut = 1
	r, err = s.SwapBaseInput(context.Background(), h.acc, req)
	require.NoError(t, err)
	require.False(t, r.Trusted)
	require.Equal(t, uint64(2_500), r.DynamicFeeRate)
}

type failingSink struct{}

func (failingSink) Emit(context.Context, *state.SwapEvent) error { return errors.New("sink down") }

func TestSwapSurvivesSinkFailure(t *testing.T) {
	h := newHarness(t)
	core, logs := observer.New(zap.WarnLevel)
	s := h.swapper(WithSink(failingSink{}), WithLogger(zap.New(core)))

	_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
	require.NoError(t, err)
	require.Equal(t, uint64(1_009_996), h.acc.Pool.Token0VaultAmount)
	require.Equal(t, 1, logs.FilterMessage("emit swap event").Len())
}

func TestSwapRecordsInstructions(t *testing.T) {
	h := newHarness(t)
	rec := ledger.NewInstructionRecorder(h.mints.Program)
	s := NewSwapper(rec, h.mints, WithClock(ClockFunc(func() Instant { return h.now })))

	_, err := s.SwapBaseInput(context.Background(), h.acc, h.sellToken0(10_000, 0))
	require.NoError(t, err)
	batches := rec.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
}

func TestEngine(t *testing.T) {
	h := newHarness(t)
	e := NewEngine(h.swapper())
	require.NoError(t, e.Register(h.acc))
	require.Error(t, e.Register(h.acc))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = e.SwapBaseInput(context.Background(), h.acc.PoolID, h.sellToken0(100_000, 0))
			} else {
				_, err = e.SwapBaseOutput(context.Background(), h.acc.PoolID, h.buyToken1(500, 10_000))
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, h.sink.Events(), workers)

	pool, _, err := e.Snapshot(h.acc.PoolID)
	require.NoError(t, err)
	require.NotZero(t, pool.ProtocolFeesToken0)
	require.Equal(t, h.ledger.Balance(pool.Token0Vault), pool.Token0VaultAmount+pool.ProtocolFeesToken0+pool.FundFeesToken0)
	require.Equal(t, h.ledger.Balance(pool.Token1Vault), pool.Token1VaultAmount)

	recipient := solana.NewWallet().PublicKey()
	h.ledger.Open(ledger.Account{Address: recipient, Mint: h.mint0.Address, Owner: solana.NewWallet().PublicKey()})
	c, err := e.CollectProtocolFee(context.Background(), h.acc.PoolID, fees.CollectRequest{
		Recipient0:       recipient,
		Amount0Requested: pool.ProtocolFeesToken0,
	})
	require.NoError(t, err)
	require.Equal(t, pool.ProtocolFeesToken0, c.Amount0)
	require.Equal(t, c.Amount0, h.ledger.Balance(recipient))

	pool, _, err = e.Snapshot(h.acc.PoolID)
	require.NoError(t, err)
	require.Zero(t, pool.ProtocolFeesToken0)

	require.NoError(t, e.SetStatus(h.acc.PoolID, 1<<uint(shared.PoolStatusBitSwap)))
	_, err = e.SwapBaseInput(context.Background(), h.acc.PoolID, h.sellToken0(1_000, 0))
	require.ErrorIs(t, err, shared.ErrNotApproved)

	_, err = e.SwapBaseInput(context.Background(), solana.NewWallet().PublicKey(), h.sellToken0(1_000, 0))
	require.ErrorIs(t, err, ErrUnknownPool)
}
