package swap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/gamma-go/gamma/curve"
	"github.com/krazyTry/gamma-go/gamma/fees"
	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/math"
	"github.com/krazyTry/gamma-go/gamma/referral"
	"github.com/krazyTry/gamma-go/gamma/segmenter"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/u128"
)

// SwapBaseInputRequest sells an exact amount of the input token.
type SwapBaseInputRequest struct {
	Payer              solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	AmountIn           uint64
	// MinimumAmountOut bounds what the trader receives after the output
	// mint's transfer fee.
	MinimumAmountOut uint64

	Referral *referral.Accounts
	Proof    *segmenter.Proof
}

// Receipt describes a settled swap.
type Receipt struct {
	Direction shared.TradeDirection
	// AmountIn is what left the trader's input account, referral included.
	AmountIn uint64
	// AmountOut is what reached the trader's output account.
	AmountOut         uint64
	InputTransferFee  uint64
	OutputTransferFee uint64
	ReferralAmount    uint64
	DynamicFee        uint64
	DynamicFeeRate    uint64
	ProtocolFee       uint64
	FundFee           uint64
	Trusted           bool
	Event             state.SwapEvent
	Transfers         []ledger.Transfer
}

// priced is a curve result narrowed to u64, shared by both entry points.
type priced struct {
	direction    shared.TradeDirection
	reserveIn    uint64
	reserveOut   uint64
	result       *curve.SwapResult
	source       uint64
	destination  uint64
	dynamicFee   uint64
	protocolFee  uint64
	fundFee      uint64
	trusted      bool
	price0Before u128.Uint128
	price1Before u128.Uint128
}

func narrow(v u128.Uint128) (uint64, error) {
	n, ok := v.Uint64()
	if !ok {
		return 0, shared.ErrMathOverflow
	}
	return n, nil
}

func (p *priced) narrow() error {
	var err error
	if p.source, err = narrow(p.result.SourceAmountSwapped); err != nil {
		return err
	}
	if p.destination, err = narrow(p.result.DestinationAmountSwapped); err != nil {
		return err
	}
	if p.dynamicFee, err = narrow(p.result.DynamicFee); err != nil {
		return err
	}
	if p.protocolFee, err = narrow(p.result.ProtocolFee); err != nil {
		return err
	}
	p.fundFee, err = narrow(p.result.FundFee)
	return err
}

// checkInvariant rejects any swap that would shrink the fee-excluded
// constant product.
func (p *priced) checkInvariant() (before, after u128.Uint128, err error) {
	before = math.ConstantProduct(p.reserveIn, p.reserveOut)
	withoutFee, ok := p.result.NewSwapSourceAmount.CheckedSub(p.result.DynamicFee)
	if !ok {
		return before, after, shared.ErrMathOverflow
	}
	product, err := math.CheckedMul(math.FromU128(withoutFee), math.FromU128(p.result.NewSwapDestinationAmount))
	if err != nil {
		return before, after, err
	}
	if after, err = math.ToU128(product); err != nil {
		return before, after, err
	}
	if after.Cmp(before) < 0 {
		return before, after, fmt.Errorf("%w: %s < %s", shared.ErrInvariantViolated, after, before)
	}
	return before, after, nil
}

// SwapBaseInput sells exactly req.AmountIn. On any error the accounts and
// balances are left untouched.
func (s *Swapper) SwapBaseInput(ctx context.Context, acc Accounts, req SwapBaseInputRequest) (*Receipt, error) {
	if err := acc.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := approve(acc.Pool, now.UnixTimestamp); err != nil {
		return nil, err
	}
	direction, err := resolveDirection(acc.Pool, req.InputVault, req.OutputVault)
	if err != nil {
		return nil, err
	}
	inputMint, outputMint, inputDecimals, outputDecimals := acc.Pool.Mints(direction)
	inputProgram, _ := programs(acc.Pool, direction)
	info, err := s.lookupReferral(acc, inputMint, inputProgram, req.Referral)
	if err != nil {
		return nil, err
	}

	p := &priced{direction: direction}
	if p.price0Before, p.price1Before, err = acc.Pool.TokenPriceX32(); err != nil {
		return nil, err
	}

	inputTransferFee, err := s.fees.TransferFee(inputMint, now.Epoch, req.AmountIn)
	if err != nil {
		return nil, err
	}
	actualAmountIn := math.SaturatingSubU64(req.AmountIn, inputTransferFee)
	if actualAmountIn == 0 {
		return nil, fmt.Errorf("%w: nothing left after input transfer fee", shared.ErrInvalidInput)
	}

	pool, obs := *acc.Pool, *acc.Observation
	p.reserveIn, p.reserveOut = reserves(&pool, direction)
	p.trusted = s.trusted(req.Proof, segmenter.SwapMessage(acc.PoolID, req.Payer, true, req.AmountIn, req.MinimumAmountOut))

	p.result, err = curve.SwapBaseInput(
		u128.From64(actualAmountIn),
		u128.From64(p.reserveIn),
		u128.From64(p.reserveOut),
		curve.Params{
			Config:       acc.Config,
			Pool:         &pool,
			Observations: &obs,
			Now:          now.UnixTimestamp,
			Direction:    direction,
			Trusted:      p.trusted,
			Policy:       s.policy,
		},
	)
	if err != nil {
		return nil, curveError(err)
	}
	if err := p.narrow(); err != nil {
		return nil, err
	}
	if p.source != actualAmountIn {
		return nil, fmt.Errorf("%w: curve consumed %d of %d", shared.ErrMathError, p.source, actualAmountIn)
	}

	outputTransferFee, err := s.fees.TransferFee(outputMint, now.Epoch, p.destination)
	if err != nil {
		return nil, err
	}
	amountReceived := math.SaturatingSubU64(p.destination, outputTransferFee)
	if amountReceived == 0 {
		return nil, fmt.Errorf("%w: nothing left after output transfer fee", shared.ErrZeroTradingTokens)
	}
	if amountReceived < req.MinimumAmountOut {
		return nil, fmt.Errorf("%w: receive %d, minimum %d", shared.ErrExceededSlippage, amountReceived, req.MinimumAmountOut)
	}

	return s.finish(ctx, acc, &pool, &obs, now, p, finishArgs{
		baseInput:           true,
		payer:               req.Payer,
		inputTokenAccount:   req.InputTokenAccount,
		outputTokenAccount:  req.OutputTokenAccount,
		inputVault:          req.InputVault,
		outputVault:         req.OutputVault,
		inputMint:           inputMint,
		outputMint:          outputMint,
		inputDecimals:       inputDecimals,
		outputDecimals:      outputDecimals,
		inputTransferAmount: req.AmountIn,
		inputTransferFee:    inputTransferFee,
		outputTransferFee:   outputTransferFee,
		referral:            info,
	})
}

type finishArgs struct {
	baseInput           bool
	payer               solana.PublicKey
	inputTokenAccount   solana.PublicKey
	outputTokenAccount  solana.PublicKey
	inputVault          solana.PublicKey
	outputVault         solana.PublicKey
	inputMint           solana.PublicKey
	outputMint          solana.PublicKey
	inputDecimals       uint8
	outputDecimals      uint8
	inputTransferAmount uint64
	inputTransferFee    uint64
	outputTransferFee   uint64
	referral            *referral.Info
}

// finish runs the steps common to both entry points once the trade is
// priced: fee distribution, the invariant check, oracle update, settlement
// and commit. pool and obs are working copies.
func (s *Swapper) finish(
	ctx context.Context,
	acc Accounts,
	pool *state.PoolState,
	obs *state.ObservationState,
	now Instant,
	p *priced,
	a finishArgs,
) (*Receipt, error) {
	outcome, err := fees.Distribute(pool, fees.Input{
		Direction:           p.direction,
		DynamicFee:          p.dynamicFee,
		ProtocolFee:         p.protocolFee,
		FundFee:             p.fundFee,
		SourceAmountSwapped: p.source,
		InputTransferAmount: a.inputTransferAmount,
		OutputAmount:        p.destination,
		Referral:            a.referral,
		ReferralTransferFee: func(amount uint64) (uint64, error) {
			return s.fees.TransferFee(a.inputMint, now.Epoch, amount)
		},
	})
	if err != nil {
		return nil, err
	}
	pool.LatestDynamicFeeRate = p.result.DynamicFeeRate

	before, after, err := p.checkInvariant()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("swap priced",
		zap.String("pool", acc.PoolID.String()),
		zap.Stringer("direction", p.direction),
		zap.Uint64("source_amount_swapped", p.source),
		zap.Uint64("destination_amount_swapped", p.destination),
		zap.Uint64("dynamic_fee", p.dynamicFee),
		zap.Stringer("constant_before", before),
		zap.Stringer("constant_after", after),
	)

	if err := obs.Update(now.UnixTimestamp, p.price0Before, p.price1Before); err != nil {
		return nil, err
	}
	pool.RecentEpoch = now.Epoch

	transfers := []ledger.Transfer{{
		From:      a.inputTokenAccount,
		To:        a.inputVault,
		Authority: a.payer,
		Mint:      a.inputMint,
		Amount:    outcome.InputTransferAmount,
		Decimals:  a.inputDecimals,
	}}
	if outcome.ReferralAmount > 0 {
		transfers = append(transfers, ledger.Transfer{
			From:      a.inputTokenAccount,
			To:        a.referral.TokenAccount,
			Authority: a.payer,
			Mint:      a.inputMint,
			Amount:    outcome.ReferralAmount,
			Decimals:  a.inputDecimals,
		})
	}
	transfers = append(transfers, ledger.Transfer{
		From:      a.outputVault,
		To:        a.outputTokenAccount,
		Authority: acc.Authority,
		Mint:      a.outputMint,
		Amount:    p.destination,
		Decimals:  a.outputDecimals,
	})
	if err := s.settler.Settle(ctx, transfers); err != nil {
		return nil, fmt.Errorf("settle swap: %w", err)
	}

	event := state.SwapEvent{
		PoolID:            acc.PoolID,
		InputVaultBefore:  p.reserveIn,
		OutputVaultBefore: p.reserveOut,
		InputAmount:       p.source,
		OutputAmount:      p.destination,
		InputTransferFee:  a.inputTransferFee,
		OutputTransferFee: a.outputTransferFee,
		BaseInput:         a.baseInput,
		DynamicFee:        p.result.DynamicFee,
	}
	s.commit(ctx, acc, pool, obs, &event)

	return &Receipt{
		Direction:         p.direction,
		AmountIn:          outcome.InputTransferAmount + outcome.ReferralAmount,
		AmountOut:         p.destination - a.outputTransferFee,
		InputTransferFee:  a.inputTransferFee,
		OutputTransferFee: a.outputTransferFee,
		ReferralAmount:    outcome.ReferralAmount,
		DynamicFee:        outcome.DynamicFee,
		DynamicFeeRate:    p.result.DynamicFeeRate,
		ProtocolFee:       p.protocolFee,
		FundFee:           p.fundFee,
		Trusted:           p.trusted,
		Event:             event,
		Transfers:         transfers,
	}, nil
}

// programs returns the (input, output) token programs for direction.
func programs(pool *state.PoolState, direction shared.TradeDirection) (solana.PublicKey, solana.PublicKey) {
	if direction == shared.TradeDirectionZeroForOne {
		return pool.Token0Program, pool.Token1Program
	}
	return pool.Token1Program, pool.Token0Program
}
