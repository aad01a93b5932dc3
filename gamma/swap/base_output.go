package swap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/curve"
	"github.com/krazyTry/gamma-go/gamma/math"
	"github.com/krazyTry/gamma-go/gamma/referral"
	"github.com/krazyTry/gamma-go/gamma/segmenter"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/u128"
)

// SwapBaseOutputRequest buys an exact amount of the output token.
type SwapBaseOutputRequest struct {
	Payer              solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	// MaxAmountIn bounds what leaves the trader's input account, input
	// transfer fee included.
	MaxAmountIn uint64
	// AmountOut is what the trader must receive after the output mint's
	// transfer fee.
	AmountOut uint64

	Referral *referral.Accounts
	Proof    *segmenter.Proof
}

// SwapBaseOutput buys exactly req.AmountOut, net of the output mint's
// transfer fee. On any error the accounts and balances are left untouched.
func (s *Swapper) SwapBaseOutput(ctx context.Context, acc Accounts, req SwapBaseOutputRequest) (*Receipt, error) {
	if err := acc.validate(); err != nil {
		return nil, err
	}
	if req.AmountOut == 0 {
		return nil, fmt.Errorf("%w: zero amount out", shared.ErrZeroTradingTokens)
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

	outputTransferFee, err := s.fees.InverseTransferFee(outputMint, now.Epoch, req.AmountOut)
	if err != nil {
		return nil, err
	}
	actualAmountOut, err := math.CheckedAddU64(req.AmountOut, outputTransferFee)
	if err != nil {
		return nil, err
	}

	pool, obs := *acc.Pool, *acc.Observation
	p.reserveIn, p.reserveOut = reserves(&pool, direction)
	p.trusted = s.trusted(req.Proof, segmenter.SwapMessage(acc.PoolID, req.Payer, false, req.AmountOut, req.MaxAmountIn))

	p.result, err = curve.SwapBaseOutput(
		u128.From64(actualAmountOut),
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
	if p.source == 0 {
		return nil, shared.ErrZeroTradingTokens
	}

	inputTransferFee, err := s.fees.InverseTransferFee(inputMint, now.Epoch, p.source)
	if err != nil {
		return nil, err
	}
	inputTransferAmount, err := math.CheckedAddU64(p.source, inputTransferFee)
	if err != nil {
		return nil, err
	}
	if inputTransferAmount > req.MaxAmountIn {
		return nil, fmt.Errorf("%w: need %d, maximum %d", shared.ErrExceededSlippage, inputTransferAmount, req.MaxAmountIn)
	}
	if p.destination != actualAmountOut {
		return nil, fmt.Errorf("%w: curve returned %d of %d", shared.ErrMathError, p.destination, actualAmountOut)
	}

	return s.finish(ctx, acc, &pool, &obs, now, p, finishArgs{
		payer:               req.Payer,
		inputTokenAccount:   req.InputTokenAccount,
		outputTokenAccount:  req.OutputTokenAccount,
		inputVault:          req.InputVault,
		outputVault:         req.OutputVault,
		inputMint:           inputMint,
		outputMint:          outputMint,
		inputDecimals:       inputDecimals,
		outputDecimals:      outputDecimals,
		inputTransferAmount: inputTransferAmount,
		inputTransferFee:    inputTransferFee,
		outputTransferFee:   outputTransferFee,
		referral:            info,
	})
}
