package gamma

import (
	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/swap"
	"github.com/krazyTry/gamma-go/solana/token2022"
)

// NewMintRegistry creates the mint registry that prices Token-2022 transfer fees.
//
// Example:
//
// mints := NewMintRegistry(mint0, mint1)
//
// fee, _ := mints.TransferFee(mint1.Address, epoch, amount)
var NewMintRegistry = token2022.NewRegistry

// NewLedger creates an in-memory token ledger that settles swap transfers.
//
// Example:
//
// book := NewLedger(mints)
//
// book.Open(ledger.Account{Address: vault0, Mint: mint0.Address, Owner: authority, Amount: reserve0})
var NewLedger = ledger.New

// NewSwapper creates a swap executor for pools whose accounts the caller owns.
//
// Example:
//
// swapper := NewSwapper(book, mints, swap.WithLogger(logger))
//
// receipt, _ := swapper.SwapBaseInput(ctx, accounts, req)
var NewSwapper = swap.NewSwapper

// NewEngine creates a pool registry that serializes swaps per pool.
//
// Example:
//
// engine := NewEngine(swapper)
//
// engine.Register(accounts)
//
// receipt, _ := engine.SwapBaseOutput(ctx, accounts.PoolID, req)
var NewEngine = swap.NewEngine
