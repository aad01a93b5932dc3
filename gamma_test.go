package gamma

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/gamma/swap"
	"github.com/krazyTry/gamma-go/solana/token2022"
)

func TestEngineRoundTrip(t *testing.T) {
	mint0 := &token2022.Mint{Address: solana.NewWallet().PublicKey(), Decimals: 9}
	mint1 := &token2022.Mint{Address: solana.NewWallet().PublicKey(), Decimals: 6}
	mints := NewMintRegistry(mint0, mint1)
	book := NewLedger(mints)

	authority, trader := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	vault0, vault1 := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	wallet0, wallet1 := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	book.Open(ledger.Account{Address: vault0, Mint: mint0.Address, Owner: authority, Amount: 5_000_000})
	book.Open(ledger.Account{Address: vault1, Mint: mint1.Address, Owner: authority, Amount: 5_000_000})
	book.Open(ledger.Account{Address: wallet0, Mint: mint0.Address, Owner: trader, Amount: 100_000})
	book.Open(ledger.Account{Address: wallet1, Mint: mint1.Address, Owner: trader})

	acc := swap.Accounts{
		PoolID:    solana.NewWallet().PublicKey(),
		Authority: authority,
		Config:    &state.AmmConfig{TradeFeeRate: 10_000},
		Pool: &state.PoolState{
			Token0Vault:       vault0,
			Token1Vault:       vault1,
			Token0Mint:        mint0.Address,
			Token1Mint:        mint1.Address,
			Mint0Decimals:     9,
			Mint1Decimals:     6,
			Token0VaultAmount: 5_000_000,
			Token1VaultAmount: 5_000_000,
		},
		Observation: &state.ObservationState{},
	}

	engine := NewEngine(NewSwapper(book, mints))
	if err := engine.Register(acc); err != nil {
		t.Fatal(err)
	}

	r, err := engine.SwapBaseInput(context.Background(), acc.PoolID, swap.SwapBaseInputRequest{
		Payer:              trader,
		InputTokenAccount:  wallet0,
		OutputTokenAccount: wallet1,
		InputVault:         vault0,
		OutputVault:        vault1,
		AmountIn:           100_000,
	})
	if err != nil {
		t.Fatal(err)
	}
	// fee 1_000, out = 99_000 * 5e6 / 5_099_000
	if r.AmountOut != 97_077 {
		t.Fatalf("amount out = %d, want 97077", r.AmountOut)
	}
	if got := book.Balance(wallet1); got != r.AmountOut {
		t.Fatalf("wallet1 = %d, want %d", got, r.AmountOut)
	}
	if got := book.Balance(wallet0); got != 0 {
		t.Fatalf("wallet0 = %d, want 0", got)
	}
}
