package solana

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// tokenAccountSize is the base SPL token account length. Token-2022
// accounts append extensions after it.
const tokenAccountSize = 165

var ErrInvalidTokenAccount = errors.New("invalid token account data")

// TokenAccount is a decoded SPL or Token-2022 token account.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
	// Delegate is nil when no delegate is set.
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        bool
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

func (a *TokenAccount) IsFrozen() bool {
	return a.State == AccountStateFrozen
}

// DecodeTokenAccount parses the 165-byte base layout shared by both token
// programs; Token-2022 extensions after it are ignored.
func DecodeTokenAccount(address solana.PublicKey, data []byte) (*TokenAccount, error) {
	if len(data) < tokenAccountSize {
		return nil, ErrInvalidTokenAccount
	}
	var raw token.Account
	if err := raw.UnmarshalWithDecoder(bin.NewBinDecoder(data[:tokenAccountSize])); err != nil {
		return nil, err
	}
	if AccountState(raw.State) == AccountStateUninitialized {
		return nil, ErrInvalidTokenAccount
	}
	return &TokenAccount{
		Address:         address,
		Mint:            raw.Mint,
		Owner:           raw.Owner,
		Amount:          raw.Amount,
		Delegate:        raw.Delegate,
		State:           AccountState(raw.State),
		IsNative:        raw.IsNative != nil,
		DelegatedAmount: raw.DelegatedAmount,
		CloseAuthority:  raw.CloseAuthority,
	}, nil
}
