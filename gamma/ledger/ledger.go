package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/shared"
	tokenutil "github.com/krazyTry/gamma-go/solana"
)

var (
	ErrAccountNotFound   = errors.New("token account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMintMismatch      = errors.New("mint mismatch")
	ErrOwnerMismatch     = errors.New("owner does not match")
	ErrDecimalsMismatch  = errors.New("decimals mismatch")
	ErrAccountFrozen     = errors.New("account is frozen")
)

// Transfer moves Amount of Mint from From to To, signed by Authority.
// Decimals must match the mint, as TransferChecked requires.
type Transfer struct {
	From      solana.PublicKey
	To        solana.PublicKey
	Authority solana.PublicKey
	Mint      solana.PublicKey
	Amount    uint64
	Decimals  uint8
}

// MintInfo answers the per-mint questions a transfer needs.
type MintInfo interface {
	Decimals(mint solana.PublicKey) (uint8, error)
	TransferFee(mint solana.PublicKey, epoch, amount uint64) (uint64, error)
}

// Account is a token account balance held by the ledger.
type Account struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
	// Withheld accumulates Token-2022 transfer fees charged on receipt.
	Withheld uint64
	Frozen   bool
}

// Ledger is an in-memory token ledger. Settle applies a batch of transfers
// atomically: either every transfer lands or none does.
type Ledger struct {
	mu       sync.Mutex
	mints    MintInfo
	epoch    uint64
	accounts map[solana.PublicKey]*Account
}

func New(mints MintInfo) *Ledger {
	return &Ledger{mints: mints, accounts: make(map[solana.PublicKey]*Account)}
}

// SetEpoch selects the transfer fee schedule applied by later transfers.
func (l *Ledger) SetEpoch(epoch uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch = epoch
}

// Open adds or replaces an account.
func (l *Ledger) Open(a Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[a.Address] = &a
}

// OpenFromData loads a token account from raw account bytes.
func (l *Ledger) OpenFromData(address solana.PublicKey, data []byte) error {
	ta, err := tokenutil.DecodeTokenAccount(address, data)
	if err != nil {
		return err
	}
	l.Open(Account{
		Address: address,
		Mint:    ta.Mint,
		Owner:   ta.Owner,
		Amount:  ta.Amount,
		Frozen:  ta.IsFrozen(),
	})
	return nil
}

// Account returns a copy of the account at address.
func (l *Ledger) Account(address solana.PublicKey) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[address]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return *a, nil
}

func (l *Ledger) Balance(address solana.PublicKey) uint64 {
	a, err := l.Account(address)
	if err != nil {
		return 0
	}
	return a.Amount
}

// Settle applies transfers in order against a scratch copy of the touched
// accounts and publishes the copy only if all of them succeed.
func (l *Ledger) Settle(ctx context.Context, transfers []Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	scratch := make(map[solana.PublicKey]*Account, 2*len(transfers))
	load := func(address solana.PublicKey) (*Account, error) {
		if a, ok := scratch[address]; ok {
			return a, nil
		}
		a, ok := l.accounts[address]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		}
		cp := *a
		scratch[address] = &cp
		return &cp, nil
	}

	for i, t := range transfers {
		from, err := load(t.From)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
		to, err := load(t.To)
		if err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
		if err := l.apply(t, from, to); err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
	}

	for address, a := range scratch {
		l.accounts[address] = a
	}
	return nil
}

func (l *Ledger) apply(t Transfer, from, to *Account) error {
	if !from.Mint.Equals(t.Mint) || !to.Mint.Equals(t.Mint) {
		return ErrMintMismatch
	}
	if !from.Owner.Equals(t.Authority) {
		return ErrOwnerMismatch
	}
	if from.Frozen || to.Frozen {
		return ErrAccountFrozen
	}
	decimals, err := l.mints.Decimals(t.Mint)
	if err != nil {
		return err
	}
	if decimals != t.Decimals {
		return ErrDecimalsMismatch
	}
	if from.Amount < t.Amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, from.Amount, t.Amount)
	}
	fee, err := l.mints.TransferFee(t.Mint, l.epoch, t.Amount)
	if err != nil {
		return err
	}
	if fee > t.Amount {
		fee = t.Amount
	}
	received := t.Amount - fee
	if to.Amount+received < to.Amount {
		return shared.ErrMathOverflow
	}
	from.Amount -= t.Amount
	to.Amount += received
	to.Withheld += fee
	return nil
}
