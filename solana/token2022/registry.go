package token2022

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/shared"
)

// Registry is an in-memory set of known mints. It answers the transfer fee
// questions a swap asks about its input and output tokens.
type Registry struct {
	mu    sync.RWMutex
	mints map[solana.PublicKey]*Mint
}

func NewRegistry(mints ...*Mint) *Registry {
	r := &Registry{mints: make(map[solana.PublicKey]*Mint, len(mints))}
	for _, m := range mints {
		r.mints[m.Address] = m
	}
	return r
}

// Register adds or replaces a mint.
func (r *Registry) Register(m *Mint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mints[m.Address] = m
}

func (r *Registry) Mint(address solana.PublicKey) (*Mint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mints[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMint, address)
	}
	return m, nil
}

// TransferFee is the fee withheld when amount is sent at epoch.
func (r *Registry) TransferFee(mint solana.PublicKey, epoch, amount uint64) (uint64, error) {
	m, err := r.Mint(mint)
	if err != nil {
		return 0, err
	}
	return CalculateFee(m.EpochFee(epoch), amount), nil
}

// InverseTransferFee is the fee to add on top of postFeeAmount so that
// exactly postFeeAmount arrives.
func (r *Registry) InverseTransferFee(mint solana.PublicKey, epoch, postFeeAmount uint64) (uint64, error) {
	m, err := r.Mint(mint)
	if err != nil {
		return 0, err
	}
	fee, ok := CalculateInverseFee(m.EpochFee(epoch), postFeeAmount)
	if !ok {
		return 0, shared.ErrMathOverflow
	}
	return fee, nil
}

func (r *Registry) Decimals(mint solana.PublicKey) (uint8, error) {
	m, err := r.Mint(mint)
	if err != nil {
		return 0, err
	}
	return m.Decimals, nil
}

// Program returns the token program that owns mint.
func (r *Registry) Program(mint solana.PublicKey) (solana.PublicKey, error) {
	m, err := r.Mint(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if m.Program.IsZero() {
		return solana.TokenProgramID, nil
	}
	return m.Program, nil
}
