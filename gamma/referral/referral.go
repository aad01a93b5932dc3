package referral

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/shared"
	tokenutil "github.com/krazyTry/gamma-go/solana"
)

var ErrInvalidReferralAccount = errors.New("invalid referral token account")

// Accounts are the optional referral accounts a trader attaches to a swap.
type Accounts struct {
	// Referral is the address of the referral record.
	Referral solana.PublicKey
	// TokenAccount receives the payout and must be the referrer's
	// associated account for the input mint.
	TokenAccount solana.PublicKey
}

// Info is an active referral that applies to a swap.
type Info struct {
	Referrer     solana.PublicKey
	TokenAccount solana.PublicKey
	ShareBps     uint16
}

// Registry resolves the referral, if any, that applies to a swap paying
// inputMint under a config whose referral project is project.
type Registry interface {
	Lookup(inputMint, inputProgram, project solana.PublicKey, accounts *Accounts) (*Info, error)
}

// Record is a registered referral.
type Record struct {
	Address  solana.PublicKey
	Project  solana.PublicKey
	Referrer solana.PublicKey
	ShareBps uint16
	Active   bool
}

// MemoryRegistry keeps referral records in memory.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[solana.PublicKey]Record
}

func NewMemoryRegistry(records ...Record) *MemoryRegistry {
	r := &MemoryRegistry{records: make(map[solana.PublicKey]Record, len(records))}
	for _, rec := range records {
		r.records[rec.Address] = rec
	}
	return r
}

func (r *MemoryRegistry) Put(rec Record) error {
	if rec.ShareBps > shared.BasisPointMax {
		return fmt.Errorf("%w: share %d bps", shared.ErrInvalidInput, rec.ShareBps)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Address] = rec
	return nil
}

func (r *MemoryRegistry) Deactivate(address solana.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[address]; ok {
		rec.Active = false
		r.records[address] = rec
	}
}

// Lookup returns nil when no accounts were attached, the record is unknown
// or inactive, or it belongs to a different project. A payout account that
// is not the referrer's associated token account is an error.
func (r *MemoryRegistry) Lookup(inputMint, inputProgram, project solana.PublicKey, accounts *Accounts) (*Info, error) {
	if accounts == nil || project.IsZero() {
		return nil, nil
	}
	r.mu.RLock()
	rec, ok := r.records[accounts.Referral]
	r.mu.RUnlock()
	if !ok || !rec.Active || !rec.Project.Equals(project) {
		return nil, nil
	}

	want, err := tokenutil.AssociatedTokenAddress(rec.Referrer, inputMint, inputProgram)
	if err != nil {
		return nil, err
	}
	if !want.Equals(accounts.TokenAccount) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrInvalidReferralAccount, accounts.TokenAccount, want)
	}
	return &Info{
		Referrer:     rec.Referrer,
		TokenAccount: accounts.TokenAccount,
		ShareBps:     rec.ShareBps,
	}, nil
}
