package fees

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/ledger"
	"github.com/krazyTry/gamma-go/gamma/state"
)

// CollectRequest withdraws accrued fees from the pool vaults.
type CollectRequest struct {
	// Authority is the vault owner (the pool authority).
	Authority solana.PublicKey
	// Recipient0 and Recipient1 are token accounts for token 0 and token 1.
	Recipient0 solana.PublicKey
	Recipient1 solana.PublicKey
	// Amount0Requested and Amount1Requested are upper bounds; use
	// math.MaxUint64 to drain everything accrued.
	Amount0Requested uint64
	Amount1Requested uint64
}

// Collection is the result of a fee withdrawal.
type Collection struct {
	Amount0   uint64
	Amount1   uint64
	Transfers []ledger.Transfer
}

// CollectProtocolFee debits accrued protocol fees from pool, bounded by the
// request, and returns the vault transfers that pay them out.
func CollectProtocolFee(pool *state.PoolState, req CollectRequest) *Collection {
	return collect(pool, req, &pool.ProtocolFeesToken0, &pool.ProtocolFeesToken1)
}

// CollectFundFee is CollectProtocolFee for the fund's share.
func CollectFundFee(pool *state.PoolState, req CollectRequest) *Collection {
	return collect(pool, req, &pool.FundFeesToken0, &pool.FundFeesToken1)
}

func collect(pool *state.PoolState, req CollectRequest, accrued0, accrued1 *uint64) *Collection {
	c := &Collection{
		Amount0: min(req.Amount0Requested, *accrued0),
		Amount1: min(req.Amount1Requested, *accrued1),
	}
	*accrued0 -= c.Amount0
	*accrued1 -= c.Amount1

	if c.Amount0 > 0 {
		c.Transfers = append(c.Transfers, ledger.Transfer{
			From:      pool.Token0Vault,
			To:        req.Recipient0,
			Authority: req.Authority,
			Mint:      pool.Token0Mint,
			Amount:    c.Amount0,
			Decimals:  pool.Mint0Decimals,
		})
	}
	if c.Amount1 > 0 {
		c.Transfers = append(c.Transfers, ledger.Transfer{
			From:      pool.Token1Vault,
			To:        req.Recipient1,
			Authority: req.Authority,
			Mint:      pool.Token1Mint,
			Amount:    c.Amount1,
			Decimals:  pool.Mint1Decimals,
		})
	}
	return c
}
