package state

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/math"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/u128"
)

// PartnerInfo tracks the protocol fees attributable to a liquidity partner.
type PartnerInfo struct {
	PartnerID solana.PublicKey
	// LpTokenLinkedWithPartner is the LP supply brought in by the partner.
	LpTokenLinkedWithPartner uint64
	// Lifetime protocol fee times TVL share, per token side.
	CumulativeFeeTotalTimesTvlShareToken0 uint64
	CumulativeFeeTotalTimesTvlShareToken1 uint64
}

// PoolState is the mutable state of one trading pair.
type PoolState struct {
	AmmConfig   solana.PublicKey
	PoolCreator solana.PublicKey
	Token0Vault solana.PublicKey
	Token1Vault solana.PublicKey
	LpMint      solana.PublicKey
	Token0Mint  solana.PublicKey
	Token1Mint  solana.PublicKey

	Token0Program solana.PublicKey
	Token1Program solana.PublicKey

	ObservationKey solana.PublicKey

	AuthBump       uint8
	Status         uint8
	LpMintDecimals uint8
	Mint0Decimals  uint8
	Mint1Decimals  uint8

	LpSupply uint64

	// Vault balances net of accrued protocol and fund fees.
	Token0VaultAmount uint64
	Token1VaultAmount uint64

	ProtocolFeesToken0 uint64
	ProtocolFeesToken1 uint64
	FundFeesToken0     uint64
	FundFeesToken1     uint64

	OpenTime    uint64
	RecentEpoch uint64

	CumulativeTradeFeesToken0 u128.Uint128
	CumulativeTradeFeesToken1 u128.Uint128
	CumulativeVolumeToken0    u128.Uint128
	CumulativeVolumeToken1    u128.Uint128

	LatestDynamicFeeRate uint64

	PartnerCount uint8
	Partners     [shared.MaxPartners]PartnerInfo
}

// SetStatus overwrites the whole status mask.
func (p *PoolState) SetStatus(status uint8) {
	p.Status = status
}

// SetStatusByBit enables or disables a single operation.
func (p *PoolState) SetStatusByBit(bit shared.PoolStatusBitIndex, flag shared.PoolStatusBitFlag) {
	mask := uint8(1) << bit
	if flag == shared.PoolStatusDisable {
		p.Status |= mask
	} else {
		p.Status &^= mask
	}
}

// GetStatusByBit reports whether the operation is enabled.
func (p *PoolState) GetStatusByBit(bit shared.PoolStatusBitIndex) bool {
	return p.Status&(uint8(1)<<bit) == 0
}

// VaultAmountWithoutFee returns the tradable reserves.
func (p *PoolState) VaultAmountWithoutFee() (uint64, uint64) {
	return p.Token0VaultAmount, p.Token1VaultAmount
}

// TokenPriceX32 returns the Q32.32 spot price of each token in units of the other.
func (p *PoolState) TokenPriceX32() (u128.Uint128, u128.Uint128, error) {
	amount0, amount1 := p.VaultAmountWithoutFee()
	price0, err := math.PriceX32(amount1, amount0)
	if err != nil {
		return u128.Zero, u128.Zero, err
	}
	price1, err := math.PriceX32(amount0, amount1)
	if err != nil {
		return u128.Zero, u128.Zero, err
	}
	return price0, price1, nil
}

// ActivePartners returns the populated prefix of the partner table.
func (p *PoolState) ActivePartners() []PartnerInfo {
	n := int(p.PartnerCount)
	if n > len(p.Partners) {
		n = len(p.Partners)
	}
	return p.Partners[:n]
}

// AddPartner links LP supply to a partner; it returns false when the table is full.
func (p *PoolState) AddPartner(id solana.PublicKey, lpLinked uint64) bool {
	if int(p.PartnerCount) >= len(p.Partners) {
		return false
	}
	p.Partners[p.PartnerCount] = PartnerInfo{PartnerID: id, LpTokenLinkedWithPartner: lpLinked}
	p.PartnerCount++
	return true
}

// Mints returns the (input, output) mints and decimals for a direction.
func (p *PoolState) Mints(direction shared.TradeDirection) (in, out solana.PublicKey, inDecimals, outDecimals uint8) {
	if direction == shared.TradeDirectionZeroForOne {
		return p.Token0Mint, p.Token1Mint, p.Mint0Decimals, p.Mint1Decimals
	}
	return p.Token1Mint, p.Token0Mint, p.Mint1Decimals, p.Mint0Decimals
}
