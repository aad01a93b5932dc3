package token2022

import (
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	// Base mint layout is 82 bytes; extension accounts are padded to the
	// size of a token account so that the account type byte disambiguates.
	mintBaseSize       = 82
	accountTypeOffset  = 165
	accountTypeMint    = 1
	tlvHeaderSize      = 4
	extTransferFeeType = 1
	extTransferFeeLen  = 108
)

var (
	ErrInvalidMintData = errors.New("invalid mint account data")
	ErrUnknownMint     = errors.New("unknown mint")
)

// TransferFee represents the transfer fee configuration for a specific epoch
type TransferFee struct {
	Epoch       uint64 // Epoch when this fee configuration is active
	MaximumFee  uint64 // Maximum fee amount in token units
	BasisPoints uint16 // Fee rate in basis points (1/10000)
}

// TransferFeeConfig represents the complete transfer fee configuration for a token
type TransferFeeConfig struct {
	TransferFeeConfigAuthority *solana.PublicKey
	WithdrawWithheldAuthority  *solana.PublicKey
	WithheldAmount             uint64
	OlderTransferFee           TransferFee
	NewerTransferFee           TransferFee
}

// Mint is the part of a mint account the swap core cares about.
type Mint struct {
	Address  solana.PublicKey
	Program  solana.PublicKey
	Decimals uint8
	// TransferFee is nil for legacy SPL mints and Token-2022 mints without
	// the transfer fee extension.
	TransferFee *TransferFeeConfig
}

// EpochFee returns the fee schedule in force at epoch.
func (m *Mint) EpochFee(epoch uint64) TransferFee {
	return GetEpochFee(m.TransferFee, epoch)
}

// DecodeMint parses raw mint account data owned by program.
func DecodeMint(address, program solana.PublicKey, data []byte) (*Mint, error) {
	if len(data) < mintBaseSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMintData, len(data))
	}
	var base token.Mint
	if err := base.UnmarshalWithDecoder(bin.NewBinDecoder(data[:mintBaseSize])); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMintData, err)
	}
	m := &Mint{Address: address, Program: program, Decimals: base.Decimals}
	if len(data) == mintBaseSize {
		return m, nil
	}

	cfg, err := parseTransferFeeExtension(data)
	if err != nil {
		return nil, err
	}
	m.TransferFee = cfg
	return m, nil
}

// parseTransferFeeExtension walks the TLV area that follows the account type
// byte and decodes the transfer fee config if present.
func parseTransferFeeExtension(data []byte) (*TransferFeeConfig, error) {
	if len(data) <= accountTypeOffset || data[accountTypeOffset] != accountTypeMint {
		return nil, fmt.Errorf("%w: not a mint account", ErrInvalidMintData)
	}
	tlv := data[accountTypeOffset+1:]
	for len(tlv) >= tlvHeaderSize {
		typ := binary.LittleEndian.Uint16(tlv[0:2])
		length := int(binary.LittleEndian.Uint16(tlv[2:4]))
		if typ == 0 {
			// uninitialized tail
			return nil, nil
		}
		value := tlv[tlvHeaderSize:]
		if len(value) < length {
			return nil, fmt.Errorf("%w: extension %d truncated", ErrInvalidMintData, typ)
		}
		if typ == extTransferFeeType {
			if length != extTransferFeeLen {
				return nil, fmt.Errorf("%w: transfer fee extension length %d", ErrInvalidMintData, length)
			}
			return decodeTransferFeeConfig(value[:length]), nil
		}
		tlv = value[length:]
	}
	return nil, nil
}

func decodeTransferFeeConfig(buf []byte) *TransferFeeConfig {
	cfg := &TransferFeeConfig{
		TransferFeeConfigAuthority: optionalPubkey(buf[0:32]),
		WithdrawWithheldAuthority:  optionalPubkey(buf[32:64]),
		WithheldAmount:             binary.LittleEndian.Uint64(buf[64:72]),
	}
	cfg.OlderTransferFee = decodeTransferFee(buf[72:90])
	cfg.NewerTransferFee = decodeTransferFee(buf[90:108])
	return cfg
}

func decodeTransferFee(buf []byte) TransferFee {
	return TransferFee{
		Epoch:       binary.LittleEndian.Uint64(buf[:8]),
		MaximumFee:  binary.LittleEndian.Uint64(buf[8:16]),
		BasisPoints: binary.LittleEndian.Uint16(buf[16:18]),
	}
}

// optionalPubkey decodes an OptionalNonZeroPubkey: all zero bytes mean None.
func optionalPubkey(data []byte) *solana.PublicKey {
	key := solana.PublicKeyFromBytes(data)
	if key.IsZero() {
		return nil
	}
	return &key
}

// GetEpochFee
func GetEpochFee(cfg *TransferFeeConfig, currentEpoch uint64) TransferFee {
	if cfg == nil {
		return TransferFee{} // SPL Token returns 0 fee
	}
	if currentEpoch >= cfg.NewerTransferFee.Epoch {
		return cfg.NewerTransferFee
	}
	return cfg.OlderTransferFee
}
