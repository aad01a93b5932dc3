package state

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/u128"
)

// SwapEventDiscriminator prefixes the borsh encoding of a SwapEvent, the same
// way an Anchor program tags emitted events.
var SwapEventDiscriminator = eventDiscriminator("SwapEvent")

func eventDiscriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("event:" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

// SwapEvent is the record emitted for every completed swap.
type SwapEvent struct {
	PoolID            solana.PublicKey
	InputVaultBefore  uint64
	OutputVaultBefore uint64
	// InputAmount and OutputAmount exclude transfer fees.
	InputAmount       uint64
	OutputAmount      uint64
	InputTransferFee  uint64
	OutputTransferFee uint64
	BaseInput         bool
	DynamicFee        u128.Uint128
}

func (e SwapEvent) MarshalWithEncoder(encoder *binary.Encoder) error {
	if err := encoder.WriteBytes(SwapEventDiscriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(e.PoolID[:], false); err != nil {
		return err
	}
	for _, v := range []uint64{
		e.InputVaultBefore,
		e.OutputVaultBefore,
		e.InputAmount,
		e.OutputAmount,
		e.InputTransferFee,
		e.OutputTransferFee,
	} {
		if err := encoder.WriteUint64(v, binary.LE); err != nil {
			return err
		}
	}
	if err := encoder.WriteBool(e.BaseInput); err != nil {
		return err
	}
	if err := encoder.WriteUint64(e.DynamicFee.Lo, binary.LE); err != nil {
		return err
	}
	return encoder.WriteUint64(e.DynamicFee.Hi, binary.LE)
}

func (e *SwapEvent) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	disc, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, SwapEventDiscriminator[:]) {
		return fmt.Errorf("wrong discriminator: %x", disc)
	}
	key, err := decoder.ReadNBytes(32)
	if err != nil {
		return err
	}
	e.PoolID = solana.PublicKeyFromBytes(key)
	for _, dst := range []*uint64{
		&e.InputVaultBefore,
		&e.OutputVaultBefore,
		&e.InputAmount,
		&e.OutputAmount,
		&e.InputTransferFee,
		&e.OutputTransferFee,
	} {
		if *dst, err = decoder.ReadUint64(binary.LE); err != nil {
			return err
		}
	}
	if e.BaseInput, err = decoder.ReadBool(); err != nil {
		return err
	}
	lo, err := decoder.ReadUint64(binary.LE)
	if err != nil {
		return err
	}
	hi, err := decoder.ReadUint64(binary.LE)
	if err != nil {
		return err
	}
	e.DynamicFee = u128.New(hi, lo)
	return nil
}

// Marshal returns the discriminator-prefixed borsh encoding.
func (e SwapEvent) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := e.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSwapEvent decodes the output of Marshal.
func UnmarshalSwapEvent(data []byte) (*SwapEvent, error) {
	var e SwapEvent
	if err := e.UnmarshalWithDecoder(binary.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return &e, nil
}
