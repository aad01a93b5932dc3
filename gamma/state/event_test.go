package state

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/u128"
)

func TestSwapEventBorshLayout(t *testing.T) {
	ev := SwapEvent{
		PoolID:            solana.NewWallet().PublicKey(),
		InputVaultBefore:  1_000_000,
		OutputVaultBefore: 2_000_000,
		InputAmount:       10_000,
		OutputAmount:      19_000,
		InputTransferFee:  3,
		OutputTransferFee: 4,
		BaseInput:         true,
		DynamicFee:        u128.New(1, 25),
	}
	data, err := ev.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	// discriminator + pubkey + 6*u64 + bool + u128
	if want := 8 + 32 + 6*8 + 1 + 16; len(data) != want {
		t.Fatalf("encoded length = %d, want %d", len(data), want)
	}
	got, err := UnmarshalSwapEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.PoolID != ev.PoolID || got.OutputAmount != ev.OutputAmount || !got.BaseInput || !got.DynamicFee.Equals(ev.DynamicFee) {
		t.Fatalf("decoded %+v", got)
	}

	data[0] ^= 0xff
	if _, err := UnmarshalSwapEvent(data); err == nil {
		t.Fatal("corrupted discriminator accepted")
	}
}
