package events

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/u128"
)

func sampleEvent() *state.SwapEvent {
	return &state.SwapEvent{
		PoolID:            solana.NewWallet().PublicKey(),
		InputVaultBefore:  1_000_000,
		OutputVaultBefore: 1_000_000,
		InputAmount:       10_000,
		OutputAmount:      9_876,
		BaseInput:         true,
		DynamicFee:        u128.From64(25),
	}
}

func TestProgramLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewProgramLogSink(&buf)
	e := sampleEvent()
	require.NoError(t, sink.Emit(context.Background(), e))

	line := strings.TrimSpace(buf.String())
	require.True(t, strings.HasPrefix(line, "Program data: "))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, "Program data: "))
	require.NoError(t, err)

	got, err := state.UnmarshalSwapEvent(raw)
	require.NoError(t, err)
	require.Equal(t, *e, *got)
}

func TestZapSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := ZapSink{Logger: zap.New(core)}
	require.NoError(t, sink.Emit(context.Background(), sampleEvent()))

	entries := logs.FilterMessage("swap").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, uint64(9_876), fields["output_amount"])
	require.Equal(t, "25", fields["dynamic_fee"])
	require.Equal(t, true, fields["base_input"])
}

type failingSink struct{ err error }

func (f failingSink) Emit(context.Context, *state.SwapEvent) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	mem := &MemorySink{}
	boom := errors.New("boom")
	err := Multi{mem, failingSink{boom}, mem}.Emit(context.Background(), sampleEvent())
	require.ErrorIs(t, err, boom)
	require.Len(t, mem.Events(), 2)

	require.NoError(t, Multi{mem}.Emit(context.Background(), sampleEvent()))
	require.Len(t, mem.Events(), 3)
}
