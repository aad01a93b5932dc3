package events

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/krazyTry/gamma-go/gamma/state"
)

// Sink receives the event of every committed swap.
type Sink interface {
	Emit(ctx context.Context, event *state.SwapEvent) error
}

// ZapSink logs each event at info level.
type ZapSink struct {
	Logger *zap.Logger
}

func (s ZapSink) Emit(_ context.Context, e *state.SwapEvent) error {
	logger := s.Logger
	if logger == nil {
		return nil
	}
	logger.Info("swap",
		zap.String("pool", e.PoolID.String()),
		zap.Uint64("input_vault_before", e.InputVaultBefore),
		zap.Uint64("output_vault_before", e.OutputVaultBefore),
		zap.Uint64("input_amount", e.InputAmount),
		zap.Uint64("output_amount", e.OutputAmount),
		zap.Uint64("input_transfer_fee", e.InputTransferFee),
		zap.Uint64("output_transfer_fee", e.OutputTransferFee),
		zap.Bool("base_input", e.BaseInput),
		zap.String("dynamic_fee", e.DynamicFee.String()),
	)
	return nil
}

// ProgramLogSink writes events as "Program data: <base64>" lines, the form
// indexers parse out of transaction logs.
type ProgramLogSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewProgramLogSink(w io.Writer) *ProgramLogSink {
	return &ProgramLogSink{w: w}
}

func (s *ProgramLogSink) Emit(_ context.Context, e *state.SwapEvent) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = fmt.Fprintf(s.w, "Program data: %s\n", base64.StdEncoding.EncodeToString(data))
	return err
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []state.SwapEvent
}

func (s *MemorySink) Emit(_ context.Context, e *state.SwapEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *MemorySink) Events() []state.SwapEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]state.SwapEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e *state.SwapEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
