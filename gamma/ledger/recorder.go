package ledger

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	tokenutil "github.com/krazyTry/gamma-go/solana"
)

// ProgramLookup resolves the token program that owns a mint.
type ProgramLookup func(mint solana.PublicKey) (solana.PublicKey, error)

// InstructionRecorder settles a batch by turning it into TransferChecked
// instructions instead of moving balances. Each successful batch is kept
// for the caller to submit.
type InstructionRecorder struct {
	programs ProgramLookup

	mu      sync.Mutex
	batches [][]solana.Instruction
}

func NewInstructionRecorder(programs ProgramLookup) *InstructionRecorder {
	return &InstructionRecorder{programs: programs}
}

func (r *InstructionRecorder) Settle(ctx context.Context, transfers []Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := make([]solana.Instruction, 0, len(transfers))
	for _, t := range transfers {
		program := solana.TokenProgramID
		if r.programs != nil {
			p, err := r.programs(t.Mint)
			if err != nil {
				return err
			}
			program = p
		}
		ix, err := tokenutil.TransferCheckedInstruction(program, t.From, t.Mint, t.To, t.Authority, t.Amount, t.Decimals)
		if err != nil {
			return err
		}
		batch = append(batch, ix)
	}

	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
	return nil
}

// Batches returns the recorded instruction batches, oldest first.
func (r *InstructionRecorder) Batches() [][]solana.Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]solana.Instruction, len(r.batches))
	copy(out, r.batches)
	return out
}
