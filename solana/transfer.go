package solana

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// TransferCheckedInstruction builds a TransferChecked for either token
// program. The instruction layout is shared by SPL Token and Token-2022;
// only the program id differs.
func TransferCheckedInstruction(
	program solana.PublicKey,
	source solana.PublicKey,
	mint solana.PublicKey,
	destination solana.PublicKey,
	authority solana.PublicKey,
	amount uint64,
	decimals uint8,
) (solana.Instruction, error) {
	ix := token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		authority,
		[]solana.PublicKey{},
	).Build()

	if program.IsZero() || program.Equals(token.ProgramID) {
		return ix, nil
	}
	data, err := ix.Data()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(program, ix.Accounts(), data), nil
}

// AssociatedTokenAddress derives the associated token account of wallet for
// a mint owned by program.
func AssociatedTokenAddress(wallet, mint, program solana.PublicKey) (solana.PublicKey, error) {
	if program.IsZero() {
		program = solana.TokenProgramID
	}
	addr, _, err := solana.FindProgramAddress(
		[][]byte{wallet[:], program[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	return addr, err
}
