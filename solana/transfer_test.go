package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"
)

func TestTransferCheckedInstruction(t *testing.T) {
	source := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	destination := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	legacy, err := TransferCheckedInstruction(solana.TokenProgramID, source, mint, destination, authority, 1_000, 6)
	require.NoError(t, err)
	require.Equal(t, token.ProgramID, legacy.ProgramID())

	ix2022, err := TransferCheckedInstruction(solana.Token2022ProgramID, source, mint, destination, authority, 1_000, 6)
	require.NoError(t, err)
	require.Equal(t, solana.Token2022ProgramID, ix2022.ProgramID())

	legacyData, err := legacy.Data()
	require.NoError(t, err)
	data, err := ix2022.Data()
	require.NoError(t, err)
	require.Equal(t, legacyData, data)

	accounts := ix2022.Accounts()
	require.Len(t, accounts, 4)
	require.Equal(t, source, accounts[0].PublicKey)
	require.Equal(t, mint, accounts[1].PublicKey)
	require.Equal(t, destination, accounts[2].PublicKey)
	require.Equal(t, authority, accounts[3].PublicKey)
	require.True(t, accounts[3].IsSigner)
}

func TestAssociatedTokenAddress(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	legacy, err := AssociatedTokenAddress(wallet, mint, solana.PublicKey{})
	require.NoError(t, err)
	want, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)
	require.Equal(t, want, legacy)

	ata2022, err := AssociatedTokenAddress(wallet, mint, solana.Token2022ProgramID)
	require.NoError(t, err)
	require.NotEqual(t, legacy, ata2022)
}
