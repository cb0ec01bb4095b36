package sealevel

import (
	"github.com/gagliardetto/solana-go"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
	"k8s.io/klog/v2"
)

const (
	AssociatedTokenInstrTypeCreate           = 0
	AssociatedTokenInstrTypeCreateIdempotent = 1
)

var AssociatedTokenErrInvalidOwner = NewCustomError(0, "InvalidOwner", "Associated token account owner does not match address derivation")

func associatedTokenSeeds(wallet solana.PublicKey, mint solana.PublicKey) [][]byte {
	return [][]byte{wallet[:], TokenProgramAddr[:], mint[:]}
}

// FindAssociatedTokenAddress derives the canonical token account for
// (wallet, mint).
func FindAssociatedTokenAddress(wallet solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanapda.FindProgramAddress(associatedTokenSeeds(wallet, mint), AssociatedTokenProgramAddr)
}

func NewCreateAssociatedTokenAccountInstruction(payer solana.PublicKey, wallet solana.PublicKey, mint solana.PublicKey, idempotent bool) (Instruction, error) {
	ata, _, err := FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return Instruction{}, err
	}

	accountMetas := []AccountMeta{
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: ata, IsWritable: true},
		{Pubkey: wallet},
		{Pubkey: mint},
		{Pubkey: SystemProgramAddr},
		{Pubkey: TokenProgramAddr},
	}

	instrType := byte(AssociatedTokenInstrTypeCreate)
	if idempotent {
		instrType = AssociatedTokenInstrTypeCreateIdempotent
	}

	return Instruction{Accounts: accountMetas, Data: []byte{instrType}, ProgramId: AssociatedTokenProgramAddr}, nil
}

func AssociatedTokenProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUAssociatedTokenProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	var idempotent bool
	if len(instrCtx.Data) > 0 {
		switch instrCtx.Data[0] {
		case AssociatedTokenInstrTypeCreate:
			idempotent = false
		case AssociatedTokenInstrTypeCreateIdempotent:
			idempotent = true
		default:
			return InstrErrInvalidInstructionData
		}
	}

	err = instrCtx.CheckNumOfInstructionAccounts(6)
	if err != nil {
		return err
	}

	keys := make([]solana.PublicKey, 6)
	for idx := range keys {
		keys[idx], err = extractAddress(txCtx, instrCtx, uint64(idx))
		if err != nil {
			return err
		}
	}
	payer, ataKey, wallet, mint, tokenProgram := keys[0], keys[1], keys[2], keys[3], keys[5]

	if tokenProgram != TokenProgramAddr {
		return InstrErrIncorrectProgramId
	}

	expected, bump, err := FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return InstrErrInvalidSeeds
	}
	if expected != ataKey {
		klog.Errorf("associated token address %s does not match derived %s", ataKey, expected)
		return InstrErrInvalidSeeds
	}

	ata, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	ataOwner := ata.Owner()
	ataData := make([]byte, len(ata.Data()))
	copy(ataData, ata.Data())
	ata.Drop()

	if idempotent && ataOwner == TokenProgramAddr {
		existing, err := UnmarshalTokenAccount(ataData)
		if err != nil {
			return err
		}
		if existing.Owner != wallet {
			return AssociatedTokenErrInvalidOwner
		}
		if existing.Mint != mint {
			return InstrErrInvalidAccountData
		}
		return nil
	}

	if ataOwner != SystemProgramAddr {
		return InstrErrIllegalOwner
	}

	capability := Capability{Seeds: solanapda.SeedsWithBump(associatedTokenSeeds(wallet, mint), bump), Principal: ataKey}
	err = CreateProgramAccount(execCtx, payer, ataKey, TokenAccountLen, TokenProgramAddr, capability)
	if err != nil {
		return err
	}

	return execCtx.NativeInvoke(NewTokenInitializeAccount3Instruction(ataKey, mint, wallet), nil)
}
