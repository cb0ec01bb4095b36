package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

type Instruction struct {
	Accounts  []AccountMeta
	Data      []byte
	ProgramId solana.PublicKey
}

type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type InstructionAccount struct {
	IndexInTransaction uint64
	IndexInCaller      uint64
	IndexInCallee      uint64
	IsSigner           bool
	IsWritable         bool
}

// ToSolana converts the instruction into the solana-go representation used
// when building transactions.
func (instr *Instruction) ToSolana() solana.Instruction {
	metas := make(solana.AccountMetaSlice, 0, len(instr.Accounts))
	for _, am := range instr.Accounts {
		metas = append(metas, &solana.AccountMeta{PublicKey: am.Pubkey, IsSigner: am.IsSigner, IsWritable: am.IsWritable})
	}
	return solana.NewInstruction(instr.ProgramId, metas, instr.Data)
}
