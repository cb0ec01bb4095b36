package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
)

const (
	MaxInstructionStackDepth = 5
	MaxInstructionTraceLen   = 64
)

type TransactionCtx struct {
	Accounts         TransactionAccounts
	AccountKeys      []solana.PublicKey
	instructionStack []*InstructionCtx
	instructionTrace []*InstructionCtx
	MaxStackHeight   uint64
	MaxTraceLength   uint64
}

func NewTransactionCtx(txAccts TransactionAccounts, maxStackHeight uint64, maxTraceLength uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:       txAccts,
		AccountKeys:    txAccts.Keys(),
		MaxStackHeight: maxStackHeight,
		MaxTraceLength: maxTraceLength,
	}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	if index >= uint64(len(txCtx.AccountKeys)) {
		return solana.PublicKey{}, InstrErrNotEnoughAccountKeys
	}
	return txCtx.AccountKeys[index], nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for index, key := range txCtx.AccountKeys {
		if key == pubkey {
			return uint64(index), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) AccountAtIndex(index uint64) (*accounts.Account, error) {
	return txCtx.Accounts.GetAccount(index)
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	if len(txCtx.instructionStack) == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[len(txCtx.instructionStack)-1], nil
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= uint64(len(txCtx.instructionStack)) {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[level], nil
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace))
}

func (txCtx *TransactionCtx) Push(instrCtx *InstructionCtx) error {
	if txCtx.InstructionCtxStackHeight() >= txCtx.MaxStackHeight {
		return InstrErrCallDepth
	}
	if txCtx.InstructionTraceLength() >= txCtx.MaxTraceLength {
		return InstrErrMaxInstructionTraceLength
	}

	instrCtx.stackHeight = txCtx.InstructionCtxStackHeight() + 1
	txCtx.instructionStack = append(txCtx.instructionStack, instrCtx)
	txCtx.instructionTrace = append(txCtx.instructionTrace, instrCtx)
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if len(txCtx.instructionStack) == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]
	return nil
}
