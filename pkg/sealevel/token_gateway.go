package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

func tokenAmountInstrData(instrType byte, amount uint64) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteByte(instrType)
	_ = encoder.WriteUint64(amount, bin.LE)
	return buf.Bytes()
}

func NewTokenInitializeMint2Instruction(mint solana.PublicKey, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey, decimals byte) Instruction {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteByte(TokenInstrTypeInitializeMint2)
	_ = encoder.WriteByte(decimals)
	_ = encoder.WriteBytes(mintAuthority[:], false)
	if freezeAuthority == nil {
		_ = encoder.WriteByte(0)
	} else {
		_ = encoder.WriteByte(1)
		_ = encoder.WriteBytes(freezeAuthority[:], false)
	}

	accountMetas := []AccountMeta{{Pubkey: mint, IsWritable: true}}
	return Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: TokenProgramAddr}
}

func NewTokenInitializeAccount3Instruction(account solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey) Instruction {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteByte(TokenInstrTypeInitializeAccount3)
	_ = encoder.WriteBytes(owner[:], false)

	accountMetas := []AccountMeta{
		{Pubkey: account, IsWritable: true},
		{Pubkey: mint},
	}
	return Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: TokenProgramAddr}
}

func NewTokenTransferInstruction(source solana.PublicKey, dest solana.PublicKey, authority solana.PublicKey, amount uint64) Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: source, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
		{Pubkey: authority, IsSigner: true},
	}
	return Instruction{Accounts: accountMetas, Data: tokenAmountInstrData(TokenInstrTypeTransfer, amount), ProgramId: TokenProgramAddr}
}

func NewTokenMintToInstruction(mint solana.PublicKey, dest solana.PublicKey, authority solana.PublicKey, amount uint64) Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: mint, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
		{Pubkey: authority, IsSigner: true},
	}
	return Instruction{Accounts: accountMetas, Data: tokenAmountInstrData(TokenInstrTypeMintTo, amount), ProgramId: TokenProgramAddr}
}

func NewTokenBurnInstruction(account solana.PublicKey, mint solana.PublicKey, authority solana.PublicKey, amount uint64) Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: account, IsWritable: true},
		{Pubkey: mint, IsWritable: true},
		{Pubkey: authority, IsSigner: true},
	}
	return Instruction{Accounts: accountMetas, Data: tokenAmountInstrData(TokenInstrTypeBurn, amount), ProgramId: TokenProgramAddr}
}

// TokenTransfer moves amount from one token account to another. The
// authority must have signed the calling instruction.
func TokenTransfer(execCtx *ExecutionCtx, from solana.PublicKey, to solana.PublicKey, authority solana.PublicKey, amount uint64) error {
	return execCtx.NativeInvoke(NewTokenTransferInstruction(from, to, authority, amount), nil)
}

// TokenTransferSigned moves amount out of a token account whose authority is
// a derived address of the calling program, signing with capability.
func TokenTransferSigned(execCtx *ExecutionCtx, from solana.PublicKey, to solana.PublicKey, authority solana.PublicKey, amount uint64, capability Capability) error {
	if capability.Principal != authority {
		klog.Errorf("capability for %s cannot sign for %s", capability.Principal, authority)
		return InstrErrInvalidSeeds
	}
	return execCtx.NativeInvokeSigned(NewTokenTransferInstruction(from, to, authority, amount), capability)
}

// TokenBurn destroys amount from a token account and the mint's supply.
func TokenBurn(execCtx *ExecutionCtx, mint solana.PublicKey, from solana.PublicKey, authority solana.PublicKey, amount uint64) error {
	return execCtx.NativeInvoke(NewTokenBurnInstruction(from, mint, authority, amount), nil)
}
