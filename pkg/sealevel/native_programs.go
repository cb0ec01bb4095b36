package sealevel

import (
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/base58"
	"github.com/solbootcamp/vaultkit/pkg/util"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

const TokenProgramAddrStr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

var TokenProgramAddr = base58.MustDecodeFromString(TokenProgramAddrStr)

const AssociatedTokenProgramAddrStr = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"

var AssociatedTokenProgramAddr = base58.MustDecodeFromString(AssociatedTokenProgramAddrStr)

type NativeProgramFn func(execCtx *ExecutionCtx) error

// nativePrograms maps program ids to their entrypoints.
var nativePrograms = make(map[solana.PublicKey]NativeProgramFn)

// RegisterNativeProgram makes a program callable by id. Registering the same
// id twice replaces the entrypoint.
// Not thread-safe -- should be only called from the init/main goroutine.
func RegisterNativeProgram(programId solana.PublicKey, fn NativeProgramFn) {
	nativePrograms[programId] = fn
}

func init() {
	RegisterNativeProgram(SystemProgramAddr, SystemProgramExecute)
	RegisterNativeProgram(TokenProgramAddr, TokenProgramExecute)
	RegisterNativeProgram(AssociatedTokenProgramAddr, AssociatedTokenProgramExecute)
}

func ResolveNativeProgramById(programId solana.PublicKey) (NativeProgramFn, error) {
	fn, ok := nativePrograms[programId]
	if !ok {
		return nil, InstrErrUnsupportedProgramId
	}
	return fn, nil
}

func IsNativeProgram(programId solana.PublicKey) bool {
	_, ok := nativePrograms[programId]
	return ok
}

// NativePrograms returns the registered program ids in key order.
func NativePrograms() []solana.PublicKey {
	ids := make([]solana.PublicKey, 0, len(nativePrograms))
	for id := range nativePrograms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return util.PubkeyCmp(ids[i], ids[j])
	})
	return ids
}

func verifySigner(authorized solana.PublicKey, signers []solana.PublicKey) error {
	for _, signer := range signers {
		if signer == authorized {
			return nil
		}
	}
	return InstrErrMissingRequiredSignature
}
