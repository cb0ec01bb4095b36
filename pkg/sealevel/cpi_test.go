package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vaultTestProgramAddr = newTestKey("vault-test-program")

const (
	vaultTestOpSignedTransfer = iota
	vaultTestOpMintLamports
	vaultTestOpLeakBorrow
	vaultTestOpWrongPrincipal
)

// vaultTestProgram exercises invocation with capabilities. Instruction data is
// op, bump, seed-corruption flag.
func vaultTestProgram(execCtx *ExecutionCtx) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	if len(instrCtx.Data) < 3 {
		return InstrErrInvalidInstructionData
	}

	switch instrCtx.Data[0] {
	case vaultTestOpSignedTransfer, vaultTestOpWrongPrincipal:
		vault, _ := extractAddress(txCtx, instrCtx, 0)
		dest, _ := extractAddress(txCtx, instrCtx, 1)
		authority, _ := extractAddress(txCtx, instrCtx, 2)

		seed := []byte("vault")
		if instrCtx.Data[2] == 1 {
			seed = []byte("vaulT")
		}
		capability := Capability{Seeds: [][]byte{seed, {instrCtx.Data[1]}}, Principal: authority}
		if instrCtx.Data[0] == vaultTestOpWrongPrincipal {
			capability.Principal = dest
			return execCtx.NativeInvokeSigned(NewTokenTransferInstruction(vault, dest, authority, 10), capability)
		}
		return TokenTransferSigned(execCtx, vault, dest, authority, 10, capability)

	case vaultTestOpMintLamports:
		acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return err
		}
		defer acct.Drop()
		return acct.CheckedAddLamports(5)

	case vaultTestOpLeakBorrow:
		_, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		return err
	}
	return InstrErrInvalidInstructionData
}

func init() {
	RegisterNativeProgram(vaultTestProgramAddr, vaultTestProgram)
}

type vaultFixture struct {
	env       *testEnv
	authority solana.PublicKey
	bump      uint8
	vault     accounts.Account
	dest      accounts.Account
}

func newVaultFixture(t *testing.T) *vaultFixture {
	env := newTestEnv(t)
	authority, bump, err := solanapda.FindProgramAddress([][]byte{[]byte("vault")}, vaultTestProgramAddr)
	require.NoError(t, err)

	mint := newRandomKey(t)
	return &vaultFixture{
		env:       env,
		authority: authority,
		bump:      bump,
		vault:     NewTokenAccount(newRandomKey(t), mint, authority, 100, env.rent),
		dest:      NewTokenAccount(newRandomKey(t), mint, newRandomKey(t), 0, env.rent),
	}
}

func (f *vaultFixture) instruction(op byte, corrupt byte) Instruction {
	return Instruction{
		ProgramId: vaultTestProgramAddr,
		Data:      []byte{op, f.bump, corrupt},
		Accounts: []AccountMeta{
			{Pubkey: f.vault.Key, IsWritable: true},
			{Pubkey: f.dest.Key, IsWritable: true},
			{Pubkey: f.authority},
			{Pubkey: TokenProgramAddr},
		},
	}
}

func TestExecute_NativeInvokeSigned_Success(t *testing.T) {
	f := newVaultFixture(t)

	res := f.env.execute(t, f.instruction(vaultTestOpSignedTransfer, 0), f.vault, f.dest)
	require.NoError(t, res.err)

	assert.Equal(t, uint64(90), res.tokenAccount(t, f.vault.Key).Amount)
	assert.Equal(t, uint64(10), res.tokenAccount(t, f.dest.Key).Amount)
	assert.Contains(t, f.env.log.Logs, "Program "+solana.PublicKey(TokenProgramAddr).String()+" invoke [2]")
}

func TestExecute_NativeInvokeSigned_WrongSeeds(t *testing.T) {
	f := newVaultFixture(t)

	res := f.env.execute(t, f.instruction(vaultTestOpSignedTransfer, 1), f.vault, f.dest)
	assert.ErrorIs(t, res.err, InstrErrInvalidSeeds)
	assert.Equal(t, uint64(100), res.tokenAccount(t, f.vault.Key).Amount)
	assert.False(t, res.txCtx.Accounts.Touched[0])
}

func TestExecute_NativeInvokeSigned_CapabilityForOtherAccount(t *testing.T) {
	f := newVaultFixture(t)

	res := f.env.execute(t, f.instruction(vaultTestOpWrongPrincipal, 0), f.vault, f.dest)
	assert.ErrorIs(t, res.err, InstrErrInvalidSeeds)
}

func TestExecute_NativeInvoke_SignerEscalation(t *testing.T) {
	f := newVaultFixture(t)

	// without a capability the derived authority cannot sign
	execProgram := newTestKey("escalation-test-program")
	RegisterNativeProgram(execProgram, func(execCtx *ExecutionCtx) error {
		return TokenTransfer(execCtx, f.vault.Key, f.dest.Key, f.authority, 10)
	})
	ix := f.instruction(vaultTestOpSignedTransfer, 0)
	ix.ProgramId = execProgram

	res := f.env.execute(t, ix, f.vault, f.dest, NewNativeProgramAccount(execProgram))
	assert.ErrorIs(t, res.err, InstrErrPrivilegeEscalation)
}

func TestExecute_UnbalancedInstruction(t *testing.T) {
	f := newVaultFixture(t)
	acct := NewSystemAccount(newRandomKey(t), 100)
	acct.Owner = vaultTestProgramAddr

	ix := Instruction{ProgramId: vaultTestProgramAddr, Data: []byte{vaultTestOpMintLamports, 0, 0},
		Accounts: []AccountMeta{{Pubkey: acct.Key, IsWritable: true}}}
	res := f.env.execute(t, ix, acct)
	assert.ErrorIs(t, res.err, InstrErrUnbalancedInstruction)
}

func TestExecute_BorrowOutstanding(t *testing.T) {
	f := newVaultFixture(t)
	acct := NewSystemAccount(newRandomKey(t), 100)

	ix := Instruction{ProgramId: vaultTestProgramAddr, Data: []byte{vaultTestOpLeakBorrow, 0, 0},
		Accounts: []AccountMeta{{Pubkey: acct.Key}}}
	res := f.env.execute(t, ix, acct)
	assert.ErrorIs(t, res.err, InstrErrAccountBorrowOutstanding)
}

func TestExecute_AssociatedToken_CreateIdempotent(t *testing.T) {
	env := newTestEnv(t)
	payer := NewSystemAccount(newRandomKey(t), 10_000_000)
	wallet := newRandomKey(t)
	mint := NewMintAccount(newRandomKey(t), &wallet, 0, 6, env.rent)

	ix, err := NewCreateAssociatedTokenAccountInstruction(payer.Key, wallet, mint.Key, true)
	require.NoError(t, err)
	ataKey := ix.Accounts[1].Pubkey

	res := env.execute(t, ix, payer, mint)
	require.NoError(t, res.err)

	ata := res.account(t, ataKey)
	assert.Equal(t, solana.PublicKey(TokenProgramAddr), ata.Owner)
	assert.Equal(t, env.rent.MinimumBalance(TokenAccountLen), ata.Lamports)
	assert.Equal(t, uint64(10_000_000)-ata.Lamports, res.account(t, payer.Key).Lamports)

	tokenAcct := res.tokenAccount(t, ataKey)
	assert.Equal(t, wallet, tokenAcct.Owner)
	assert.Equal(t, mint.Key, tokenAcct.Mint)

	// existing account: idempotent create succeeds, plain create does not
	existing := *ata
	res = env.execute(t, ix, payer, mint, existing)
	require.NoError(t, res.err)
	assert.Equal(t, uint64(10_000_000), res.account(t, payer.Key).Lamports)

	plain, err := NewCreateAssociatedTokenAccountInstruction(payer.Key, wallet, mint.Key, false)
	require.NoError(t, err)
	res = env.execute(t, plain, payer, mint, existing)
	assert.ErrorIs(t, res.err, InstrErrIllegalOwner)
}

func TestExecute_AssociatedToken_WrongAddress(t *testing.T) {
	env := newTestEnv(t)
	payer := NewSystemAccount(newRandomKey(t), 10_000_000)
	wallet := newRandomKey(t)
	mint := NewMintAccount(newRandomKey(t), &wallet, 0, 6, env.rent)

	ix, err := NewCreateAssociatedTokenAccountInstruction(payer.Key, wallet, mint.Key, true)
	require.NoError(t, err)
	ix.Accounts[1].Pubkey = newRandomKey(t)

	res := env.execute(t, ix, payer, mint, NewSystemAccount(ix.Accounts[1].Pubkey, 0))
	assert.ErrorIs(t, res.err, InstrErrInvalidSeeds)
}

func TestExecute_AssociatedToken_PrefundedAddress(t *testing.T) {
	env := newTestEnv(t)
	payer := NewSystemAccount(newRandomKey(t), 10_000_000)
	wallet := newRandomKey(t)
	mint := NewMintAccount(newRandomKey(t), &wallet, 0, 6, env.rent)

	ix, err := NewCreateAssociatedTokenAccountInstruction(payer.Key, wallet, mint.Key, false)
	require.NoError(t, err)
	ataKey := ix.Accounts[1].Pubkey

	res := env.execute(t, ix, payer, mint, NewSystemAccount(ataKey, 1000))
	require.NoError(t, res.err)

	assert.Equal(t, env.rent.MinimumBalance(TokenAccountLen), res.account(t, ataKey).Lamports)
	assert.Equal(t, uint64(10_000_000)-(env.rent.MinimumBalance(TokenAccountLen)-1000), res.account(t, payer.Key).Lamports)
}

func TestInstructionAcctsFromAccountMetas_MergesDuplicates(t *testing.T) {
	a := NewSystemAccount(newRandomKey(t), 1)
	b := NewSystemAccount(newRandomKey(t), 1)
	txAccts := NewTransactionAccounts([]accounts.Account{a, b})

	metas := []AccountMeta{{Pubkey: b.Key}, {Pubkey: a.Key, IsSigner: true}, {Pubkey: b.Key, IsWritable: true}}
	instrAccts, err := InstructionAcctsFromAccountMetas(metas, *txAccts)
	require.NoError(t, err)
	require.Len(t, instrAccts, 3)

	assert.Equal(t, uint64(1), instrAccts[0].IndexInTransaction)
	assert.Equal(t, uint64(0), instrAccts[2].IndexInCallee)
	assert.True(t, instrAccts[0].IsWritable)
	assert.True(t, instrAccts[2].IsWritable)
	assert.True(t, instrAccts[1].IsSigner)

	_, err = InstructionAcctsFromAccountMetas([]AccountMeta{{Pubkey: newRandomKey(t)}}, *txAccts)
	assert.ErrorIs(t, err, InstrErrMissingAccount)
}

func TestSysvarClock_Update(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, UpdateClockSysvar(env.store, 500, 1700000000))
	clock, err := ReadClockSysvar(env.store)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), clock.Slot)
	assert.Equal(t, int64(1700000000), clock.UnixTimestamp)

	assert.Error(t, UpdateClockSysvar(env.store, 499, 0))

}
