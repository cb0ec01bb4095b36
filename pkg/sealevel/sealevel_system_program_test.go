package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_Tx_System_Program_CreateAccount_Success(t *testing.T) {
	env := newTestEnv(t)

	fundingAcct := NewSystemAccount(newRandomKey(t), 10000)
	newAcct := NewSystemAccount(newRandomKey(t), 0)
	owner := newRandomKey(t)

	ix := NewCreateAccountInstruction(fundingAcct.Key, newAcct.Key, 1234, 1234, owner)
	res := env.execute(t, ix, fundingAcct, newAcct)
	require.NoError(t, res.err)

	newAcctPost := res.account(t, newAcct.Key)
	assert.Equal(t, uint64(1234), newAcctPost.Lamports)
	assert.Equal(t, 1234, len(newAcctPost.Data))
	assert.Equal(t, owner, newAcctPost.Owner)

	fundingAcctPost := res.account(t, fundingAcct.Key)
	assert.Equal(t, uint64(10000-1234), fundingAcctPost.Lamports)

	assert.True(t, res.txCtx.Accounts.Touched[1])
}

func TestExecute_Tx_System_Program_CreateAccount_AlreadyInUse(t *testing.T) {
	env := newTestEnv(t)

	fundingAcct := NewSystemAccount(newRandomKey(t), 10000)
	newAcct := NewSystemAccount(newRandomKey(t), 1)

	ix := NewCreateAccountInstruction(fundingAcct.Key, newAcct.Key, 1234, 10, SystemProgramAddr)
	res := env.execute(t, ix, fundingAcct, newAcct)
	assert.ErrorIs(t, res.err, SystemProgErrAccountAlreadyInUse)
}

func TestExecute_Tx_System_Program_Transfer_Success(t *testing.T) {
	env := newTestEnv(t)

	from := NewSystemAccount(newRandomKey(t), 5000)
	to := NewSystemAccount(newRandomKey(t), 10)

	res := env.execute(t, NewTransferInstruction(from.Key, to.Key, 4000), from, to)
	require.NoError(t, res.err)

	assert.Equal(t, uint64(1000), res.account(t, from.Key).Lamports)
	assert.Equal(t, uint64(4010), res.account(t, to.Key).Lamports)
}

func TestExecute_Tx_System_Program_Transfer_Failures(t *testing.T) {
	env := newTestEnv(t)

	from := NewSystemAccount(newRandomKey(t), 5000)
	to := NewSystemAccount(newRandomKey(t), 0)

	res := env.execute(t, NewTransferInstruction(from.Key, to.Key, 5001), from, to)
	assert.ErrorIs(t, res.err, SystemProgErrResultWithNegativeLamports)

	unsigned := NewTransferInstruction(from.Key, to.Key, 1)
	unsigned.Accounts[0].IsSigner = false
	res = env.execute(t, unsigned, from, to)
	assert.ErrorIs(t, res.err, InstrErrMissingRequiredSignature)

	readonly := NewTransferInstruction(from.Key, to.Key, 1)
	readonly.Accounts[1].IsWritable = false
	res = env.execute(t, readonly, from, to)
	assert.ErrorIs(t, res.err, InstrErrReadonlyLamportChange)
}

func TestExecute_Tx_System_Program_AllocateAndAssign(t *testing.T) {
	env := newTestEnv(t)

	acct := NewSystemAccount(newRandomKey(t), 100)
	owner := newRandomKey(t)

	res := env.execute(t, NewAllocateInstruction(acct.Key, 64), acct)
	require.NoError(t, res.err)
	assert.Len(t, res.account(t, acct.Key).Data, 64)

	res = env.execute(t, NewAssignInstruction(acct.Key, owner), acct)
	require.NoError(t, res.err)
	assert.Equal(t, owner, res.account(t, acct.Key).Owner)

	inUse := accounts.Account{Key: acct.Key, Lamports: 100, Data: []byte{1}, Owner: SystemProgramAddr}
	res = env.execute(t, NewAllocateInstruction(acct.Key, 64), inUse)
	assert.ErrorIs(t, res.err, SystemProgErrAccountAlreadyInUse)
}

func TestExecute_Tx_System_Program_InvalidInstruction(t *testing.T) {
	env := newTestEnv(t)
	acct := NewSystemAccount(newRandomKey(t), 100)

	ix := Instruction{ProgramId: SystemProgramAddr, Data: []byte{99, 0, 0, 0},
		Accounts: []AccountMeta{{Pubkey: acct.Key, IsSigner: true, IsWritable: true}}}
	res := env.execute(t, ix, acct)
	assert.ErrorIs(t, res.err, InstrErrInvalidInstructionData)

	ix.Data = []byte{1}
	res = env.execute(t, ix, acct)
	assert.ErrorIs(t, res.err, InstrErrInvalidInstructionData)
}

func TestExecute_UnknownProgram(t *testing.T) {
	env := newTestEnv(t)
	programId := newRandomKey(t)
	programAcct := accounts.Account{Key: programId, Lamports: 1, Owner: NativeLoaderAddr, Executable: true}

	res := env.execute(t, Instruction{ProgramId: programId}, programAcct)
	assert.ErrorIs(t, res.err, InstrErrUnsupportedProgramId)

	res = env.execute(t, Instruction{ProgramId: solana.PublicKey{9}})
	assert.ErrorIs(t, res.err, InstrErrUnsupportedProgramId)
}
