package sealevel

import (
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store accounts.MemAccounts
	rent  SysvarRent
	log   *LogRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	store := accounts.NewMemAccounts()
	rent := DefaultRent()
	require.NoError(t, WriteGenesisSysvars(store, rent))
	return &testEnv{store: store, rent: rent, log: new(LogRecorder)}
}

type testResult struct {
	txCtx *TransactionCtx
	err   error
}

func (r *testResult) account(t *testing.T, key solana.PublicKey) *accounts.Account {
	idx, err := r.txCtx.IndexOfAccount(key)
	require.NoError(t, err)
	acct, err := r.txCtx.AccountAtIndex(idx)
	require.NoError(t, err)
	return acct
}

func (r *testResult) tokenAccount(t *testing.T, key solana.PublicKey) *TokenAccount {
	tokenAcct, err := UnmarshalTokenAccount(r.account(t, key).Data)
	require.NoError(t, err)
	return tokenAcct
}

// execute runs ix at the top level of a fresh transaction holding accts, an
// empty system account for any other key ix references, and a stub account
// for every registered native program.
func (env *testEnv) execute(t *testing.T, ix Instruction, accts ...accounts.Account) *testResult {
	present := func(key solana.PublicKey) bool {
		return lo.ContainsBy(accts, func(a accounts.Account) bool { return a.Key == key })
	}
	for _, programId := range NativePrograms() {
		if !present(programId) {
			accts = append(accts, NewNativeProgramAccount(programId))
		}
	}
	for _, am := range ix.Accounts {
		if !present(am.Pubkey) {
			accts = append(accts, NewSystemAccount(am.Pubkey, 0))
		}
	}

	txAccts := NewTransactionAccounts(accts)
	txCtx := NewTransactionCtx(*txAccts, MaxInstructionStackDepth, MaxInstructionTraceLen)
	execCtx := NewExecutionCtx(txCtx, env.store, 1_400_000, env.log)

	err := execCtx.ExecuteTopLevelInstruction(ix)
	return &testResult{txCtx: txCtx, err: err}
}

func newTestKey(name string) solana.PublicKey {
	h := sha256.Sum256([]byte(name))
	return solana.PublicKeyFromBytes(h[:])
}

func newRandomKey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}
