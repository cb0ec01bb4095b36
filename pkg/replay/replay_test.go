package replay

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/fees"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solLamports = 1_000_000_000

func newTestSlotCtx(t *testing.T) *SlotCtx {
	store := accounts.NewMemAccounts()
	require.NoError(t, sealevel.WriteGenesisSysvars(store, sealevel.DefaultRent()))
	return NewSlotCtx(store, 0)
}

func fund(t *testing.T, slotCtx *SlotCtx, key solana.PublicKey, lamports uint64) {
	acct := sealevel.NewSystemAccount(key, lamports)
	require.NoError(t, slotCtx.Accounts.StoreAccounts([]*accounts.Account{&acct}))
}

func lamportsOf(t *testing.T, slotCtx *SlotCtx, key solana.PublicKey) uint64 {
	acct, err := slotCtx.GetAccount(key)
	require.NoError(t, err)
	if acct == nil {
		return 0
	}
	return acct.Lamports
}

func transferTx(t *testing.T, from solana.PrivateKey, to solana.PublicKey, lamports uint64) *solana.Transaction {
	ix := system.NewTransferInstruction(lamports, from.PublicKey(), to).Build()
	tx, err := NewSignedTransaction([]solana.Instruction{ix}, solana.Hash{1}, from)
	require.NoError(t, err)
	return tx
}

func TestProcessTransaction_TransferCommits(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	payer := KeypairFromName("payer")
	recipient := KeypairFromName("recipient").PublicKey()
	fund(t, slotCtx, payer.PublicKey(), 10*solLamports)

	result, err := ProcessTransaction(slotCtx, transferTx(t, payer, recipient, solLamports))
	require.NoError(t, err)
	require.NoError(t, result.Err)

	assert.Equal(t, txStatusSuccess, result.Status)
	assert.Equal(t, uint64(fees.DefaultLamportsPerSignature), result.Fee)
	assert.Equal(t, uint64(9*solLamports-fees.DefaultLamportsPerSignature), lamportsOf(t, slotCtx, payer.PublicKey()))
	assert.Equal(t, uint64(solLamports), lamportsOf(t, slotCtx, recipient))
	assert.ElementsMatch(t, []solana.PublicKey{payer.PublicKey(), recipient}, result.Modified)
	assert.NotEqual(t, [32]byte{}, result.AccountsDeltaHash)
	assert.Contains(t, result.Logs, "Program 11111111111111111111111111111111 success")
	assert.True(t, slotCtx.ModifiedAccts[recipient])
}

func TestProcessTransaction_FailureChargesOnlyFee(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	payer := KeypairFromName("payer")
	recipient := KeypairFromName("recipient").PublicKey()
	fund(t, slotCtx, payer.PublicKey(), 2*solLamports)

	result, err := ProcessTransaction(slotCtx, transferTx(t, payer, recipient, 5*solLamports))
	require.NoError(t, err)

	assert.ErrorIs(t, result.Err, sealevel.SystemProgErrResultWithNegativeLamports)
	assert.Equal(t, txStatusFailed, result.Status)
	assert.Equal(t, uint64(2*solLamports-fees.DefaultLamportsPerSignature), lamportsOf(t, slotCtx, payer.PublicKey()))
	assert.Equal(t, uint64(0), lamportsOf(t, slotCtx, recipient))
	assert.Equal(t, []solana.PublicKey{payer.PublicKey()}, result.Modified)
}

func TestProcessTransaction_InvalidSignatureRejected(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	payer := KeypairFromName("payer")
	recipient := KeypairFromName("recipient").PublicKey()
	fund(t, slotCtx, payer.PublicKey(), 2*solLamports)

	tx := transferTx(t, payer, recipient, solLamports)
	tx.Signatures[0][0] ^= 0xff

	result, err := ProcessTransaction(slotCtx, tx)
	require.NoError(t, err)

	var sigErr *TxErrInvalidSignature
	assert.ErrorAs(t, result.Err, &sigErr)
	assert.Equal(t, txStatusRejected, result.Status)
	assert.Equal(t, uint64(2*solLamports), lamportsOf(t, slotCtx, payer.PublicKey()))
	assert.Empty(t, slotCtx.ModifiedAccts)
}

func TestProcessTransaction_UnfundedPayerRejected(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	payer := KeypairFromName("broke")
	recipient := KeypairFromName("recipient").PublicKey()

	result, err := ProcessTransaction(slotCtx, transferTx(t, payer, recipient, 0))
	require.NoError(t, err)

	assert.ErrorIs(t, result.Err, fees.TxErrInsufficientFundsForFee)
	assert.Equal(t, txStatusRejected, result.Status)
	assert.Empty(t, slotCtx.ModifiedAccts)
}

func TestProcessTransaction_RentPayingRecipientFails(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	payer := KeypairFromName("payer")
	recipient := KeypairFromName("recipient").PublicKey()
	fund(t, slotCtx, payer.PublicKey(), 2*solLamports)

	result, err := ProcessTransaction(slotCtx, transferTx(t, payer, recipient, 1000))
	require.NoError(t, err)

	assert.ErrorIs(t, result.Err, fees.TxErrInsufficientFundsForRent)
	assert.Equal(t, uint64(0), lamportsOf(t, slotCtx, recipient))
	assert.Equal(t, uint64(2*solLamports-fees.DefaultLamportsPerSignature), lamportsOf(t, slotCtx, payer.PublicKey()))
}

func TestProcessTransaction_Metrics(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	slotCtx.Metrics = metrics

	payer := KeypairFromName("payer")
	recipient := KeypairFromName("recipient").PublicKey()
	fund(t, slotCtx, payer.PublicKey(), 10*solLamports)

	_, err = ProcessTransaction(slotCtx, transferTx(t, payer, recipient, solLamports))
	require.NoError(t, err)
	_, err = ProcessTransaction(slotCtx, transferTx(t, payer, recipient, 100*solLamports))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transactions.WithLabelValues(txStatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transactions.WithLabelValues(txStatusFailed)))
	assert.Equal(t, float64(2*fees.DefaultLamportsPerSignature), testutil.ToFloat64(metrics.fees))
	assert.Greater(t, testutil.ToFloat64(metrics.computeUnits), 0.0)
}

func TestProcessBlock(t *testing.T) {
	slotCtx := newTestSlotCtx(t)
	payer := KeypairFromName("payer")
	recipient := KeypairFromName("recipient").PublicKey()
	leader := KeypairFromName("leader").PublicKey()
	fund(t, slotCtx, payer.PublicKey(), 10*solLamports)

	block := &Block{
		Slot:          7,
		UnixTimestamp: 1_700_000_000,
		Leader:        leader,
		Blockhash:     [32]byte{2},
		Transactions: []*solana.Transaction{
			transferTx(t, payer, recipient, solLamports),
			transferTx(t, payer, recipient, 100*solLamports),
			transferTx(t, payer, recipient, 2*solLamports),
		},
	}

	result, err := ProcessBlock(slotCtx, block)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)

	assert.NoError(t, result.Transactions[0].Err)
	assert.Error(t, result.Transactions[1].Err)
	assert.NoError(t, result.Transactions[2].Err)
	assert.Equal(t, uint64(3), result.NumSignatures)
	assert.Equal(t, uint64(3*fees.DefaultLamportsPerSignature), result.TotalFees)

	assert.Equal(t, uint64(3*solLamports), lamportsOf(t, slotCtx, recipient))
	assert.Equal(t, uint64(7*solLamports-3*fees.DefaultLamportsPerSignature), lamportsOf(t, slotCtx, payer.PublicKey()))
	assert.Equal(t, uint64(3*fees.DefaultLamportsPerSignature-3*fees.DefaultLamportsPerSignature/2), lamportsOf(t, slotCtx, leader))

	clock, err := sealevel.ReadClockSysvar(slotCtx.Accounts)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), clock.Slot)

	modified, err := slotCtx.modifiedAccounts()
	require.NoError(t, err)
	expected := calculateBankHash(result.AccountsDeltaHash[:], block.ParentBankHash, 3, block.Blockhash)
	assert.Equal(t, expected, result.BankHash[:])
	assert.Len(t, modified, 4)
}

func TestProcessBlock_ClockCannotMoveBackwards(t *testing.T) {
	slotCtx := newTestSlotCtx(t)

	_, err := ProcessBlock(slotCtx, &Block{Slot: 10})
	require.NoError(t, err)

	_, err = ProcessBlock(slotCtx, &Block{Slot: 9})
	assert.Error(t, err)
}

func TestProcessBlock_BankHashChainsParent(t *testing.T) {
	first, err := ProcessBlock(newTestSlotCtx(t), &Block{Slot: 1})
	require.NoError(t, err)

	second, err := ProcessBlock(newTestSlotCtx(t), &Block{Slot: 1, ParentBankHash: [32]byte{9}})
	require.NoError(t, err)

	assert.Equal(t, first.AccountsDeltaHash, second.AccountsDeltaHash)
	assert.NotEqual(t, first.BankHash, second.BankHash)
}
