package fees

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txWithSignatures(n uint8) *solana.Transaction {
	return &solana.Transaction{Message: solana.Message{Header: solana.MessageHeader{NumRequiredSignatures: n}}}
}

func TestApplyTxFees(t *testing.T) {
	payer := accounts.Account{Key: solana.PublicKey{1}, Lamports: 20_000, Owner: sealevel.SystemProgramAddr}
	txAccts := sealevel.NewTransactionAccounts([]accounts.Account{payer})

	fee, remaining, err := ApplyTxFees(txWithSignatures(2), txAccts, DefaultLamportsPerSignature)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), fee)
	assert.Equal(t, uint64(10_000), remaining)

	acct, err := txAccts.GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), acct.Lamports)
	assert.Len(t, txAccts.TouchedAccounts(), 1)
}

func TestApplyTxFees_InsufficientFunds(t *testing.T) {
	payer := accounts.Account{Key: solana.PublicKey{1}, Lamports: 4999, Owner: sealevel.SystemProgramAddr}
	txAccts := sealevel.NewTransactionAccounts([]accounts.Account{payer})

	_, _, err := ApplyTxFees(txWithSignatures(1), txAccts, DefaultLamportsPerSignature)
	assert.ErrorIs(t, err, TxErrInsufficientFundsForFee)

	acct, err := txAccts.GetAccount(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4999), acct.Lamports)
	assert.Empty(t, txAccts.TouchedAccounts())
}

func TestDistributeTxFees(t *testing.T) {
	tests := []struct {
		name        string
		existing    uint64
		totalFees   uint64
		expectedBal uint64
	}{
		{name: "even", existing: 0, totalFees: 10_000, expectedBal: 5000},
		{name: "odd fee rounds toward collector", existing: 0, totalFees: 5001, expectedBal: 2501},
		{name: "existing balance", existing: 1_000_000, totalFees: 15_000, expectedBal: 1_007_500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := accounts.NewMemAccounts()
			collector := solana.PublicKey{9}
			if tc.existing > 0 {
				require.NoError(t, store.StoreAccounts([]*accounts.Account{{Key: collector, Lamports: tc.existing, Owner: sealevel.SystemProgramAddr}}))
			}

			acct, err := DistributeTxFees(store, collector, tc.totalFees)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedBal, acct.Lamports)

			stored, err := store.GetAccount((*[32]byte)(&collector))
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, tc.expectedBal, stored.Lamports)
			assert.Equal(t, solana.PublicKey(sealevel.SystemProgramAddr), stored.Owner)
		})
	}
}

func TestCheckRentStateTransitionAllowed(t *testing.T) {
	uninitialized := &RentStateInfo{RentState: RentStateUninitialized}
	exempt := &RentStateInfo{RentState: RentStateRentExempt}
	paying := func(lamports uint64, size uint64) *RentStateInfo {
		return &RentStateInfo{RentState: RentStateRentPaying, RentPayingInfo: RentPayingInfo{Lamports: lamports, DataSize: size}}
	}

	tests := []struct {
		name    string
		pre     *RentStateInfo
		post    *RentStateInfo
		allowed bool
	}{
		{name: "read-only", pre: nil, post: nil, allowed: true},
		{name: "created exempt", pre: uninitialized, post: exempt, allowed: true},
		{name: "closed", pre: exempt, post: uninitialized, allowed: true},
		{name: "paying topped up to exempt", pre: paying(100, 10), post: exempt, allowed: true},
		{name: "created paying", pre: uninitialized, post: paying(100, 10), allowed: false},
		{name: "exempt drained to paying", pre: exempt, post: paying(100, 10), allowed: false},
		{name: "paying shrinks", pre: paying(100, 10), post: paying(90, 10), allowed: true},
		{name: "paying unchanged", pre: paying(100, 10), post: paying(100, 10), allowed: true},
		{name: "paying grows", pre: paying(100, 10), post: paying(101, 10), allowed: false},
		{name: "paying resized", pre: paying(100, 10), post: paying(100, 11), allowed: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, checkRentStateTransitionAllowed(tc.pre, tc.post))
		})
	}
}

func TestVerifyRentStateChanges(t *testing.T) {
	rent := sealevel.DefaultRent()
	exemptMin := rent.MinimumBalance(10)

	acct := accounts.Account{Key: solana.PublicKey{2}, Lamports: exemptMin, Data: make([]byte, 10), Owner: sealevel.SystemProgramAddr}
	readOnly := accounts.Account{Key: solana.PublicKey{3}, Lamports: 1, Data: make([]byte, 10), Owner: sealevel.SystemProgramAddr}
	txAccts := sealevel.NewTransactionAccounts([]accounts.Account{acct, readOnly})
	writable := []bool{true, false}

	pre, err := NewRentStateInfo(&rent, txAccts, writable)
	require.NoError(t, err)
	assert.Equal(t, uint64(RentStateRentExempt), pre[0].RentState)
	assert.Nil(t, pre[1])

	working, err := txAccts.GetAccount(0)
	require.NoError(t, err)
	working.Lamports = exemptMin - 1

	post, err := NewRentStateInfo(&rent, txAccts, writable)
	require.NoError(t, err)
	assert.Equal(t, uint64(RentStateRentPaying), post[0].RentState)
	assert.ErrorIs(t, VerifyRentStateChanges(pre, post, txAccts), TxErrInsufficientFundsForRent)

	working.Lamports = 0
	post, err = NewRentStateInfo(&rent, txAccts, writable)
	require.NoError(t, err)
	assert.NoError(t, VerifyRentStateChanges(pre, post, txAccts))

	assert.ErrorIs(t, VerifyRentStateChanges(pre, post[:1], txAccts), sealevel.InstrErrNotEnoughAccountKeys)
}
