package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
)

// TransactionAccounts holds the working copies of every account loaded for a
// transaction. Nothing here is visible to the accounts store until the
// touched accounts are committed.
type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccts := &TransactionAccounts{}
	txAccts.Accounts = make([]*accounts.Account, 0, len(accts))
	for idx := range accts {
		txAccts.Accounts = append(txAccts.Accounts, accts[idx].Clone())
	}
	txAccts.Touched = make([]bool, len(accts))
	txAccts.borrowed = make([]bool, len(accts))
	return txAccts
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= uint64(len(txAccounts.Accounts)) {
		return nil, InstrErrMissingAccount
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= uint64(len(txAccounts.Touched)) {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) borrow(idx uint64) (*accounts.Account, error) {
	acct, err := txAccounts.GetAccount(idx)
	if err != nil {
		return nil, err
	}
	if txAccounts.borrowed[idx] {
		return nil, InstrErrAccountBorrowFailed
	}
	txAccounts.borrowed[idx] = true
	return acct, nil
}

func (txAccounts *TransactionAccounts) unborrow(idx uint64) {
	txAccounts.borrowed[idx] = false
}

// AnyBorrowed reports whether an account is still borrowed, which means a
// program returned without dropping it.
func (txAccounts *TransactionAccounts) AnyBorrowed() bool {
	for _, b := range txAccounts.borrowed {
		if b {
			return true
		}
	}
	return false
}

func (txAccounts *TransactionAccounts) Keys() []solana.PublicKey {
	keys := make([]solana.PublicKey, len(txAccounts.Accounts))
	for idx, acct := range txAccounts.Accounts {
		keys[idx] = acct.Key
	}
	return keys
}

// TouchedAccounts returns copies of the accounts modified during execution.
func (txAccounts *TransactionAccounts) TouchedAccounts() []*accounts.Account {
	var touched []*accounts.Account
	for idx, acct := range txAccounts.Accounts {
		if txAccounts.Touched[idx] {
			touched = append(touched, acct.Clone())
		}
	}
	return touched
}
