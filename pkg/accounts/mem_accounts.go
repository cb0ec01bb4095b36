package accounts

import (
	"github.com/tidwall/btree"
)

// MemAccounts keeps accounts ordered by key so that iteration is deterministic.
type MemAccounts struct {
	tree *btree.Map[string, *Account]
}

func NewMemAccounts() MemAccounts {
	return MemAccounts{
		tree: new(btree.Map[string, *Account]),
	}
}

func (m MemAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	acct, ok := m.tree.Get(string(pubkey[:]))
	if !ok {
		return nil, nil
	}
	return acct, nil
}

func (m MemAccounts) SetAccount(pubkey *[32]byte, acc *Account) error {
	m.tree.Set(string(pubkey[:]), acc)
	return nil
}

func (m MemAccounts) DeleteAccount(pubkey *[32]byte) error {
	m.tree.Delete(string(pubkey[:]))
	return nil
}

func (m MemAccounts) StoreAccounts(accts []*Account) error {
	for _, acct := range accts {
		pk := [32]byte(acct.Key)
		if acct.Lamports == 0 {
			m.tree.Delete(string(pk[:]))
		} else {
			m.tree.Set(string(pk[:]), acct.Clone())
		}
	}
	return nil
}

func (m MemAccounts) Len() int {
	return m.tree.Len()
}

// Range visits accounts in ascending key order until fn returns false.
func (m MemAccounts) Range(fn func(acct *Account) bool) {
	m.tree.Scan(func(_ string, acct *Account) bool {
		return fn(acct)
	})
}
