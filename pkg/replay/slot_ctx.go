package replay

import (
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/cu"
	"github.com/solbootcamp/vaultkit/pkg/fees"
	"github.com/solbootcamp/vaultkit/pkg/util"
)

// SlotCtx is the state shared by the transactions of one slot.
type SlotCtx struct {
	Slot                 uint64
	Accounts             accounts.Accounts
	LamportsPerSignature uint64
	ComputeUnitLimit     uint64
	ModifiedAccts        map[solana.PublicKey]bool
	Metrics              *Metrics
}

func NewSlotCtx(accts accounts.Accounts, slot uint64) *SlotCtx {
	return &SlotCtx{
		Slot:                 slot,
		Accounts:             accts,
		LamportsPerSignature: fees.DefaultLamportsPerSignature,
		ComputeUnitLimit:     cu.DefaultComputeBudget,
		ModifiedAccts:        make(map[solana.PublicKey]bool),
	}
}

func (slotCtx *SlotCtx) GetAccount(pubkey solana.PublicKey) (*accounts.Account, error) {
	return slotCtx.Accounts.GetAccount((*[32]byte)(&pubkey))
}

// modifiedAccounts returns the current state of every account written during
// the slot, in key order. Deleted accounts come back with zero lamports.
func (slotCtx *SlotCtx) modifiedAccounts() ([]*accounts.Account, error) {
	keys := make([]solana.PublicKey, 0, len(slotCtx.ModifiedAccts))
	for key := range slotCtx.ModifiedAccts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return util.PubkeyCmp(keys[i], keys[j])
	})

	modified := make([]*accounts.Account, 0, len(keys))
	for _, key := range keys {
		acct, err := slotCtx.GetAccount(key)
		if err != nil {
			return nil, err
		}
		if acct == nil {
			acct = &accounts.Account{Key: key}
		}
		modified = append(modified, acct)
	}
	return modified, nil
}
