package replay

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/fees"
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/solbootcamp/vaultkit/pkg/util"
	"k8s.io/klog/v2"
)

type Block struct {
	Slot           uint64
	UnixTimestamp  int64
	Leader         solana.PublicKey
	ParentBankHash [32]byte
	Blockhash      [32]byte
	Transactions   []*solana.Transaction
}

type BlockResult struct {
	Slot              uint64
	Transactions      []*TransactionResult
	NumSignatures     uint64
	TotalFees         uint64
	AccountsDeltaHash [32]byte
	BankHash          [32]byte
}

func numBlockSignatures(block *Block) uint64 {
	var numSigs uint64
	for _, tx := range block.Transactions {
		numSigs += uint64(len(tx.Signatures))
	}
	return numSigs
}

// ProcessBlock advances the clock to block.Slot and executes the block's
// transactions one after another. A failing transaction does not stop the
// block. Fees are split with the leader once all transactions have run.
func ProcessBlock(slotCtx *SlotCtx, block *Block) (*BlockResult, error) {
	slotCtx.Slot = block.Slot
	clear(slotCtx.ModifiedAccts)

	err := sealevel.UpdateClockSysvar(slotCtx.Accounts, block.Slot, block.UnixTimestamp)
	if err != nil {
		return nil, err
	}
	slotCtx.ModifiedAccts[sealevel.SysvarClockAddr] = true

	result := &BlockResult{Slot: block.Slot, NumSignatures: numBlockSignatures(block)}

	for idx, tx := range block.Transactions {
		txResult, err := ProcessTransaction(slotCtx, tx)
		if err != nil {
			return nil, fmt.Errorf("slot %d, transaction %d: %w", block.Slot, idx, err)
		}
		result.Transactions = append(result.Transactions, txResult)

		if txResult.Status != txStatusRejected {
			result.TotalFees, err = safemath.CheckedAddU64(result.TotalFees, txResult.Fee)
			if err != nil {
				return nil, err
			}
		}
	}

	if result.TotalFees != 0 && !block.Leader.IsZero() {
		collector, err := fees.DistributeTxFees(slotCtx.Accounts, block.Leader, result.TotalFees)
		if err != nil {
			return nil, err
		}
		slotCtx.ModifiedAccts[collector.Key] = true
	}

	modified, err := slotCtx.modifiedAccounts()
	if err != nil {
		return nil, err
	}
	result.AccountsDeltaHash = util.CalculateDeltaHash(modified)
	copy(result.BankHash[:], calculateBankHash(result.AccountsDeltaHash[:], block.ParentBankHash, result.NumSignatures, block.Blockhash))

	klog.Infof("slot %d: %d transactions, %d accounts modified, bankhash %s", block.Slot, len(result.Transactions), len(modified), solana.HashFromBytes(result.BankHash[:]))
	return result, nil
}
