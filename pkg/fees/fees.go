package fees

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"k8s.io/klog/v2"
)

// Transactions pay a flat fee per required signature. There is no
// prioritization fee.
const DefaultLamportsPerSignature = 5000

const feePayerIdx = 0

var TxErrInsufficientFundsForFee = errors.New("TxErrInsufficientFundsForFee")

// ApplyTxFees debits the fee from the fee payer's working copy and returns
// the fee and the payer's remaining balance.
func ApplyTxFees(tx *solana.Transaction, transactionAccts *sealevel.TransactionAccounts, lamportsPerSignature uint64) (uint64, uint64, error) {
	feePayerAcct, err := transactionAccts.GetAccount(feePayerIdx)
	if err != nil {
		return 0, 0, err
	}

	numSignatures := uint64(tx.Message.Header.NumRequiredSignatures)
	totalTxFee, err := safemath.CheckedMulU64(numSignatures, lamportsPerSignature)
	if err != nil {
		return 0, 0, err
	}

	if feePayerAcct.Lamports < totalTxFee {
		return totalTxFee, 0, TxErrInsufficientFundsForFee
	}

	klog.V(2).Infof("tx fee: %d", totalTxFee)

	feePayerAcct.Lamports -= totalTxFee
	err = transactionAccts.Touch(feePayerIdx)
	if err != nil {
		return 0, 0, err
	}

	return totalTxFee, feePayerAcct.Lamports, nil
}

// DistributeTxFees burns half of totalFees and credits the rest to collector.
func DistributeTxFees(accts accounts.Accounts, collector solana.PublicKey, totalFees uint64) (*accounts.Account, error) {
	feesToBurn := totalFees / 2
	feesToCollector := totalFees - feesToBurn

	existing, err := accts.GetAccount((*[32]byte)(&collector))
	if err != nil {
		return nil, err
	}

	var collectorAcct *accounts.Account
	if existing == nil {
		collectorAcct = &accounts.Account{Key: collector, Owner: sealevel.SystemProgramAddr}
	} else {
		collectorAcct = existing.Clone()
	}

	collectorAcct.Lamports, err = safemath.CheckedAddU64(collectorAcct.Lamports, feesToCollector)
	if err != nil {
		return nil, err
	}

	err = accts.StoreAccounts([]*accounts.Account{collectorAcct})
	if err != nil {
		return nil, err
	}

	klog.Infof("fees for collector: %d, burned: %d, post-balance: %d (%s)", feesToCollector, feesToBurn, collectorAcct.Lamports, collector)
	return collectorAcct, nil
}
