package replay

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/fees"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"github.com/solbootcamp/vaultkit/pkg/util"
	"k8s.io/klog/v2"
)

type TxErrInvalidSignature struct {
	msg string
}

func NewTxErrInvalidSignature(msg string) error {
	return &TxErrInvalidSignature{msg: msg}
}

func (err *TxErrInvalidSignature) Error() string {
	return err.msg
}

var TxErrAccountLoadedTwice = errors.New("TxErrAccountLoadedTwice")

type TransactionResult struct {
	Signature solana.Signature

	// Err is nil when the transaction executed and committed. A rejected
	// transaction (bad signature, unpayable fee) changes nothing. A failed one
	// only pays its fee.
	Err    error
	Status string

	Fee               uint64
	Logs              []string
	ComputeUnitsUsed  uint64
	Modified          []solana.PublicKey
	AccountsDeltaHash [32]byte
}

func isSysvar(pubkey solana.PublicKey) bool {
	return pubkey == sealevel.SysvarClockAddr || pubkey == sealevel.SysvarRentAddr
}

// isWritable demotes programs and sysvars to read-only whatever the message
// header says.
func isWritable(tx *solana.Transaction, pubkey solana.PublicKey) bool {
	writable, err := tx.Message.IsWritable(pubkey)
	if err != nil || !writable {
		return false
	}

	if sealevel.IsNativeProgram(pubkey) || isSysvar(pubkey) {
		return false
	}

	programIds, err := tx.GetProgramIDs()
	if err != nil {
		return false
	}
	for _, programId := range programIds {
		if pubkey == programId {
			return false
		}
	}

	return true
}

func writableFlags(tx *solana.Transaction) []bool {
	flags := make([]bool, len(tx.Message.AccountKeys))
	for idx, pubkey := range tx.Message.AccountKeys {
		flags[idx] = isWritable(tx, pubkey)
	}
	return flags
}

// loadTransactionAccounts copies every account the message names out of the
// slot's store. Keys with no account load as empty system accounts and
// registered programs load as executable stubs.
func loadTransactionAccounts(slotCtx *SlotCtx, tx *solana.Transaction) (*sealevel.TransactionAccounts, error) {
	if len(util.DedupePubkeys(append([]solana.PublicKey{}, tx.Message.AccountKeys...))) != len(tx.Message.AccountKeys) {
		return nil, TxErrAccountLoadedTwice
	}

	acctsForTx := make([]accounts.Account, 0, len(tx.Message.AccountKeys))
	for _, pubkey := range tx.Message.AccountKeys {
		if sealevel.IsNativeProgram(pubkey) {
			acctsForTx = append(acctsForTx, sealevel.NewNativeProgramAccount(pubkey))
			continue
		}

		acct, err := slotCtx.GetAccount(pubkey)
		if err != nil {
			return nil, err
		}
		if acct == nil {
			acctsForTx = append(acctsForTx, sealevel.NewSystemAccount(pubkey, 0))
		} else {
			acctsForTx = append(acctsForTx, *acct)
		}
	}

	return sealevel.NewTransactionAccounts(acctsForTx), nil
}

func instrsFromTx(tx *solana.Transaction) ([]sealevel.Instruction, error) {
	instrs := make([]sealevel.Instruction, len(tx.Message.Instructions))
	for idx, compiledInstr := range tx.Message.Instructions {
		programId, err := tx.ResolveProgramIDIndex(compiledInstr.ProgramIDIndex)
		if err != nil {
			return nil, err
		}

		ams, err := compiledInstr.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, err
		}

		acctMetas := make([]sealevel.AccountMeta, 0, len(ams))
		for _, am := range ams {
			acctMeta := sealevel.AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: isWritable(tx, am.PublicKey)}
			acctMetas = append(acctMetas, acctMeta)
		}

		instrs[idx] = sealevel.Instruction{Accounts: acctMetas, ProgramId: programId, Data: compiledInstr.Data}
	}

	return instrs, nil
}

func recordModifiedAccounts(slotCtx *SlotCtx, modified []*accounts.Account) error {
	err := slotCtx.Accounts.StoreAccounts(modified)
	if err != nil {
		return err
	}
	for _, acct := range modified {
		slotCtx.ModifiedAccts[acct.Key] = true
		klog.V(2).Infof("modified account %s after tx", acct.Key)
	}
	return nil
}

func rejectTransaction(slotCtx *SlotCtx, result *TransactionResult, err error) *TransactionResult {
	result.Err = err
	result.Status = txStatusRejected
	klog.Infof("tx %s rejected: %s", result.Signature, err)
	slotCtx.Metrics.observe(result)
	return result
}

// ProcessTransaction executes tx against the slot's accounts. Either every
// account the transaction touched is committed, or only the fee is. The
// returned error reports a store failure. Transaction failures are carried in
// the result.
func ProcessTransaction(slotCtx *SlotCtx, tx *solana.Transaction) (*TransactionResult, error) {
	result := &TransactionResult{}
	if len(tx.Signatures) == 0 {
		return rejectTransaction(slotCtx, result, NewTxErrInvalidSignature("transaction has no signatures")), nil
	}
	result.Signature = tx.Signatures[0]

	err := tx.VerifySignatures()
	if err != nil {
		return rejectTransaction(slotCtx, result, NewTxErrInvalidSignature(err.Error())), nil
	}

	instrs, err := instrsFromTx(tx)
	if err != nil {
		return rejectTransaction(slotCtx, result, err), nil
	}

	transactionAccts, err := loadTransactionAccounts(slotCtx, tx)
	if err != nil {
		if errors.Is(err, TxErrAccountLoadedTwice) {
			return rejectTransaction(slotCtx, result, err), nil
		}
		return nil, err
	}

	totalFee, payerNewLamports, err := fees.ApplyTxFees(tx, transactionAccts, slotCtx.LamportsPerSignature)
	if err != nil {
		return rejectTransaction(slotCtx, result, err), nil
	}
	result.Fee = totalFee

	rentSysvar, err := sealevel.ReadRentSysvar(slotCtx.Accounts)
	if err != nil {
		return nil, fmt.Errorf("reading rent sysvar: %w", err)
	}

	writable := writableFlags(tx)
	preTxRentStates, err := fees.NewRentStateInfo(&rentSysvar, transactionAccts, writable)
	if err != nil {
		return nil, err
	}

	var log sealevel.LogRecorder
	txCtx := sealevel.NewTransactionCtx(*transactionAccts, sealevel.MaxInstructionStackDepth, sealevel.MaxInstructionTraceLen)
	execCtx := sealevel.NewExecutionCtx(txCtx, slotCtx.Accounts, slotCtx.ComputeUnitLimit, &log)

	var txErr error
	for instrIdx, instr := range instrs {
		err = execCtx.ExecuteTopLevelInstruction(instr)
		if err != nil {
			txErr = fmt.Errorf("instruction %d: %w", instrIdx, err)
			break
		}
	}

	if txErr == nil {
		postTxRentStates, err := fees.NewRentStateInfo(&rentSysvar, &txCtx.Accounts, writable)
		if err != nil {
			return nil, err
		}
		txErr = fees.VerifyRentStateChanges(preTxRentStates, postTxRentStates, &txCtx.Accounts)
	}

	result.Logs = log.Logs
	result.ComputeUnitsUsed = execCtx.ComputeMeter.Used()
	for _, l := range log.Logs {
		klog.V(2).Infof("%s", l)
	}
	klog.Infof("tx %s - compute units consumed: %d", result.Signature, result.ComputeUnitsUsed)

	var committed []*accounts.Account
	if txErr != nil {
		// nothing but the fee survives a failed transaction
		payerKey := tx.Message.AccountKeys[0]
		payer, err := slotCtx.GetAccount(payerKey)
		if err != nil {
			return nil, err
		}
		if payer == nil {
			payer = &accounts.Account{Key: payerKey, Owner: sealevel.SystemProgramAddr}
		} else {
			payer = payer.Clone()
		}
		payer.Lamports = payerNewLamports
		committed = []*accounts.Account{payer}

		result.Err = txErr
		result.Status = txStatusFailed
		klog.Infof("tx %s failed: %s", result.Signature, txErr)
	} else {
		committed = txCtx.Accounts.TouchedAccounts()
		result.Status = txStatusSuccess
	}

	err = recordModifiedAccounts(slotCtx, committed)
	if err != nil {
		return nil, err
	}
	for _, acct := range committed {
		result.Modified = append(result.Modified, acct.Key)
	}
	result.AccountsDeltaHash = util.CalculateDeltaHash(committed)

	slotCtx.Metrics.observe(result)
	return result, nil
}
