package sealevel

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/cu"
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
	"k8s.io/klog/v2"
)

type ExecutionCtx struct {
	Log                Logger
	Accounts           accounts.Accounts
	TransactionContext *TransactionCtx
	ComputeMeter       cu.ComputeMeter
}

// Capability lets a program sign for one of its derived addresses. The seeds
// must include the bump and must derive Principal under the invoking
// program's id.
type Capability struct {
	Seeds     [][]byte
	Principal solana.PublicKey
}

func NewExecutionCtx(txCtx *TransactionCtx, accts accounts.Accounts, computeBudget uint64, log Logger) *ExecutionCtx {
	return &ExecutionCtx{Log: log, Accounts: accts, TransactionContext: txCtx, ComputeMeter: cu.NewComputeMeter(computeBudget)}
}

func (execCtx *ExecutionCtx) PrepareInstruction(ix Instruction, signers []solana.PublicKey) ([]InstructionAccount, []uint64, error) {
	txCtx := execCtx.TransactionContext

	ixCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, nil, err
	}

	dedupInstructionAccounts := make([]InstructionAccount, 0)
	duplicateIndices := make([]uint64, 0)

	for instructionAcctIndex, accountMeta := range ix.Accounts {
		indexInTx, err := txCtx.IndexOfAccount(accountMeta.Pubkey)
		if err != nil {
			klog.Errorf("instruction references unknown account %s", accountMeta.Pubkey)
			return nil, nil, err
		}

		duplicateIndex := -1
		for index, instrAcct := range dedupInstructionAccounts {
			if instrAcct.IndexInTransaction == indexInTx {
				duplicateIndex = index
				break
			}
		}

		if duplicateIndex != -1 {
			duplicateIndices = append(duplicateIndices, uint64(duplicateIndex))
			dedupInstructionAccounts[duplicateIndex].IsSigner = dedupInstructionAccounts[duplicateIndex].IsSigner || accountMeta.IsSigner
			dedupInstructionAccounts[duplicateIndex].IsWritable = dedupInstructionAccounts[duplicateIndex].IsWritable || accountMeta.IsWritable
		} else {
			indexInCaller, err := ixCtx.IndexOfInstructionAccount(txCtx, accountMeta.Pubkey)
			if err != nil {
				klog.Errorf("instruction account %s not present in caller", accountMeta.Pubkey)
				return nil, nil, err
			}
			duplicateIndices = append(duplicateIndices, uint64(len(dedupInstructionAccounts)))

			instrAcct := InstructionAccount{IndexInTransaction: indexInTx,
				IndexInCaller: indexInCaller,
				IndexInCallee: uint64(instructionAcctIndex),
				IsSigner:      accountMeta.IsSigner,
				IsWritable:    accountMeta.IsWritable}

			dedupInstructionAccounts = append(dedupInstructionAccounts, instrAcct)
		}
	}

	for _, instructionAcct := range dedupInstructionAccounts {
		borrowedAcct, err := ixCtx.BorrowInstructionAccount(txCtx, instructionAcct.IndexInCaller)
		if err != nil {
			return nil, nil, err
		}
		isWritable := borrowedAcct.IsWritable()
		isSigner := borrowedAcct.IsSigner()
		key := borrowedAcct.Key()
		borrowedAcct.Drop()

		// read-only in the caller cannot become writable in the callee
		if instructionAcct.IsWritable && !isWritable {
			klog.Errorf("%s: writable privilege escalated", key)
			return nil, nil, InstrErrPrivilegeEscalation
		}

		// a callee signer must have signed the caller or be signed for by the program
		presentInSigners := false
		for _, addr := range signers {
			if addr == key {
				presentInSigners = true
				break
			}
		}
		if instructionAcct.IsSigner && !(isSigner || presentInSigners) {
			klog.Errorf("%s: signer privilege escalated", key)
			return nil, nil, InstrErrPrivilegeEscalation
		}
	}

	instructionAccounts := make([]InstructionAccount, 0, len(duplicateIndices))
	for _, duplicateIndex := range duplicateIndices {
		if duplicateIndex >= uint64(len(dedupInstructionAccounts)) {
			return nil, nil, InstrErrNotEnoughAccountKeys
		}
		instructionAccounts = append(instructionAccounts, dedupInstructionAccounts[duplicateIndex])
	}

	calleeProgramId := ix.ProgramId
	programAcctIdx, err := ixCtx.IndexOfInstructionAccount(txCtx, calleeProgramId)
	if err != nil {
		klog.Errorf("unknown program %s", calleeProgramId)
		return nil, nil, err
	}

	borrowedProgramAcct, err := ixCtx.BorrowInstructionAccount(txCtx, programAcctIdx)
	if err != nil {
		return nil, nil, err
	}
	defer borrowedProgramAcct.Drop()

	if !borrowedProgramAcct.IsExecutable() {
		klog.Errorf("account %s is not executable", calleeProgramId)
		return nil, nil, InstrErrAccountNotExecutable
	}

	return instructionAccounts, []uint64{borrowedProgramAcct.IndexInTransaction}, nil
}

func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	instrCtx := &InstructionCtx{ProgramAccounts: programIndices, InstructionAccounts: instructionAccts, Data: instrData}

	err := execCtx.Push(instrCtx)
	if err != nil {
		return err
	}

	programId, _ := instrCtx.ProgramId(execCtx.TransactionContext)
	execCtx.logf("Program %s invoke [%d]", programId, instrCtx.StackHeight())

	preBalance, err := execCtx.instructionLamports(instrCtx)
	if err != nil {
		_ = execCtx.Pop()
		return err
	}

	err1 := execCtx.ExecuteInstruction()
	if err1 == nil {
		var postBalance uint64
		postBalance, err1 = execCtx.instructionLamports(instrCtx)
		if err1 == nil && preBalance != postBalance {
			err1 = InstrErrUnbalancedInstruction
		}
	}

	err2 := execCtx.Pop()

	if err1 != nil {
		execCtx.logf("Program %s failed: %s", programId, err1)
		return err1
	} else if err2 != nil {
		return err2
	}

	execCtx.logf("Program %s success", programId)
	return nil
}

// instructionLamports sums the balances of the distinct accounts an
// instruction can reach. Execution must leave the sum unchanged.
func (execCtx *ExecutionCtx) instructionLamports(instrCtx *InstructionCtx) (uint64, error) {
	var total uint64
	seen := make(map[uint64]struct{}, len(instrCtx.InstructionAccounts))

	for _, instrAcct := range instrCtx.InstructionAccounts {
		if _, ok := seen[instrAcct.IndexInTransaction]; ok {
			continue
		}
		seen[instrAcct.IndexInTransaction] = struct{}{}

		acct, err := execCtx.TransactionContext.AccountAtIndex(instrAcct.IndexInTransaction)
		if err != nil {
			return 0, err
		}
		total, err = safemath.CheckedAddU64(total, acct.Lamports)
		if err != nil {
			return 0, InstrErrArithmeticOverflow
		}
	}
	return total, nil
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	borrowedRootAccount, err := instrCtx.BorrowLastProgramAccount(txCtx)
	if err != nil {
		klog.Infof("BorrowLastProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	programId := borrowedRootAccount.Key()
	ownerId := borrowedRootAccount.Owner()
	borrowedRootAccount.Drop()

	if ownerId != NativeLoaderAddr {
		klog.Errorf("program %s is not a native program (owner %s)", programId, ownerId)
		return InstrErrUnsupportedProgramId
	}

	nativeProgramFn, err := ResolveNativeProgramById(programId)
	if err != nil {
		return err
	}

	klog.V(2).Infof("calling native program %s", programId)
	err = nativeProgramFn(execCtx)
	if err != nil {
		return err
	}

	if txCtx.Accounts.AnyBorrowed() {
		return InstrErrAccountBorrowOutstanding
	}
	return nil
}

func (execCtx *ExecutionCtx) Push(instrCtx *InstructionCtx) error {
	txCtx := execCtx.TransactionContext

	programId, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return InstrErrUnsupportedProgramId
	}

	// a program may call itself, but may not be re-entered through another program
	if txCtx.InstructionCtxStackHeight() != 0 {
		var contains bool
		for level := uint64(0); level < txCtx.InstructionCtxStackHeight(); level++ {
			ic, err := txCtx.InstructionCtxAtNestingLevel(level)
			if err != nil {
				return err
			}
			key, err := ic.LastProgramKey(txCtx)
			if err == nil && key == programId {
				contains = true
				break
			}
		}

		current, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		currentKey, err := current.LastProgramKey(txCtx)
		isLast := err == nil && currentKey == programId

		if contains && !isLast {
			return InstrErrReentrancyNotAllowed
		}
	}

	return txCtx.Push(instrCtx)
}

func (execCtx *ExecutionCtx) Pop() error {
	return execCtx.TransactionContext.Pop()
}

func (execCtx *ExecutionCtx) StackHeight() uint64 {
	return execCtx.TransactionContext.InstructionCtxStackHeight()
}

// CurrentProgramId is the key of the program currently executing.
func (execCtx *ExecutionCtx) CurrentProgramId() (solana.PublicKey, error) {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return instrCtx.ProgramId(txCtx)
}

func (execCtx *ExecutionCtx) NativeInvoke(instruction Instruction, signers []solana.PublicKey) error {
	err := execCtx.ComputeMeter.Consume(CUInvokeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	instrAccts, programIndices, err := execCtx.PrepareInstruction(instruction, signers)
	if err != nil {
		return err
	}

	return execCtx.ProcessInstruction(instruction.Data, instrAccts, programIndices)
}

// NativeInvokeSigned invokes instruction with the principals of caps added as
// signers. Every capability is verified against the invoking program's id
// before anything runs.
func (execCtx *ExecutionCtx) NativeInvokeSigned(instruction Instruction, caps ...Capability) error {
	callerProgramId, err := execCtx.CurrentProgramId()
	if err != nil {
		return err
	}

	signers := make([]solana.PublicKey, 0, len(caps))
	for _, c := range caps {
		err = execCtx.ComputeMeter.Consume(CUCreateProgramAddressUnits)
		if err != nil {
			return InstrErrComputationalBudgetExceeded
		}

		derived, err := solanapda.CreateProgramAddress(c.Seeds, callerProgramId)
		if err != nil {
			klog.Errorf("capability for %s: %s", c.Principal, err)
			return InstrErrInvalidSeeds
		}
		if derived != c.Principal {
			klog.Errorf("capability seeds derive %s, not %s", derived, c.Principal)
			return InstrErrInvalidSeeds
		}
		signers = append(signers, c.Principal)
	}

	return execCtx.NativeInvoke(instruction, signers)
}

func (execCtx *ExecutionCtx) logf(format string, args ...interface{}) {
	if execCtx.Log != nil {
		execCtx.Log.Log(fmt.Sprintf(format, args...))
	}
}

// ProgramLog emits a program log line, as the sol_log syscall would.
func (execCtx *ExecutionCtx) ProgramLog(format string, args ...interface{}) {
	execCtx.logf("Program log: "+format, args...)
}
