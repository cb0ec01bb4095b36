package sealevel

// InstructionAcctsFromAccountMetas resolves a top-level instruction's account
// metas against the transaction's accounts. Repeated accounts share the index
// of their first occurrence and the union of their privileges.
func InstructionAcctsFromAccountMetas(instrAcctMetas []AccountMeta, txAccounts TransactionAccounts) ([]InstructionAccount, error) {
	instrAccts := make([]InstructionAccount, 0, len(instrAcctMetas))

	for instrAcctIdx, accountMeta := range instrAcctMetas {
		idxInTx := -1
		for pos, acct := range txAccounts.Accounts {
			if acct.Key == accountMeta.Pubkey {
				idxInTx = pos
				break
			}
		}
		if idxInTx == -1 {
			return nil, InstrErrMissingAccount
		}

		idxInCallee := instrAcctIdx
		for pos, instrAcct := range instrAccts {
			if instrAcct.IndexInTransaction == uint64(idxInTx) {
				idxInCallee = pos
				break
			}
		}

		newInstrAcct := InstructionAccount{IndexInTransaction: uint64(idxInTx), IndexInCaller: uint64(idxInTx),
			IndexInCallee: uint64(idxInCallee), IsSigner: accountMeta.IsSigner, IsWritable: accountMeta.IsWritable}
		instrAccts = append(instrAccts, newInstrAcct)
	}

	// privileges of repeated accounts are merged
	for idx := range instrAccts {
		for other := range instrAccts {
			if instrAccts[other].IndexInTransaction == instrAccts[idx].IndexInTransaction {
				instrAccts[idx].IsSigner = instrAccts[idx].IsSigner || instrAccts[other].IsSigner
				instrAccts[idx].IsWritable = instrAccts[idx].IsWritable || instrAccts[other].IsWritable
			}
		}
	}

	return instrAccts, nil
}

// ExecuteTopLevelInstruction runs ix as a top-level instruction against the
// transaction's accounts. The program account must be one of them.
func (execCtx *ExecutionCtx) ExecuteTopLevelInstruction(ix Instruction) error {
	txCtx := execCtx.TransactionContext

	instrAccts, err := InstructionAcctsFromAccountMetas(ix.Accounts, txCtx.Accounts)
	if err != nil {
		return err
	}

	programIdx, err := txCtx.IndexOfAccount(ix.ProgramId)
	if err != nil {
		return InstrErrUnsupportedProgramId
	}

	return execCtx.ProcessInstruction(ix.Data, instrAccts, []uint64{programIdx})
}
