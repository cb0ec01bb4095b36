package sealevel

import (
	"bytes"
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
	solanapda "github.com/solbootcamp/vaultkit/pkg/solana"
	"k8s.io/klog/v2"
)

const DiscriminatorLen = 8

// AccountDiscriminator is the 8 byte type tag prefixed to program-owned
// account data.
func AccountDiscriminator(name string) [DiscriminatorLen]byte {
	return discriminator("account:" + name)
}

// InstructionDiscriminator is the 8 byte tag that selects an instruction
// handler.
func InstructionDiscriminator(name string) [DiscriminatorLen]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [DiscriminatorLen]byte {
	var disc [DiscriminatorLen]byte
	h := sha256.Sum256([]byte(preimage))
	copy(disc[:], h[:DiscriminatorLen])
	return disc
}

// AccountInfo is a copy of an instruction account, taken while a program
// validates its account list. Holding one does not hold a borrow, so the
// program may invoke other programs and Refresh afterwards.
type AccountInfo struct {
	Index      uint64
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
	IsSigner   bool
	IsWritable bool
}

// InstructionAccountInfos copies the first n accounts of the current
// instruction.
func InstructionAccountInfos(execCtx *ExecutionCtx, n uint64) ([]*AccountInfo, error) {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, err
	}
	if instrCtx.NumberOfInstructionAccounts() < n {
		return nil, ErrAccountNotEnoughKeys
	}

	infos := make([]*AccountInfo, n)
	for idx := uint64(0); idx < n; idx++ {
		infos[idx] = &AccountInfo{Index: idx}
		err = infos[idx].load(txCtx, instrCtx)
		if err != nil {
			return nil, err
		}
	}
	return infos, nil
}

func (info *AccountInfo) load(txCtx *TransactionCtx, instrCtx *InstructionCtx) error {
	acct, err := instrCtx.BorrowInstructionAccount(txCtx, info.Index)
	if err != nil {
		return err
	}
	defer acct.Drop()

	info.Key = acct.Key()
	info.Owner = acct.Owner()
	info.Lamports = acct.Lamports()
	info.Data = bytes.Clone(acct.Data())
	info.Executable = acct.IsExecutable()
	info.IsSigner = acct.IsSigner()
	info.IsWritable = acct.IsWritable()
	return nil
}

// Refresh re-reads the account, typically after an invocation changed it.
func (info *AccountInfo) Refresh(execCtx *ExecutionCtx) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	return info.load(txCtx, instrCtx)
}

func (info *AccountInfo) CheckSigner() error {
	if !info.IsSigner {
		klog.Errorf("account %s did not sign", info.Key)
		return ErrAccountNotSigner
	}
	return nil
}

func (info *AccountInfo) CheckWritable() error {
	if !info.IsWritable {
		klog.Errorf("account %s is not writable", info.Key)
		return ErrConstraintMut
	}
	return nil
}

func (info *AccountInfo) CheckProgram(programId solana.PublicKey) error {
	if info.Key != programId || !info.Executable {
		klog.Errorf("expected program %s, got %s", programId, info.Key)
		return ErrInvalidProgramId
	}
	return nil
}

// CheckSeeds verifies that the account is the canonical derived address of
// seeds under programId and returns its bump.
func (info *AccountInfo) CheckSeeds(seeds [][]byte, programId solana.PublicKey) (uint8, error) {
	expected, bump, err := solanapda.FindProgramAddress(seeds, programId)
	if err != nil || expected != info.Key {
		klog.Errorf("seeds constraint: %s does not match derived %s", info.Key, expected)
		return 0, ErrConstraintSeeds
	}
	return bump, nil
}

// IsUninitialized reports whether the account has never been created, or
// has been closed back to the system program.
func (info *AccountInfo) IsUninitialized() bool {
	return info.Owner == SystemProgramAddr && len(info.Data) == 0
}

func (info *AccountInfo) checkOwner(owner solana.PublicKey) error {
	if info.Owner == SystemProgramAddr && info.Lamports == 0 {
		return ErrAccountNotInitialized
	}
	if info.Owner != owner {
		klog.Errorf("account %s owned by %s, expected %s", info.Key, info.Owner, owner)
		return ErrAccountOwnedByWrongProgram
	}
	return nil
}

// ProgramData returns the account data of a programId-owned account that
// starts with disc.
func (info *AccountInfo) ProgramData(programId solana.PublicKey, disc [DiscriminatorLen]byte) ([]byte, error) {
	err := info.checkOwner(programId)
	if err != nil {
		return nil, err
	}
	if len(info.Data) < DiscriminatorLen || !bytes.Equal(info.Data[:DiscriminatorLen], disc[:]) {
		return nil, ErrAccountDiscriminatorMismatch
	}
	return info.Data, nil
}

func (info *AccountInfo) Mint() (*TokenMint, error) {
	err := info.checkOwner(TokenProgramAddr)
	if err != nil {
		return nil, err
	}
	mint, err := UnmarshalTokenMint(info.Data)
	if err != nil || !mint.IsInitialized {
		return nil, ErrAccountDidNotDeserialize
	}
	return mint, nil
}

// TokenAccount decodes the account as a token account of mint whose
// authority is authority.
func (info *AccountInfo) TokenAccount(mint solana.PublicKey, authority solana.PublicKey) (*TokenAccount, error) {
	err := info.checkOwner(TokenProgramAddr)
	if err != nil {
		return nil, err
	}
	tokenAcct, err := UnmarshalTokenAccount(info.Data)
	if err != nil || !tokenAcct.IsInitialized() {
		return nil, ErrAccountDidNotDeserialize
	}
	if tokenAcct.Mint != mint {
		klog.Errorf("token account %s holds mint %s, expected %s", info.Key, tokenAcct.Mint, mint)
		return nil, ErrConstraintTokenMint
	}
	if tokenAcct.Owner != authority {
		klog.Errorf("token account %s owned by %s, expected %s", info.Key, tokenAcct.Owner, authority)
		return nil, ErrConstraintTokenOwner
	}
	return tokenAcct, nil
}

// AssociatedTokenAccount is TokenAccount plus a check that the account sits
// at the associated token address of (wallet, mint).
func (info *AccountInfo) AssociatedTokenAccount(mint solana.PublicKey, wallet solana.PublicKey) (*TokenAccount, error) {
	tokenAcct, err := info.TokenAccount(mint, wallet)
	if err != nil {
		return nil, err
	}
	err = info.CheckAssociatedAddress(mint, wallet)
	if err != nil {
		return nil, err
	}
	return tokenAcct, nil
}

func (info *AccountInfo) CheckAssociatedAddress(mint solana.PublicKey, wallet solana.PublicKey) error {
	expected, _, err := FindAssociatedTokenAddress(wallet, mint)
	if err != nil || expected != info.Key {
		klog.Errorf("associated constraint: %s is not the token account of %s for %s", info.Key, wallet, mint)
		return ErrConstraintAssociated
	}
	return nil
}

// StoreProgramData overwrites the data of an instruction account owned by
// the executing program.
func StoreProgramData(execCtx *ExecutionCtx, instrAcctIdx uint64, data []byte) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()

	return acct.SetData(data)
}

// CloseProgramAccount moves every lamport of a program-owned account to
// beneficiary, then empties it and hands it back to the system program.
func CloseProgramAccount(execCtx *ExecutionCtx, instrAcctIdx uint64, beneficiaryIdx uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()

	beneficiary, err := instrCtx.BorrowInstructionAccount(txCtx, beneficiaryIdx)
	if err != nil {
		return err
	}
	defer beneficiary.Drop()

	err = beneficiary.CheckedAddLamports(acct.Lamports())
	if err != nil {
		return err
	}
	err = acct.SetLamports(0)
	if err != nil {
		return err
	}
	err = acct.SetDataLength(0)
	if err != nil {
		return err
	}
	return acct.SetOwner(SystemProgramAddr)
}
