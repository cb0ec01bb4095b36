package sealevel

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/solbootcamp/vaultkit/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	TokenInstrTypeTransfer           = 3
	TokenInstrTypeMintTo             = 7
	TokenInstrTypeBurn               = 8
	TokenInstrTypeInitializeAccount3 = 18
	TokenInstrTypeInitializeMint2    = 20
)

// token program errors
var (
	TokenErrNotRentExempt      = NewCustomError(0, "NotRentExempt", "Lamport balance below rent-exempt threshold")
	TokenErrInsufficientFunds  = NewCustomError(1, "InsufficientFunds", "Insufficient funds")
	TokenErrInvalidMint        = NewCustomError(2, "InvalidMint", "Invalid Mint")
	TokenErrMintMismatch       = NewCustomError(3, "MintMismatch", "Account not associated with this Mint")
	TokenErrOwnerMismatch      = NewCustomError(4, "OwnerMismatch", "Owner does not match")
	TokenErrFixedSupply        = NewCustomError(5, "FixedSupply", "Fixed supply")
	TokenErrAlreadyInUse       = NewCustomError(6, "AlreadyInUse", "Already in use")
	TokenErrUninitializedState = NewCustomError(9, "UninitializedState", "State is unititialized")
	TokenErrOverflow           = NewCustomError(14, "Overflow", "Operation overflowed")
	TokenErrAccountFrozen      = NewCustomError(17, "AccountFrozen", "Account is frozen")
)

func TokenProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUTokenProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)

	instructionType, err := decoder.ReadByte()
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	switch instructionType {

	case TokenInstrTypeInitializeMint2:
		{
			decimals, err := decoder.ReadByte()
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			var mintAuthority solana.PublicKey
			err = decoder.Decode(&mintAuthority)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			freezeAuthority, err := readPubkeyOption(decoder)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(1)
			if err != nil {
				return err
			}
			return TokenProgramInitializeMint(execCtx, decimals, mintAuthority, freezeAuthority)
		}

	case TokenInstrTypeInitializeAccount3:
		{
			var owner solana.PublicKey
			err = decoder.Decode(&owner)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(2)
			if err != nil {
				return err
			}
			return TokenProgramInitializeAccount(execCtx, owner)
		}

	case TokenInstrTypeTransfer:
		{
			amount, err := decoder.ReadUint64(bin.LE)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}
			return TokenProgramTransfer(execCtx, amount)
		}

	case TokenInstrTypeMintTo:
		{
			amount, err := decoder.ReadUint64(bin.LE)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}
			return TokenProgramMintTo(execCtx, amount)
		}

	case TokenInstrTypeBurn:
		{
			amount, err := decoder.ReadUint64(bin.LE)
			if err != nil {
				return InstrErrInvalidInstructionData
			}
			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}
			return TokenProgramBurn(execCtx, amount)
		}

	default:
		return InstrErrInvalidInstructionData
	}
}

// instruction options are a one byte tag, unlike the four byte tag in account state
func readPubkeyOption(decoder *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := decoder.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		var pk solana.PublicKey
		err = decoder.Decode(&pk)
		if err != nil {
			return nil, err
		}
		return &pk, nil
	default:
		return nil, InstrErrInvalidInstructionData
	}
}

type tokenAcctSnapshot struct {
	key      solana.PublicKey
	lamports uint64
	dataLen  uint64
	data     []byte
}

// snapshotTokenAcct borrows an instruction account long enough to copy out
// what the token program needs, after checking it belongs to the token program.
func snapshotTokenAcct(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*tokenAcctSnapshot, error) {
	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return nil, err
	}
	defer acct.Drop()

	if acct.Owner() != TokenProgramAddr {
		klog.Errorf("token program: account %s owned by %s", acct.Key(), acct.Owner())
		return nil, InstrErrIncorrectProgramId
	}

	data := make([]byte, len(acct.Data()))
	copy(data, acct.Data())
	return &tokenAcctSnapshot{key: acct.Key(), lamports: acct.Lamports(), dataLen: uint64(len(data)), data: data}, nil
}

func loadTokenAccount(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*TokenAccount, solana.PublicKey, error) {
	snap, err := snapshotTokenAcct(txCtx, instrCtx, instrAcctIdx)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	tokenAcct, err := UnmarshalTokenAccount(snap.data)
	if err != nil {
		return nil, snap.key, err
	}
	if !tokenAcct.IsInitialized() {
		return nil, snap.key, TokenErrUninitializedState
	}
	return tokenAcct, snap.key, nil
}

func loadTokenMint(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (*TokenMint, solana.PublicKey, error) {
	snap, err := snapshotTokenAcct(txCtx, instrCtx, instrAcctIdx)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	mint, err := UnmarshalTokenMint(snap.data)
	if err != nil {
		return nil, snap.key, err
	}
	if !mint.IsInitialized {
		return nil, snap.key, TokenErrUninitializedState
	}
	return mint, snap.key, nil
}

func storeTokenData(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64, data []byte) error {
	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()

	return acct.SetData(data)
}

// validateOwner checks that authority is the expected owner and signed
// this instruction, either directly or through a capability.
func validateOwner(instrCtx *InstructionCtx, expectedOwner solana.PublicKey, authority solana.PublicKey, authorityIdx uint64) error {
	if expectedOwner != authority {
		klog.Errorf("token program: owner %s does not match authority %s", expectedOwner, authority)
		return TokenErrOwnerMismatch
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(authorityIdx)
	if err != nil {
		return err
	}
	if !isSigner {
		klog.Errorf("token program: authority %s did not sign", authority)
		return InstrErrMissingRequiredSignature
	}
	return nil
}

func TokenProgramInitializeMint(execCtx *ExecutionCtx, decimals byte, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	snap, err := snapshotTokenAcct(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	mint, err := UnmarshalTokenMint(snap.data)
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}

	rent, err := ReadRentSysvar(execCtx.Accounts)
	if err != nil {
		return err
	}
	if !rent.IsExempt(snap.lamports, snap.dataLen) {
		return TokenErrNotRentExempt
	}

	mint.MintAuthority = &mintAuthority
	mint.Decimals = decimals
	mint.IsInitialized = true
	mint.FreezeAuthority = freezeAuthority

	return storeTokenData(txCtx, instrCtx, 0, mint.Marshal())
}

func TokenProgramInitializeAccount(execCtx *ExecutionCtx, owner solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	snap, err := snapshotTokenAcct(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	tokenAcct, err := UnmarshalTokenAccount(snap.data)
	if err != nil {
		return err
	}
	if tokenAcct.IsInitialized() {
		return TokenErrAlreadyInUse
	}

	rent, err := ReadRentSysvar(execCtx.Accounts)
	if err != nil {
		return err
	}
	if !rent.IsExempt(snap.lamports, snap.dataLen) {
		return TokenErrNotRentExempt
	}

	_, mintKey, err := loadTokenMint(txCtx, instrCtx, 1)
	if err != nil {
		klog.Errorf("InitializeAccount: invalid mint: %s", err)
		return TokenErrInvalidMint
	}

	tokenAcct.Mint = mintKey
	tokenAcct.Owner = owner
	tokenAcct.State = TokenAccountStateInitialized

	return storeTokenData(txCtx, instrCtx, 0, tokenAcct.Marshal())
}

func TokenProgramTransfer(execCtx *ExecutionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	source, sourceKey, err := loadTokenAccount(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	dest, destKey, err := loadTokenAccount(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	authority, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}

	if source.IsFrozen() || dest.IsFrozen() {
		return TokenErrAccountFrozen
	}
	if source.Amount < amount {
		klog.Errorf("Transfer: insufficient funds %d, need %d", source.Amount, amount)
		return TokenErrInsufficientFunds
	}
	if source.Mint != dest.Mint {
		return TokenErrMintMismatch
	}

	err = validateOwner(instrCtx, source.Owner, authority, 2)
	if err != nil {
		return err
	}

	if sourceKey == destKey {
		return nil
	}

	source.Amount -= amount
	dest.Amount, err = safemath.CheckedAddU64(dest.Amount, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenData(txCtx, instrCtx, 0, source.Marshal())
	if err != nil {
		return err
	}
	return storeTokenData(txCtx, instrCtx, 1, dest.Marshal())
}

func TokenProgramMintTo(execCtx *ExecutionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	mint, mintKey, err := loadTokenMint(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	dest, _, err := loadTokenAccount(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	authority, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}

	if dest.IsFrozen() {
		return TokenErrAccountFrozen
	}
	if dest.Mint != mintKey {
		return TokenErrMintMismatch
	}
	if mint.MintAuthority == nil {
		return TokenErrFixedSupply
	}

	err = validateOwner(instrCtx, *mint.MintAuthority, authority, 2)
	if err != nil {
		return err
	}

	mint.Supply, err = safemath.CheckedAddU64(mint.Supply, amount)
	if err != nil {
		return TokenErrOverflow
	}
	dest.Amount, err = safemath.CheckedAddU64(dest.Amount, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenData(txCtx, instrCtx, 0, mint.Marshal())
	if err != nil {
		return err
	}
	return storeTokenData(txCtx, instrCtx, 1, dest.Marshal())
}

func TokenProgramBurn(execCtx *ExecutionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	source, _, err := loadTokenAccount(txCtx, instrCtx, 0)
	if err != nil {
		return err
	}
	mint, mintKey, err := loadTokenMint(txCtx, instrCtx, 1)
	if err != nil {
		return err
	}
	authority, err := extractAddress(txCtx, instrCtx, 2)
	if err != nil {
		return err
	}

	if source.IsFrozen() {
		return TokenErrAccountFrozen
	}
	if source.Amount < amount {
		klog.Errorf("Burn: insufficient funds %d, need %d", source.Amount, amount)
		return TokenErrInsufficientFunds
	}
	if source.Mint != mintKey {
		return TokenErrMintMismatch
	}

	err = validateOwner(instrCtx, source.Owner, authority, 2)
	if err != nil {
		return err
	}

	source.Amount -= amount
	mint.Supply, err = safemath.CheckedSubU64(mint.Supply, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenData(txCtx, instrCtx, 0, source.Marshal())
	if err != nil {
		return err
	}
	return storeTokenData(txCtx, instrCtx, 1, mint.Marshal())
}
