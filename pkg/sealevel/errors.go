package sealevel

import (
	"errors"
	"fmt"
)

// instruction errors
var (
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrInvalidAccountOwner         = errors.New("InstrErrInvalidAccountOwner")
	InstrErrIncorrectProgramId          = errors.New("InstrErrIncorrectProgramId")
	InstrErrIllegalOwner                = errors.New("InstrErrIllegalOwner")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidSeeds                = errors.New("InstrErrInvalidSeeds")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrModifiedProgramId           = errors.New("InstrErrModifiedProgramId")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrInvalidRealloc              = errors.New("InstrErrInvalidRealloc")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrMaxInstructionTraceLength   = errors.New("InstrErrMaxInstructionTraceLengthExceeded")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrUnsupportedSysvar           = errors.New("InstrErrUnsupportedSysvar")
	InstrErrReentrancyNotAllowed        = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrUnbalancedInstruction       = errors.New("InstrErrUnbalancedInstruction")
	InstrErrAccountBorrowOutstanding    = errors.New("InstrErrAccountBorrowOutstanding")
	InstrErrAccountBorrowFailed         = errors.New("InstrErrAccountBorrowFailed")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount        = errors.New("InstrErrUninitializedAccount")
)

// CustomError is a program-defined error with a stable numeric code, the
// equivalent of InstructionError::Custom on chain.
type CustomError struct {
	Code uint32
	Name string
	Msg  string
}

func NewCustomError(code uint32, name string, msg string) *CustomError {
	return &CustomError{Code: code, Name: name, Msg: msg}
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x (%s: %s)", e.Code, e.Name, e.Msg)
}

// CustomErrorCode reports the program error code carried by err, if any.
func CustomErrorCode(err error) (uint32, bool) {
	var custom *CustomError
	if errors.As(err, &custom) {
		return custom.Code, true
	}
	return 0, false
}

// account constraint errors shared by programs that validate their account lists
var (
	ErrConstraintMut                  = NewCustomError(2000, "ConstraintMut", "A mut constraint was violated")
	ErrConstraintHasOne               = NewCustomError(2001, "ConstraintHasOne", "A has one constraint was violated")
	ErrConstraintSeeds                = NewCustomError(2006, "ConstraintSeeds", "A seeds constraint was violated")
	ErrConstraintAssociated           = NewCustomError(2009, "ConstraintAssociated", "An associated constraint was violated")
	ErrConstraintTokenMint            = NewCustomError(2014, "ConstraintTokenMint", "A token mint constraint was violated")
	ErrConstraintTokenOwner           = NewCustomError(2015, "ConstraintTokenOwner", "A token owner constraint was violated")
	ErrAccountDiscriminatorMismatch   = NewCustomError(3002, "AccountDiscriminatorMismatch", "Account discriminator did not match what was expected")
	ErrAccountDidNotDeserialize       = NewCustomError(3003, "AccountDidNotDeserialize", "Failed to deserialize the account")
	ErrAccountNotEnoughKeys           = NewCustomError(3005, "AccountNotEnoughKeys", "Not enough account keys given to the instruction")
	ErrAccountOwnedByWrongProgram     = NewCustomError(3007, "AccountOwnedByWrongProgram", "The given account is owned by a different program than expected")
	ErrInvalidProgramId               = NewCustomError(3008, "InvalidProgramId", "Program ID was not as expected")
	ErrAccountNotSigner               = NewCustomError(3010, "AccountNotSigner", "The given account did not sign")
	ErrAccountNotInitialized          = NewCustomError(3012, "AccountNotInitialized", "The program expected this account to be already initialized")
	ErrInstructionFallbackNotFound    = NewCustomError(101, "InstructionFallbackNotFound", "Fallback functions are not supported")
	ErrInstructionDidNotDeserialize   = NewCustomError(102, "InstructionDidNotDeserialize", "The program could not deserialize the given instruction")
	ErrInstructionDiscriminatorAbsent = NewCustomError(100, "InstructionMissing", "8 byte instruction identifier not provided")
)
